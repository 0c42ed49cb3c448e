package database

import (
	"fmt"

	"stockreport/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the connection pool, migrates the models and applies the
// schema patches AutoMigrate cannot express. The caller owns the handle and must
// Close it on shutdown.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Report{},
		&model.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL that gorm tags cannot describe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"case-insensitive unique product name",
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name_lower ON products (LOWER(name))`},
		{"report listing order",
			`CREATE INDEX IF NOT EXISTS idx_reports_entry_date_created_at ON reports (entry_date DESC, created_at DESC)`},
		{"history defaults to an empty array",
			`ALTER TABLE reports ALTER COLUMN history SET DEFAULT '[]'::jsonb`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error().Err(err).Msg("database: resolve pool for close")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("database: close pool")
		return
	}
	log.Info().Msg("database: connection pool closed")
}
