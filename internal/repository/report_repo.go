package repository

import (
	"context"
	"fmt"

	"stockreport/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Report, error)
	Save(ctx context.Context, report *model.Report) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter model.ReportFilter) ([]model.Report, error)
	SumByProduct(ctx context.Context, filter model.ReportFilter) ([]model.ProductTotal, error)
	CountByProductName(ctx context.Context, name string) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	if report.History == nil {
		report.History = []model.HistoryEntry{}
	}
	return GetDB(ctx, r.db).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	if err := GetDB(ctx, r.db).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// FindByIDForUpdate row-locks the report until the surrounding transaction ends,
// so concurrent editors read it one after the other.
func (r *reportRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// Save writes the mutable columns and the history in a single UPDATE.
// Owner and creation columns are never touched.
func (r *reportRepository) Save(ctx context.Context, report *model.Report) error {
	res := GetDB(ctx, r.db).Model(report).
		Select("product_name", "quantity", "entry_date", "history", "updated_at").
		Updates(report)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Report{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reportRepository) List(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	var reports []model.Report
	if err := applyReportFilter(GetDB(ctx, r.db).Model(&model.Report{}), filter).
		Order("entry_date DESC").Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) SumByProduct(ctx context.Context, filter model.ReportFilter) ([]model.ProductTotal, error) {
	var totals []model.ProductTotal
	if err := applyReportFilter(GetDB(ctx, r.db).Model(&model.Report{}), filter).
		Select("product_name, SUM(quantity) AS total_quantity").
		Group("product_name").
		Order("total_quantity DESC").Order("product_name ASC").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to sum quantities by product: %w", err)
	}
	return totals, nil
}

func (r *reportRepository) CountByProductName(ctx context.Context, name string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Report{}).
		Where("LOWER(product_name) = LOWER(?)", name).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyReportFilter(db *gorm.DB, filter model.ReportFilter) *gorm.DB {
	if filter.ProductName != "" {
		db = db.Where("product_name = ?", filter.ProductName)
	}
	if filter.StartDate != nil {
		db = db.Where("entry_date >= ?", filter.StartDate.Format(model.DateLayout))
	}
	if filter.EndDate != nil {
		db = db.Where("entry_date <= ?", filter.EndDate.Format(model.DateLayout))
	}
	return db
}
