package repository

import (
	"context"
	"time"

	"stockreport/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	SetPasswordResetOTP(ctx context.Context, id uuid.UUID, otpHash *string, expires *time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	IncrementPasswordResetFails(ctx context.Context, id uuid.UUID) (int, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPasswordResetOTP stores (or with nil arguments clears) the pending reset code
// and zeroes its failure count.
func (r *userRepository) SetPasswordResetOTP(ctx context.Context, id uuid.UUID, otpHash *string, expires *time.Time) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_reset_otp":     otpHash,
		"password_reset_expires": expires,
		"password_reset_fails":   0,
	}).Error
}

// IncrementPasswordResetFails bumps the failure count in one statement and
// returns the new value.
func (r *userRepository) IncrementPasswordResetFails(ctx context.Context, id uuid.UUID) (int, error) {
	var fails int
	res := GetDB(ctx, r.db).Raw(
		`UPDATE users SET password_reset_fails = password_reset_fails + 1 WHERE id = ? RETURNING password_reset_fails`, id,
	).Scan(&fails)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return fails, nil
}

// UpdatePassword replaces the password hash and clears any pending reset code.
func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password":               passwordHash,
		"password_reset_otp":     nil,
		"password_reset_expires": nil,
		"password_reset_fails":   0,
	}).Error
}
