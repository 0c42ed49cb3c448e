package otp

import (
	"context"
	"fmt"
	"time"

	"stockreport/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DBStore keeps the pending code on the user row. It is used when no redis
// server is configured.
type DBStore struct {
	users repository.UserRepository
	now   func() time.Time
}

func NewDBStore(users repository.UserRepository) *DBStore {
	return &DBStore{users: users, now: time.Now}
}

func (s *DBStore) Save(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	h := string(hash)
	expires := s.now().Add(ttl)
	return s.users.SetPasswordResetOTP(ctx, userID, &h, &expires)
}

func (s *DBStore) Verify(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if user.PasswordResetOTP == nil || user.PasswordResetExpires == nil {
		return false, nil
	}
	if s.now().After(*user.PasswordResetExpires) {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordResetOTP), []byte(code)) == nil {
		return true, nil
	}

	fails, err := s.users.IncrementPasswordResetFails(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("count otp failure: %w", err)
	}
	if fails >= MaxFailures {
		if err := s.Clear(ctx, userID); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *DBStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.users.SetPasswordResetOTP(ctx, userID, nil, nil)
}
