// Package otp issues and checks the one-time codes used for password reset.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Length is the number of decimal digits in a code.
const Length = 6

// MaxFailures is the number of wrong codes after which a pending code is
// discarded and a new one must be requested.
const MaxFailures = 5

// Store keeps at most one pending code per user. Codes are stored hashed and
// expire after the ttl given to Save.
type Store interface {
	Save(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error
	// Verify reports whether code matches the pending, unexpired code of userID.
	// Each miss counts against MaxFailures.
	Verify(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

var maxCode = big.NewInt(1_000_000)

// Generate returns a uniformly random zero-padded 6 digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, maxCode)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}
