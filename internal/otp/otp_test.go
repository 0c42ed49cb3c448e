package otp

import (
	"context"
	"regexp"
	"testing"
	"time"

	"stockreport/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGenerate(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 150, "codes should not repeat often")
}

type stubUsers struct {
	user *model.User
}

func (s *stubUsers) Create(context.Context, *model.User) error { return nil }

func (s *stubUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	c := *s.user
	return &c, nil
}

func (s *stubUsers) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsers) GetByUsername(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsers) SetPasswordResetOTP(_ context.Context, _ uuid.UUID, otpHash *string, expires *time.Time) error {
	s.user.PasswordResetOTP = otpHash
	s.user.PasswordResetExpires = expires
	s.user.PasswordResetFails = 0
	return nil
}

func (s *stubUsers) IncrementPasswordResetFails(context.Context, uuid.UUID) (int, error) {
	s.user.PasswordResetFails++
	return s.user.PasswordResetFails, nil
}

func (s *stubUsers) UpdatePassword(context.Context, uuid.UUID, string) error { return nil }

func TestDBStore(t *testing.T) {
	user := &model.User{ID: uuid.New()}
	store := NewDBStore(&stubUsers{user: user})
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := store.Verify(ctx, user.ID, "123456")
	require.NoError(t, err)
	assert.False(t, ok, "no pending code")

	require.NoError(t, store.Save(ctx, user.ID, "123456", 10*time.Minute))
	require.NotNil(t, user.PasswordResetOTP)
	assert.NotEqual(t, "123456", *user.PasswordResetOTP, "code is stored hashed")

	ok, err = store.Verify(ctx, user.ID, "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Verify(ctx, user.ID, "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(10*time.Minute + time.Second)
	ok, err = store.Verify(ctx, user.ID, "123456")
	require.NoError(t, err)
	assert.False(t, ok, "expired")

	require.NoError(t, store.Clear(ctx, user.ID))
	assert.Nil(t, user.PasswordResetOTP)
	assert.Nil(t, user.PasswordResetExpires)
}

func TestDBStore_DiscardsCodeAfterMaxFailures(t *testing.T) {
	user := &model.User{ID: uuid.New()}
	store := NewDBStore(&stubUsers{user: user})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, user.ID, "123456", 10*time.Minute))

	for i := 1; i < MaxFailures; i++ {
		ok, err := store.Verify(ctx, user.ID, "000000")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, i, user.PasswordResetFails)
	}
	ok, err := store.Verify(ctx, user.ID, "123456")
	require.NoError(t, err)
	assert.True(t, ok, "right code still accepted below the limit")

	require.NoError(t, store.Save(ctx, user.ID, "123456", 10*time.Minute))
	assert.Zero(t, user.PasswordResetFails, "a new code starts a new count")
	for i := 0; i < MaxFailures; i++ {
		_, err := store.Verify(ctx, user.ID, "000000")
		require.NoError(t, err)
	}
	assert.Nil(t, user.PasswordResetOTP, "code discarded at the limit")

	ok, err = store.Verify(ctx, user.ID, "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}
