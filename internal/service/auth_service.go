package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockreport/internal/apperror"
	"stockreport/internal/model"
	"stockreport/internal/otp"
	"stockreport/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Role        string `json:"role" validate:"omitempty,oneof=general official"`
	OfficialKey string `json:"officialKey"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=6"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// ResetCodeSender delivers a password-reset code to the account's address.
type ResetCodeSender interface {
	SendPasswordResetOTP(to, username, code string, ttl time.Duration) error
}

// AuthService issues and verifies bearer tokens and runs the password-reset flow.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, identity model.Identity) (*UserResponse, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	ParseToken(token string) (model.Identity, error)
}

type AuthConfig struct {
	JWTSecret               string
	TokenTTL                time.Duration
	OfficialRegistrationKey string
	OTPTTL                  time.Duration
}

type authService struct {
	users  repository.UserRepository
	codes  otp.Store
	mailer ResetCodeSender
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, codes otp.Store, mailer ResetCodeSender, cfg AuthConfig) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &authService{users: users, codes: codes, mailer: mailer, cfg: cfg, now: time.Now}
}

func mapUser(u *model.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Username: u.Username, Email: u.Email, Role: u.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	role := req.Role
	if role == "" {
		role = model.RoleGeneral
	}
	if !model.ValidRole(role) {
		return nil, apperror.Validation("role must be general or official")
	}
	if role == model.RoleOfficial {
		if s.cfg.OfficialRegistrationKey == "" || req.OfficialKey != s.cfg.OfficialRegistrationKey {
			return nil, apperror.Forbidden("Invalid Official Key.")
		}
	}

	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if username == "" {
		return nil, apperror.Validation("username is required")
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Store("failed to check username", err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Store("failed to check email", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("username or email already exists")
		}
		log.Error().Err(err).Msg("failed to create user")
		return nil, apperror.Store("failed to create user", err)
	}

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Auth("Invalid credentials")
		}
		return nil, apperror.Store("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Auth("Invalid credentials")
	}

	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, identity model.Identity) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Auth("Not authorized, user not found")
		}
		return nil, apperror.Store("failed to load user", err)
	}
	res := mapUser(user)
	return &res, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("User not found")
		}
		return apperror.Store("failed to load user", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return apperror.Store("failed to generate reset code", err)
	}
	if err := s.codes.Save(ctx, user.ID, code, s.cfg.OTPTTL); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to store reset code")
		return apperror.Store("failed to store reset code", err)
	}

	if err := s.mailer.SendPasswordResetOTP(user.Email, user.Username, code, s.cfg.OTPTTL); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send reset code")
		_ = s.codes.Clear(ctx, user.ID)
		return apperror.Store("Error sending email. Please try again.", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("password reset code sent")
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Validation("Invalid or expired OTP")
		}
		return apperror.Store("failed to load user", err)
	}

	ok, err := s.codes.Verify(ctx, user.ID, strings.TrimSpace(req.OTP))
	if err != nil {
		return apperror.Store("failed to verify reset code", err)
	}
	if !ok {
		return apperror.Validation("Invalid or expired OTP")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return apperror.Store("failed to update password", err)
	}
	if err := s.codes.Clear(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to clear reset code")
	}
	return nil
}

func (s *authService) issue(user *model.User) (*AuthResponse, error) {
	expires := s.now().Add(s.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"role":     user.Role,
		"exp":      expires.Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResponse{Token: signed, ExpiresAt: expires, User: mapUser(user)}, nil
}

// ParseToken verifies an HS256 token and returns the identity in its claims.
func (s *authService) ParseToken(tokenString string) (model.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return model.Identity{}, apperror.Auth("Not authorized, token failed")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Identity{}, apperror.Auth("Not authorized, token failed")
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return model.Identity{}, apperror.Auth("Not authorized, token failed")
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if !model.ValidRole(role) {
		return model.Identity{}, apperror.Auth("Not authorized, token failed")
	}

	return model.Identity{ID: id, Username: username, Role: role}, nil
}
