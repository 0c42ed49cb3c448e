package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleGeneral  = "general"
	RoleOfficial = "official"
)

// User is an account that can read reports (general) or submit them (official).
type User struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username             string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email                string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password             string     `gorm:"type:varchar(255);not null" json:"-"`
	Role                 string     `gorm:"type:varchar(20);not null;default:'general'" json:"role"`
	PasswordResetOTP     *string    `gorm:"type:varchar(255)" json:"-"` // bcrypt hash of the pending OTP
	PasswordResetExpires *time.Time `json:"-"`
	PasswordResetFails   int        `gorm:"not null;default:0" json:"-"` // wrong codes tried against the pending OTP
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ValidRole(role string) bool {
	return role == RoleGeneral || role == RoleOfficial
}

// Identity is the authenticated caller attached to a request by the auth gate.
type Identity struct {
	ID       uuid.UUID
	Username string
	Role     string
}

func (i Identity) IsOfficial() bool {
	return i.Role == RoleOfficial
}
