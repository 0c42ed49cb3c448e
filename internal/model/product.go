package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is an entry of the master list that reports refer to by name.
// Names are unique ignoring case; see database.applySchemaPatches.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
