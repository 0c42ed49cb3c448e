package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Tracked field names, as they appear in history change records.
const (
	FieldProductName = "productName"
	FieldQuantity    = "quantity"
	FieldEntryDate   = "entryDate"
)

// Report is one dated quantity entry for a product.
//
// EntryDate holds a calendar date at midnight UTC (postgres `date`); its
// Y-M-D is the date, independent of any zone. History is kept on the row
// itself so that field values and the audit trail are written together.
type Report struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductName         string         `gorm:"type:varchar(255);not null;index"`
	Quantity            int            `gorm:"type:int;not null"`
	EntryDate           time.Time      `gorm:"type:date;not null;index"`
	SubmittedBy         uuid.UUID      `gorm:"type:uuid;not null;index"`
	SubmittedByUsername string         `gorm:"type:varchar(255);not null"`
	History             []HistoryEntry `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt           time.Time      `gorm:"index"`
	UpdatedAt           time.Time
}

// EntryDateKey returns the entry date as YYYY-MM-DD.
func (r *Report) EntryDateKey() string {
	return r.EntryDate.Format(DateLayout)
}

// HistoryEntry is one immutable audit record of an edit.
type HistoryEntry struct {
	ModifiedAt time.Time     `json:"modifiedAt"`
	ModifiedBy string        `json:"modifiedBy"`
	Changes    ReportChanges `json:"changes"`
}

// ReportChanges holds a from/to pair for each tracked field that changed.
// A nil pair means the field was not changed by the edit.
type ReportChanges struct {
	ProductName *StringChange `json:"productName,omitempty"`
	Quantity    *IntChange    `json:"quantity,omitempty"`
	EntryDate   *StringChange `json:"entryDate,omitempty"`
}

type StringChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type IntChange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (c ReportChanges) IsEmpty() bool {
	return c.ProductName == nil && c.Quantity == nil && c.EntryDate == nil
}

// Fields lists the names of the changed fields in a fixed order.
func (c ReportChanges) Fields() []string {
	var out []string
	if c.ProductName != nil {
		out = append(out, FieldProductName)
	}
	if c.Quantity != nil {
		out = append(out, FieldQuantity)
	}
	if c.EntryDate != nil {
		out = append(out, FieldEntryDate)
	}
	return out
}

// ReportFilter selects reports by exact product name and an inclusive entry-date range.
// Zero values mean "no constraint".
type ReportFilter struct {
	ProductName string
	StartDate   *time.Time
	EndDate     *time.Time
}

// ProductTotal is one row of the per-product quantity summary.
type ProductTotal struct {
	ProductName   string `json:"productName"`
	TotalQuantity int64  `json:"totalQuantity"`
}
