package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"stockreport/internal/model"
)

// Quantity accepts a JSON number or a numeric string ("05", " 7 ") and holds it
// as an integer, so equal values compare equal whatever their spelling.
type Quantity int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
	}
	n, err := parseWholeNumber(string(raw))
	if err != nil {
		return err
	}
	*q = Quantity(n)
	return nil
}

func parseWholeNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("quantity out of range, got %q", s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("quantity must be a valid number, got %q", s)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("quantity must be a whole number, got %q", s)
	}
	return int(f), nil
}

type CreateReportRequest struct {
	ProductName string    `json:"productName" validate:"required"`
	Quantity    *Quantity `json:"quantity" validate:"required"`
	EntryDate   string    `json:"entryDate" validate:"required"`
}

// UpdateReportRequest is a partial update; omitted or null fields are left as is.
type UpdateReportRequest struct {
	ProductName *string   `json:"productName"`
	Quantity    *Quantity `json:"quantity"`
	EntryDate   *string   `json:"entryDate"`
}

// ReportQuery is the raw filter as received on the query string.
type ReportQuery struct {
	Product   string `form:"product"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type ReportResponse struct {
	ID                  string               `json:"id"`
	ProductName         string               `json:"productName"`
	Quantity            int                  `json:"quantity"`
	EntryDate           string               `json:"entryDate"`
	SubmittedBy         string               `json:"submittedBy"`
	SubmittedByUsername string               `json:"submittedByUsername"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
	History             []model.HistoryEntry `json:"history"`
	Editable            bool                 `json:"editable"`
	LockedAt            time.Time            `json:"lockedAt"`
}

type SummaryResponse struct {
	QuantityByProduct []model.ProductTotal `json:"quantityByProduct"`
}

func mapReport(r *model.Report, now time.Time) ReportResponse {
	history := r.History
	if history == nil {
		history = []model.HistoryEntry{}
	}
	return ReportResponse{
		ID:                  r.ID.String(),
		ProductName:         r.ProductName,
		Quantity:            r.Quantity,
		EntryDate:           r.EntryDateKey(),
		SubmittedBy:         r.SubmittedBy.String(),
		SubmittedByUsername: r.SubmittedByUsername,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		History:             history,
		Editable:            IsMutable(r.CreatedAt, now),
		LockedAt:            LockTime(r.CreatedAt),
	}
}
