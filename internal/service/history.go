package service

import (
	"time"

	"stockreport/internal/model"
)

// ReportPatch holds the normalised values of an update. A nil field was not
// supplied by the caller and is left untouched.
type ReportPatch struct {
	ProductName *string
	Quantity    *int
	EntryDate   *time.Time
}

// DiffReport returns a change for every supplied field whose value differs from
// the stored one. Quantities compare as integers, entry dates as YYYY-MM-DD and
// product names as exact text.
func DiffReport(existing *model.Report, patch ReportPatch) model.ReportChanges {
	var changes model.ReportChanges

	if patch.ProductName != nil && *patch.ProductName != existing.ProductName {
		changes.ProductName = &model.StringChange{From: existing.ProductName, To: *patch.ProductName}
	}
	if patch.Quantity != nil && *patch.Quantity != existing.Quantity {
		changes.Quantity = &model.IntChange{From: existing.Quantity, To: *patch.Quantity}
	}
	if patch.EntryDate != nil {
		from := existing.EntryDateKey()
		to := patch.EntryDate.Format(model.DateLayout)
		if from != to {
			changes.EntryDate = &model.StringChange{From: from, To: to}
		}
	}

	return changes
}

// AppendHistory returns history with one entry for changes added at the end, or
// history itself when nothing changed. The input slice is never written to.
func AppendHistory(history []model.HistoryEntry, changes model.ReportChanges, editor string, now time.Time) []model.HistoryEntry {
	if changes.IsEmpty() {
		return history
	}
	out := make([]model.HistoryEntry, len(history), len(history)+1)
	copy(out, history)
	return append(out, model.HistoryEntry{
		ModifiedAt: now,
		ModifiedBy: editor,
		Changes:    changes,
	})
}

// applyPatch copies the supplied values onto report.
func applyPatch(report *model.Report, patch ReportPatch) {
	if patch.ProductName != nil {
		report.ProductName = *patch.ProductName
	}
	if patch.Quantity != nil {
		report.Quantity = *patch.Quantity
	}
	if patch.EntryDate != nil {
		report.EntryDate = *patch.EntryDate
	}
}
