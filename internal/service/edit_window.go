package service

import (
	"errors"
	"strings"
	"time"

	"stockreport/internal/model"
)

// EditWindow is how long after creation a report may still be changed or removed.
const EditWindow = 48 * time.Hour

// IsMutable reports whether a report created at createdAt may still be modified
// at now. The comparison is on absolute instants; exactly 48h is still mutable.
func IsMutable(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= EditWindow
}

// LockTime is the instant after which a report created at createdAt is locked.
func LockTime(createdAt time.Time) time.Time {
	return createdAt.Add(EditWindow)
}

// CalendarDate returns the calendar date of t as seen in loc, as midnight UTC.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// IsValidEntryDate reports whether date (a calendar date, see CalendarDate) is
// today or yesterday according to the server clock in loc.
func IsValidEntryDate(date, now time.Time, loc *time.Location) bool {
	today := CalendarDate(now, loc)
	yesterday := today.AddDate(0, 0, -1)
	d := date.Format(model.DateLayout)
	return d == today.Format(model.DateLayout) || d == yesterday.Format(model.DateLayout)
}

var errEntryDateFormat = errors.New("entry date must be YYYY-MM-DD or an RFC 3339 timestamp")

// ParseEntryDate normalises client input to a calendar date. A bare YYYY-MM-DD is
// taken as that day; timestamps are converted to loc before the time is dropped.
func ParseEntryDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(model.DateLayout, s); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return CalendarDate(t, loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return CalendarDate(t, loc), nil
	}
	return time.Time{}, errEntryDateFormat
}
