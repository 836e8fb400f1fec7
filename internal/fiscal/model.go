package fiscal

import "time"

// PeriodStatus enumerates valid fiscal period states.
type PeriodStatus string

const (
	PeriodStatusNotOpen PeriodStatus = "NOT_OPEN"
	PeriodStatusOpen    PeriodStatus = "OPEN"
	PeriodStatusClosed  PeriodStatus = "CLOSED"
)

// Period represents a posting window inside a fiscal year. Years exist only
// as the id periods hang off; vouchers reference them by FiscalYearID.
type Period struct {
	ID           int64
	FiscalYearID int64
	Code         string
	Title        string
	StartDate    time.Time
	EndDate      time.Time
	Status       PeriodStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contains reports whether the date falls inside the period's inclusive range.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// Exception grants a named user posting rights into a period whose own
// status would otherwise forbid it.
type Exception struct {
	PeriodID        int64
	UserID          int64
	AllowedStatuses []PeriodStatus
}

// Allows reports whether the exception covers the given period status.
func (e Exception) Allows(status PeriodStatus) bool {
	for _, s := range e.AllowedStatuses {
		if s == status {
			return true
		}
	}
	return false
}
