package fiscal

import "errors"

var (
	// ErrNoPeriodsDefined indicates the fiscal year has no periods at all.
	ErrNoPeriodsDefined = errors.New("fiscal: no periods defined for fiscal year")
	// ErrDateOutsidePeriods indicates no period range contains the date.
	ErrDateOutsidePeriods = errors.New("fiscal: date falls outside all periods")
	// ErrPeriodClosed indicates the acting user may not post into the period.
	ErrPeriodClosed = errors.New("fiscal: period closed for user")
	// ErrExceptionNotFound indicates no exception exists for the user on the period.
	ErrExceptionNotFound = errors.New("fiscal: period exception not found")
)
