package fiscal

import (
	"context"
	"errors"
	"time"
)

// Gate decides which period a document date falls into and whether the
// acting user may write to it. Reads only, no side effects.
type Gate struct {
	repo Repository
}

func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// Resolve returns the period of the fiscal year whose range contains date.
func (g *Gate) Resolve(ctx context.Context, date time.Time, fiscalYearID int64) (Period, error) {
	periods, err := g.repo.ListPeriods(ctx, fiscalYearID)
	if err != nil {
		return Period{}, err
	}
	if len(periods) == 0 {
		return Period{}, ErrNoPeriodsDefined
	}
	for _, p := range periods {
		if p.Contains(date) {
			return p, nil
		}
	}
	return Period{}, ErrDateOutsidePeriods
}

// Authorize reports whether the user may post into the period. An open
// period admits everyone; otherwise a matching exception is required.
func (g *Gate) Authorize(ctx context.Context, period Period, userID int64) error {
	if period.Status == PeriodStatusOpen {
		return nil
	}
	exc, err := g.repo.GetException(ctx, period.ID, userID)
	if err != nil {
		if errors.Is(err, ErrExceptionNotFound) {
			return ErrPeriodClosed
		}
		return err
	}
	if exc.Allows(period.Status) {
		return nil
	}
	return ErrPeriodClosed
}
