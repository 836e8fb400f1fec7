package ledger

import (
	"context"
	"strconv"
	"time"
)

// Allocator computes the next document numbers for a voucher under the
// ledger's numbering configuration. It runs inside the caller's save
// transaction so issued counters commit or roll back with the voucher.
type Allocator struct {
	store Store
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// NextDaily returns one plus the maximum daily number already used on the
// document date, across all ledgers.
func (a *Allocator) NextDaily(ctx context.Context, date time.Time) (int64, error) {
	max, err := a.store.MaxDailyNumber(ctx, date)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// NextCrossRef returns one plus the maximum cross-reference already used
// for the ledger and fiscal year.
func (a *Allocator) NextCrossRef(ctx context.Context, ledgerID, fiscalYearID int64) (int64, error) {
	max, err := a.store.MaxCrossRef(ctx, ledgerID, fiscalYearID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// NextVoucherNumber issues the voucher number under the ledger's scope, or
// validates the manually supplied one when the scope is "none".
func (a *Allocator) NextVoucherNumber(ctx context.Context, led Ledger, fiscalYearID, branchID int64, manual string) (string, error) {
	if led.Numbering.Scope == ScopeNone {
		if manual == "" {
			return "", ErrManualNumberRequired
		}
		exists, err := a.store.NumberExists(ctx, led.ID, manual)
		if err != nil {
			return "", err
		}
		if exists {
			return "", ErrDuplicateVoucherNumber
		}
		return manual, nil
	}
	key, err := CounterKey(led.Numbering, fiscalYearID, branchID)
	if err != nil {
		return "", err
	}
	next, err := a.store.NextCounter(ctx, led.ID, key)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(next, 10), nil
}
