package coa

import (
	"context"
	"sync"
)

// Resolver derives, per account, which auxiliary dimensions and optional
// features (tracking, quantity) a voucher line must carry. Accounts are
// served from an Arena filled lazily from the repository, so validating a
// multi-line voucher does not re-query the store per line. Account metadata
// mutates only through chart administration; stale entries clear on restart
// or an explicit WarmUp.
type Resolver struct {
	repo Repository

	mu    sync.RWMutex
	arena *Arena
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo, arena: NewArena(nil)}
}

// WarmUp loads the full chart of accounts into the arena.
func (r *Resolver) WarmUp(ctx context.Context) error {
	accounts, err := r.repo.ListAccounts(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.arena = NewArena(accounts)
	r.mu.Unlock()
	return nil
}

// Account fetches the account record behind the resolver's projections.
func (r *Resolver) Account(ctx context.Context, accountID int64) (Account, error) {
	r.mu.RLock()
	acc, ok := r.arena.Get(accountID)
	r.mu.RUnlock()
	if ok {
		return acc, nil
	}
	acc, err := r.repo.GetAccount(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	r.mu.Lock()
	r.arena.Put(acc)
	r.mu.Unlock()
	return acc, nil
}

// RequiredDimensions returns the dimension-type ids the account declares.
// An account with no declared dimensions returns the empty set; dimensions
// are then optional for its lines.
func (r *Resolver) RequiredDimensions(ctx context.Context, accountID int64) ([]int64, error) {
	acc, err := r.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return acc.Meta.DimensionTypes, nil
}

// RequiresTracking reports whether lines on this account must carry a
// tracking number and date.
func (r *Resolver) RequiresTracking(ctx context.Context, accountID int64) (bool, error) {
	acc, err := r.Account(ctx, accountID)
	if err != nil {
		return false, err
	}
	return acc.Meta.TrackFeature && acc.Meta.TrackMandatory, nil
}

// RequiresQuantity reports whether lines on this account must carry a
// positive quantity.
func (r *Resolver) RequiresQuantity(ctx context.Context, accountID int64) (bool, error) {
	acc, err := r.Account(ctx, accountID)
	if err != nil {
		return false, err
	}
	return acc.Meta.QtyFeature && acc.Meta.QtyMandatory, nil
}
