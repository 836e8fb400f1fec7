package coa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryAccountRepo struct {
	accounts map[int64]Account
	getCalls int
}

func (r *memoryAccountRepo) GetAccount(ctx context.Context, id int64) (Account, error) {
	r.getCalls++
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (r *memoryAccountRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	for _, acc := range r.accounts {
		out = append(out, acc)
	}
	return out, nil
}

func TestResolverRequiredDimensions(t *testing.T) {
	repo := &memoryAccountRepo{accounts: map[int64]Account{
		1: {ID: 1, Meta: Metadata{DimensionTypes: []int64{101, 102}}},
		2: {ID: 2},
	}}
	resolver := NewResolver(repo)

	dims, err := resolver.RequiredDimensions(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []int64{101, 102}, dims)

	dims, err = resolver.RequiredDimensions(context.Background(), 2)
	require.NoError(t, err)
	require.Empty(t, dims)

	_, err = resolver.RequiredDimensions(context.Background(), 99)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestResolverFeatureProjections(t *testing.T) {
	repo := &memoryAccountRepo{accounts: map[int64]Account{
		1: {ID: 1, Meta: Metadata{TrackFeature: true, TrackMandatory: true, QtyFeature: true}},
		2: {ID: 2, Meta: Metadata{TrackFeature: true, QtyFeature: true, QtyMandatory: true}},
	}}
	resolver := NewResolver(repo)

	tracking, err := resolver.RequiresTracking(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, tracking)

	// feature enabled but not mandatory
	tracking, err = resolver.RequiresTracking(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, tracking)

	qty, err := resolver.RequiresQuantity(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, qty)

	qty, err = resolver.RequiresQuantity(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, qty)
}

func TestResolverServesAccountsFromArena(t *testing.T) {
	repo := &memoryAccountRepo{accounts: map[int64]Account{
		1: {ID: 1, Code: "1", Meta: Metadata{DimensionTypes: []int64{101}, TrackFeature: true, TrackMandatory: true}},
	}}
	resolver := NewResolver(repo)

	// first lookup misses the arena and hits the repository once
	dims, err := resolver.RequiredDimensions(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []int64{101}, dims)
	require.Equal(t, 1, repo.getCalls)

	// subsequent projections on the same account are served from the arena
	_, err = resolver.RequiredDimensions(context.Background(), 1)
	require.NoError(t, err)
	_, err = resolver.RequiresTracking(context.Background(), 1)
	require.NoError(t, err)
	_, err = resolver.RequiresQuantity(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, repo.getCalls)
}

func TestResolverWarmUpPreloadsArena(t *testing.T) {
	repo := &memoryAccountRepo{accounts: map[int64]Account{
		1: {ID: 1, Code: "1"},
		2: {ID: 2, Code: "2", Meta: Metadata{QtyFeature: true, QtyMandatory: true}},
	}}
	resolver := NewResolver(repo)
	require.NoError(t, resolver.WarmUp(context.Background()))

	qty, err := resolver.RequiresQuantity(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, qty)
	require.Zero(t, repo.getCalls)
}

func TestDecodeMetadata(t *testing.T) {
	meta, err := DecodeMetadata(nil)
	require.NoError(t, err)
	require.Empty(t, meta.DimensionTypes)
	require.Equal(t, NatureControlNone, meta.NatureControl)

	meta, err = DecodeMetadata([]byte(`{"tafsils":[5,6],"track_feature":true,"track_mandatory":true,"nature_control":"block","currency_code":"USD"}`))
	require.NoError(t, err)
	require.Equal(t, []int64{5, 6}, meta.DimensionTypes)
	require.True(t, meta.TrackMandatory)
	require.Equal(t, NatureControlBlock, meta.NatureControl)
	require.Equal(t, "USD", meta.CurrencyCode)

	_, err = DecodeMetadata([]byte(`{"nature_control":"shout"}`))
	require.Error(t, err)
}

func TestArenaLookupsAndAncestors(t *testing.T) {
	root := Account{ID: 1, Code: "1"}
	child := Account{ID: 2, Code: "1.1", ParentID: &root.ID}
	leaf := Account{ID: 3, Code: "1.1.1", ParentID: &child.ID}
	arena := NewArena([]Account{root, child, leaf})

	require.Equal(t, 3, arena.Len())

	got, ok := arena.Get(3)
	require.True(t, ok)
	require.Equal(t, "1.1.1", got.Code)

	got, ok = arena.GetByCode("1.1")
	require.True(t, ok)
	require.Equal(t, int64(2), got.ID)

	ancestors := arena.Ancestors(3)
	require.Len(t, ancestors, 2)
	require.Equal(t, int64(2), ancestors[0].ID)
	require.Equal(t, int64(1), ancestors[1].ID)

	require.Empty(t, arena.Ancestors(1))
	require.Nil(t, arena.Ancestors(99))
}
