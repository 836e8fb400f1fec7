package voucher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusDraft},
		{StatusDraft, StatusTemporary},
		{StatusTemporary, StatusTemporary},
		{StatusTemporary, StatusReviewed},
		{StatusTemporary, StatusDraft},
		{StatusReviewed, StatusFinal},
	}
	for _, tc := range allowed {
		require.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusDraft, StatusReviewed},
		{StatusDraft, StatusFinal},
		{StatusTemporary, StatusFinal},
		{StatusReviewed, StatusDraft},
		{StatusReviewed, StatusTemporary},
		{StatusReviewed, StatusReviewed},
		{StatusFinal, StatusDraft},
		{StatusFinal, StatusReviewed},
		{StatusFinal, StatusFinal},
	}
	for _, tc := range denied {
		require.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestStatusEditable(t *testing.T) {
	require.True(t, StatusDraft.Editable())
	require.True(t, StatusTemporary.Editable())
	require.False(t, StatusReviewed.Editable())
	require.False(t, StatusFinal.Editable())
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusDraft.Valid())
	require.False(t, Status("POSTED").Valid())
}

func TestStatusBindsBalance(t *testing.T) {
	require.False(t, StatusDraft.BindsBalance())
	require.True(t, StatusTemporary.BindsBalance())
	require.True(t, StatusReviewed.BindsBalance())
	require.True(t, StatusFinal.BindsBalance())
}
