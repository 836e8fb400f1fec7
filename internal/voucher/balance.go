package voucher

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Totals aggregates debit and credit sums across a voucher's items.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Difference returns totalDebit - totalCredit.
func (t Totals) Difference() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

// Evaluate sums debit and credit across all items, rounded to the ledger's
// declared precision.
func Evaluate(items []Item, precision int32) Totals {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, item := range items {
		debit = debit.Add(item.Debit)
		credit = credit.Add(item.Credit)
	}
	return Totals{
		Debit:  debit.Round(precision),
		Credit: credit.Round(precision),
	}
}

// CheckInvariant enforces the double-entry rule for the target status.
// Draft vouchers are exempt from balance but never from the zero-total rule.
func CheckInvariant(totals Totals, target Status) error {
	if totals.Debit.IsZero() && totals.Credit.IsZero() {
		return ErrZeroTotal
	}
	if target.BindsBalance() && !totals.Debit.Equal(totals.Credit) {
		return &UnbalancedError{Difference: totals.Difference()}
	}
	return nil
}

// AutoBalance assigns the outstanding difference to the first all-zero line
// in row order, or appends a new line carrying it. It is a user-invoked
// assist, never part of save validation, and a second call with no
// intervening edits is a no-op.
func AutoBalance(items []Item) []Item {
	diff := Evaluate(items, int32(decimal.DivisionPrecision)).Difference()
	if diff.IsZero() {
		return items
	}
	ordered := make([]int, len(items))
	for i := range items {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return items[ordered[a]].RowOrder < items[ordered[b]].RowOrder
	})
	for _, idx := range ordered {
		if items[idx].Debit.IsZero() && items[idx].Credit.IsZero() {
			if diff.IsNegative() {
				items[idx].Debit = diff.Abs()
			} else {
				items[idx].Credit = diff
			}
			return items
		}
	}
	maxRow := 0
	for _, item := range items {
		if item.RowOrder > maxRow {
			maxRow = item.RowOrder
		}
	}
	appended := Item{RowOrder: maxRow + 1}
	if diff.IsNegative() {
		appended.Debit = diff.Abs()
	} else {
		appended.Credit = diff
	}
	return append(items, appended)
}
