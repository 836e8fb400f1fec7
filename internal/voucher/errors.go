package voucher

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrVoucherNotFound indicates a missing voucher record.
	ErrVoucherNotFound = errors.New("voucher: not found")
	// ErrNotEditable indicates the voucher status forbids changes.
	ErrNotEditable = errors.New("voucher: not editable in current status")
	// ErrNotDeletable indicates the voucher status forbids deletion.
	ErrNotDeletable = errors.New("voucher: not deletable in current status")
	// ErrInvalidTransition indicates a disallowed status change.
	ErrInvalidTransition = errors.New("voucher: invalid status transition")
	// ErrZeroTotal indicates both debit and credit totals are zero.
	ErrZeroTotal = errors.New("voucher: debit and credit totals are both zero")
	// ErrDuplicateSubsidiaryNumber indicates the subsidiary number is taken
	// within the fiscal year.
	ErrDuplicateSubsidiaryNumber = errors.New("voucher: duplicate subsidiary number")
)

// LineErrorKind enumerates per-row validation failures.
type LineErrorKind string

const (
	LineErrMissingRequiredField LineErrorKind = "missing_required_field"
	LineErrDualEntry            LineErrorKind = "dual_entry_on_same_line"
	LineErrUnknownAccount       LineErrorKind = "unknown_account"
	LineErrInvalidCurrency      LineErrorKind = "invalid_currency"
	LineErrMissingDimension     LineErrorKind = "missing_dimension"
	LineErrMissingTracking      LineErrorKind = "missing_tracking"
	LineErrMissingQuantity      LineErrorKind = "missing_quantity"
)

// LineError reports a validation failure on a specific item row.
type LineError struct {
	Kind          LineErrorKind
	Row           int
	DimensionType int64
}

func (e *LineError) Error() string {
	if e.Kind == LineErrMissingDimension {
		return fmt.Sprintf("voucher: row %d: missing dimension %d", e.Row, e.DimensionType)
	}
	return fmt.Sprintf("voucher: row %d: %s", e.Row, e.Kind)
}

// UnbalancedError reports the signed difference between debit and credit
// totals when the balance invariant is violated.
type UnbalancedError struct {
	Difference decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("voucher: unbalanced by %s", e.Difference.String())
}
