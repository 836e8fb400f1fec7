package ledger

import "errors"

var (
	// ErrManualNumberRequired indicates scope "none" and no caller-supplied number.
	ErrManualNumberRequired = errors.New("ledger: manual voucher number required")
	// ErrDuplicateVoucherNumber indicates the number is already in use for the ledger.
	ErrDuplicateVoucherNumber = errors.New("ledger: duplicate voucher number")
	// ErrLedgerNotFound indicates a missing ledger record.
	ErrLedgerNotFound = errors.New("ledger: not found")
	// ErrBranchNotFound indicates a missing branch record.
	ErrBranchNotFound = errors.New("ledger: branch not found")
	// ErrNoCounterScope indicates the scope maintains no automatic counter.
	ErrNoCounterScope = errors.New("ledger: numbering scope has no counter")
)
