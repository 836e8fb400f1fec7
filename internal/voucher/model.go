package voucher

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates voucher lifecycle values.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusTemporary Status = "TEMPORARY"
	StatusReviewed  Status = "REVIEWED"
	StatusFinal     Status = "FINAL"
)

// transitions is the explicit state machine: a self-edge means the voucher
// may be re-saved in place. Reviewed and final vouchers accept no edits
// through this engine.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusDraft, StatusTemporary},
	StatusTemporary: {StatusTemporary, StatusReviewed, StatusDraft},
	StatusReviewed:  {StatusFinal},
	StatusFinal:     {},
}

// Valid reports whether the status is a known lifecycle value.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from s to target is allowed.
func (s Status) CanTransition(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Editable reports whether header fields and items may still change.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusTemporary
}

// BindsBalance reports whether the double-entry invariant applies. Draft is
// the explicit work-in-progress escape hatch.
func (s Status) BindsBalance() bool {
	return s != StatusDraft
}

// Item is a single debit or credit line of a voucher.
type Item struct {
	ID             int64
	VoucherID      int64
	RowOrder       int
	AccountID      int64
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	CurrencyCode   string
	Dimensions     map[int64]int64
	TrackingNumber string
	TrackingDate   *time.Time
	Quantity       decimal.Decimal
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Voucher is a journal entry header grouping balanced debit/credit lines.
// FiscalYearID stores the fiscal year; the concrete period is resolved at
// save time from the document date.
type Voucher struct {
	ID               int64
	Ref              uuid.UUID
	Date             time.Time
	Status           Status
	BranchID         int64
	LedgerID         int64
	FiscalYearID     int64
	Number           string
	DailyNumber      int64
	CrossRef         int64
	SubsidiaryNumber string
	TotalDebit       decimal.Decimal
	TotalCredit      decimal.Decimal
	Description      string
	CreatedBy        int64
	ReviewedBy       *int64
	ApprovedBy       *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Items            []Item
}
