package voucher

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput describes one item row of a save request.
type LineInput struct {
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
}

// SaveInput groups everything needed to create or update a voucher.
// VoucherID zero means first persistence.
type SaveInput struct {
	VoucherID        int64
	Ref              uuid.UUID
	Date             time.Time
	TargetStatus     Status
	LedgerID         int64
	BranchID         int64
	FiscalYearID     int64
	ManualNumber     string
	SubsidiaryNumber string
	Description      string
	ActorID          int64
	Lines            []LineInput
}

// Validate ensures the save input meets minimum shape criteria before any
// rule evaluation or persistence.
func (in SaveInput) Validate() error {
	if in.LedgerID == 0 {
		return errors.New("voucher: ledger required")
	}
	if in.FiscalYearID == 0 {
		return errors.New("voucher: fiscal year required")
	}
	if in.Date.IsZero() {
		return errors.New("voucher: date required")
	}
	if in.ActorID == 0 {
		return errors.New("voucher: acting user required")
	}
	if !in.TargetStatus.Valid() {
		return errors.New("voucher: invalid target status")
	}
	if len(in.Lines) == 0 {
		return errors.New("voucher: at least one line required")
	}
	for _, line := range in.Lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return errors.New("voucher: negative amounts not allowed")
		}
	}
	return nil
}

func (in SaveInput) toItems() []Item {
	items := make([]Item, 0, len(in.Lines))
	for i, line := range in.Lines {
		row := line.RowOrder
		if row == 0 {
			row = i + 1
		}
		items = append(items, Item{
			RowOrder:       row,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			CurrencyCode:   line.CurrencyCode,
			Dimensions:     line.Dimensions,
			TrackingNumber: line.TrackingNumber,
			TrackingDate:   line.TrackingDate,
			Quantity:       line.Quantity,
			Description:    line.Description,
		})
	}
	return items
}

// TransitionInput wraps parameters for a status-only change.
type TransitionInput struct {
	VoucherID    int64
	TargetStatus Status
	ActorID      int64
}

// ListFilter narrows voucher list queries.
type ListFilter struct {
	LedgerID     int64
	FiscalYearID int64
	Status       Status
	DateFrom     *time.Time
	DateTo       *time.Time
}
