package voucher

import (
	"context"
	"errors"

	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian/internal/coa"
)

// AccountRules projects the dimension and feature requirements an account
// places on its lines. Implemented by coa.Resolver.
type AccountRules interface {
	RequiredDimensions(ctx context.Context, accountID int64) ([]int64, error)
	RequiresTracking(ctx context.Context, accountID int64) (bool, error)
	RequiresQuantity(ctx context.Context, accountID int64) (bool, error)
}

// LineValidator checks a single item row against entry rules and the
// account's dimensional requirements. Rules run in order and short-circuit
// on the first failure.
type LineValidator struct {
	rules AccountRules
}

func NewLineValidator(rules AccountRules) *LineValidator {
	return &LineValidator{rules: rules}
}

func (v *LineValidator) Validate(ctx context.Context, row int, item Item) error {
	if item.Description == "" || item.AccountID == 0 {
		return &LineError{Kind: LineErrMissingRequiredField, Row: row}
	}
	if item.Debit.IsPositive() && item.Credit.IsPositive() {
		return &LineError{Kind: LineErrDualEntry, Row: row}
	}
	if item.CurrencyCode != "" {
		if _, err := currency.ParseISO(item.CurrencyCode); err != nil {
			return &LineError{Kind: LineErrInvalidCurrency, Row: row}
		}
	}
	required, err := v.rules.RequiredDimensions(ctx, item.AccountID)
	if err != nil {
		if errors.Is(err, coa.ErrAccountNotFound) {
			return &LineError{Kind: LineErrUnknownAccount, Row: row}
		}
		return err
	}
	for _, dimType := range required {
		if item.Dimensions[dimType] == 0 {
			return &LineError{Kind: LineErrMissingDimension, Row: row, DimensionType: dimType}
		}
	}
	needsTracking, err := v.rules.RequiresTracking(ctx, item.AccountID)
	if err != nil {
		return err
	}
	if needsTracking && (item.TrackingNumber == "" || item.TrackingDate == nil) {
		return &LineError{Kind: LineErrMissingTracking, Row: row}
	}
	needsQty, err := v.rules.RequiresQuantity(ctx, item.AccountID)
	if err != nil {
		return err
	}
	if needsQty && !item.Quantity.IsPositive() {
		return &LineError{Kind: LineErrMissingQuantity, Row: row}
	}
	return nil
}
