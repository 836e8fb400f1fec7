package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/currency"
)

// UniquenessScope enumerates the partition under which voucher numbers run.
type UniquenessScope string

const (
	ScopeNone   UniquenessScope = "none"
	ScopeLedger UniquenessScope = "ledger"
	ScopeBranch UniquenessScope = "branch"
)

// NumberingConfig holds a ledger's voucher numbering settings. It is
// decoded once at the repository boundary from the stored JSON blob.
type NumberingConfig struct {
	Scope     UniquenessScope `json:"uniqueness_scope"`
	ResetYear bool            `json:"reset_year"`
}

// DecodeNumberingConfig parses and validates the stored numbering blob.
func DecodeNumberingConfig(raw []byte) (NumberingConfig, error) {
	var cfg NumberingConfig
	if len(raw) == 0 {
		cfg.Scope = ScopeNone
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return NumberingConfig{}, fmt.Errorf("ledger: decode numbering config: %w", err)
	}
	switch cfg.Scope {
	case ScopeNone, ScopeLedger, ScopeBranch:
	default:
		return NumberingConfig{}, fmt.Errorf("ledger: invalid uniqueness scope %q", cfg.Scope)
	}
	return cfg, nil
}

// Ledger models a document book with its own currency and numbering rules.
type Ledger struct {
	ID          int64
	Title       string
	Currency    string
	StructureID int64
	Precision   int32
	Numbering   NumberingConfig
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateCurrency checks the ledger currency is a well-formed ISO 4217 code.
func (l Ledger) ValidateCurrency() error {
	if _, err := currency.ParseISO(l.Currency); err != nil {
		return fmt.Errorf("ledger: currency %q: %w", l.Currency, err)
	}
	return nil
}

// Branch represents an organizational branch used for numbering scopes.
type Branch struct {
	ID        int64
	Title     string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
