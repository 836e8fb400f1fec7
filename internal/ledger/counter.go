package ledger

import "fmt"

// CounterKey returns the partition key under which a ledger's voucher
// sequence runs. Scope "none" maintains no counter.
func CounterKey(cfg NumberingConfig, fiscalYearID, branchID int64) (string, error) {
	switch cfg.Scope {
	case ScopeLedger:
		if cfg.ResetYear {
			return fmt.Sprintf("fy:%d", fiscalYearID), nil
		}
		return "global", nil
	case ScopeBranch:
		if cfg.ResetYear {
			return fmt.Sprintf("fy:%d/br:%d", fiscalYearID, branchID), nil
		}
		return fmt.Sprintf("br:%d", branchID), nil
	case ScopeNone:
		return "", ErrNoCounterScope
	default:
		return "", fmt.Errorf("ledger: invalid uniqueness scope %q", cfg.Scope)
	}
}
