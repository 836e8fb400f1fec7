package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityFinding describes one voucher that violates the balance
// invariant despite having left draft.
type IntegrityFinding struct {
	VoucherID   int64
	Number      string
	Status      string
	TotalDebit  string
	TotalCredit string
}

// RunVoucherIntegrityScan checks every non-draft voucher for the
// double-entry invariant: item debits equal item credits and the sum is
// nonzero. Findings are logged; the engine never mutates them here.
func RunVoucherIntegrityScan(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger, fiscalYearID int64) ([]IntegrityFinding, error) {
	query := `SELECT v.id, v.number, v.status,
COALESCE(SUM(i.debit),0)::text, COALESCE(SUM(i.credit),0)::text
FROM vouchers v
LEFT JOIN voucher_items i ON i.voucher_id = v.id
WHERE v.status <> 'DRAFT'`
	var args []any
	if fiscalYearID != 0 {
		args = append(args, fiscalYearID)
		query += ` AND v.fiscal_year_id=$1`
	}
	query += `
GROUP BY v.id, v.number, v.status
HAVING COALESCE(SUM(i.debit),0) <> COALESCE(SUM(i.credit),0) OR COALESCE(SUM(i.debit),0) = 0
ORDER BY v.id`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var findings []IntegrityFinding
	for rows.Next() {
		var f IntegrityFinding
		if err := rows.Scan(&f.VoucherID, &f.Number, &f.Status, &f.TotalDebit, &f.TotalCredit); err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if logger != nil {
		for _, f := range findings {
			logger.Warn("voucher violates balance invariant",
				slog.Int64("voucher_id", f.VoucherID),
				slog.String("number", f.Number),
				slog.String("status", f.Status),
				slog.String("total_debit", f.TotalDebit),
				slog.String("total_credit", f.TotalCredit))
		}
		logger.Info("voucher integrity scan finished",
			slog.String("job", TaskVoucherIntegrity),
			slog.String("fiscal_year", strconv.FormatInt(fiscalYearID, 10)),
			slog.Int("findings", len(findings)))
	}
	return findings, nil
}

// NewVoucherIntegrityHandler binds the scan to an Asynq handler.
func NewVoucherIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload VoucherIntegrityPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		_, err := RunVoucherIntegrityScan(ctx, pool, logger, payload.FiscalYearID)
		return err
	}
}
