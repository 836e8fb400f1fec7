package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository serves ledger and branch reads outside of save transactions.
type Repository interface {
	GetLedger(ctx context.Context, id int64) (Ledger, error)
	GetBranch(ctx context.Context, id int64) (Branch, error)
	DefaultBranch(ctx context.Context) (Branch, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetLedger(ctx context.Context, id int64) (Ledger, error) {
	var led Ledger
	var rawNumbering []byte
	err := r.db.QueryRow(ctx, `SELECT id, title, currency, structure_id, precision, numbering, created_at, updated_at
FROM ledgers WHERE id=$1`, id).
		Scan(&led.ID, &led.Title, &led.Currency, &led.StructureID, &led.Precision, &rawNumbering, &led.CreatedAt, &led.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ledger{}, ErrLedgerNotFound
		}
		return Ledger{}, err
	}
	led.Numbering, err = DecodeNumberingConfig(rawNumbering)
	if err != nil {
		return Ledger{}, err
	}
	if err := led.ValidateCurrency(); err != nil {
		return Ledger{}, err
	}
	return led, nil
}

func (r *repository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := r.db.QueryRow(ctx, `SELECT id, title, is_default, created_at, updated_at FROM branches WHERE id=$1`, id).
		Scan(&b.ID, &b.Title, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrBranchNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

func (r *repository) DefaultBranch(ctx context.Context) (Branch, error) {
	var b Branch
	err := r.db.QueryRow(ctx, `SELECT id, title, is_default, created_at, updated_at FROM branches WHERE is_default ORDER BY id LIMIT 1`).
		Scan(&b.ID, &b.Title, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrBranchNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

// Store exposes the sequence operations available inside a save
// transaction. Counter issuance is a single-statement atomic upsert so
// concurrent saves against the same key serialize on the counter row.
type Store interface {
	NextCounter(ctx context.Context, ledgerID int64, key string) (int64, error)
	MaxDailyNumber(ctx context.Context, date time.Time) (int64, error)
	MaxCrossRef(ctx context.Context, ledgerID, fiscalYearID int64) (int64, error)
	NumberExists(ctx context.Context, ledgerID int64, number string) (bool, error)
}

type txStore struct {
	tx pgx.Tx
}

// NewTxStore wraps a transaction with sequence operations.
func NewTxStore(tx pgx.Tx) Store {
	return &txStore{tx: tx}
}

func (s *txStore) NextCounter(ctx context.Context, ledgerID int64, key string) (int64, error) {
	var next int64
	err := s.tx.QueryRow(ctx, `INSERT INTO ledger_counters (ledger_id, counter_key, last_number)
VALUES ($1,$2,1)
ON CONFLICT (ledger_id, counter_key) DO UPDATE SET last_number = ledger_counters.last_number + 1
RETURNING last_number`, ledgerID, key).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *txStore) MaxDailyNumber(ctx context.Context, date time.Time) (int64, error) {
	var max int64
	err := s.tx.QueryRow(ctx, `SELECT COALESCE(MAX(daily_number),0) FROM vouchers WHERE date=$1`, date).Scan(&max)
	return max, err
}

func (s *txStore) MaxCrossRef(ctx context.Context, ledgerID, fiscalYearID int64) (int64, error) {
	var max int64
	err := s.tx.QueryRow(ctx, `SELECT COALESCE(MAX(cross_ref),0) FROM vouchers WHERE ledger_id=$1 AND fiscal_year_id=$2`, ledgerID, fiscalYearID).Scan(&max)
	return max, err
}

func (s *txStore) NumberExists(ctx context.Context, ledgerID int64, number string) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE ledger_id=$1 AND number=$2)`, ledgerID, number).Scan(&exists)
	return exists, err
}
