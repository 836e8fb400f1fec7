package voucher

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository encapsulates DB operations for vouchers.
type Repository interface {
	GetVoucher(ctx context.Context, id int64) (Voucher, error)
	GetVoucherWithItems(ctx context.Context, id int64) (Voucher, error)
	List(ctx context.Context, filter ListFilter) ([]Voucher, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a save transaction. Header,
// items and issued counters commit or roll back as a unit.
type TxRepository interface {
	GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error)
	InsertVoucher(ctx context.Context, v *Voucher) error
	UpdateVoucher(ctx context.Context, v *Voucher) error
	ReplaceItems(ctx context.Context, voucherID int64, items []Item) error
	DeleteVoucher(ctx context.Context, id int64) error
	SubsidiaryNumberExists(ctx context.Context, fiscalYearID int64, number string, excludeID int64) (bool, error)

	// Sequences returns the allocator store bound to the same transaction.
	Sequences() ledger.Store
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const voucherColumns = `id, ref, date, status, branch_id, ledger_id, fiscal_year_id, number, daily_number, cross_ref,
subsidiary_number, total_debit::text, total_credit::text, description, created_by, reviewed_by, approved_by, created_at, updated_at`

const itemColumns = `id, voucher_id, row_order, account_id, debit::text, credit::text, currency_code, dimensions,
tracking_number, tracking_date, quantity::text, description, created_at, updated_at`

func (r *repository) GetVoucher(ctx context.Context, id int64) (Voucher, error) {
	row := r.db.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1`, id)
	return scanVoucher(row)
}

func (r *repository) GetVoucherWithItems(ctx context.Context, id int64) (Voucher, error) {
	v, err := r.GetVoucher(ctx, id)
	if err != nil {
		return Voucher{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM voucher_items WHERE voucher_id=$1 ORDER BY row_order ASC`, id)
	if err != nil {
		return Voucher{}, err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return Voucher{}, err
		}
		v.Items = append(v.Items, item)
	}
	return v, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE 1=1`
	var args []any
	if filter.LedgerID != 0 {
		args = append(args, filter.LedgerID)
		query += ` AND ledger_id=$` + strconv.Itoa(len(args))
	}
	if filter.FiscalYearID != 0 {
		args = append(args, filter.FiscalYearID)
		query += ` AND fiscal_year_id=$` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += ` AND date >= $` + strconv.Itoa(len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += ` AND date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC, daily_number DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vouchers []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Sequences() ledger.Store {
	return ledger.NewTxStore(r.tx)
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 FOR UPDATE`, id)
	return scanVoucher(row)
}

func (r *txRepository) InsertVoucher(ctx context.Context, v *Voucher) error {
	err := r.tx.QueryRow(ctx, `INSERT INTO vouchers
(ref, date, status, branch_id, ledger_id, fiscal_year_id, number, daily_number, cross_ref, subsidiary_number,
 total_debit, total_credit, description, created_by, reviewed_by, approved_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id, created_at, updated_at`,
		v.Ref, v.Date, v.Status, v.BranchID, v.LedgerID, v.FiscalYearID, v.Number, v.DailyNumber, v.CrossRef,
		nullString(v.SubsidiaryNumber), v.TotalDebit.String(), v.TotalCredit.String(), v.Description,
		v.CreatedBy, v.ReviewedBy, v.ApprovedBy).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

func (r *txRepository) UpdateVoucher(ctx context.Context, v *Voucher) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET
date=$2, status=$3, branch_id=$4, subsidiary_number=$5, total_debit=$6, total_credit=$7,
description=$8, reviewed_by=$9, approved_by=$10, updated_at=NOW()
WHERE id=$1`,
		v.ID, v.Date, v.Status, v.BranchID, nullString(v.SubsidiaryNumber),
		v.TotalDebit.String(), v.TotalCredit.String(), v.Description, v.ReviewedBy, v.ApprovedBy)
	if err != nil {
		return mapConstraintErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepository) ReplaceItems(ctx context.Context, voucherID int64, items []Item) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_items WHERE voucher_id=$1`, voucherID); err != nil {
		return err
	}
	for _, item := range items {
		dims, err := encodeDimensions(item.Dimensions)
		if err != nil {
			return err
		}
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_items
(voucher_id, row_order, account_id, debit, credit, currency_code, dimensions, tracking_number, tracking_date, quantity, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			voucherID, item.RowOrder, item.AccountID, item.Debit.String(), item.Credit.String(),
			nullString(item.CurrencyCode), dims, nullString(item.TrackingNumber), item.TrackingDate,
			item.Quantity.String(), item.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteVoucher(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_items WHERE voucher_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepository) SubsidiaryNumberExists(ctx context.Context, fiscalYearID int64, number string, excludeID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM vouchers WHERE fiscal_year_id=$1 AND subsidiary_number=$2 AND id<>$3)`,
		fiscalYearID, number, excludeID).Scan(&exists)
	return exists, err
}

// Scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (Voucher, error) {
	var v Voucher
	var subsidiary *string
	var totalDebit, totalCredit string
	err := row.Scan(&v.ID, &v.Ref, &v.Date, &v.Status, &v.BranchID, &v.LedgerID, &v.FiscalYearID,
		&v.Number, &v.DailyNumber, &v.CrossRef, &subsidiary, &totalDebit, &totalCredit,
		&v.Description, &v.CreatedBy, &v.ReviewedBy, &v.ApprovedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	if subsidiary != nil {
		v.SubsidiaryNumber = *subsidiary
	}
	if v.TotalDebit, err = decimal.NewFromString(totalDebit); err != nil {
		return Voucher{}, err
	}
	if v.TotalCredit, err = decimal.NewFromString(totalCredit); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var debit, credit, quantity string
	var currency, tracking *string
	var dims []byte
	err := row.Scan(&item.ID, &item.VoucherID, &item.RowOrder, &item.AccountID, &debit, &credit,
		&currency, &dims, &tracking, &item.TrackingDate, &quantity, &item.Description,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	if currency != nil {
		item.CurrencyCode = *currency
	}
	if tracking != nil {
		item.TrackingNumber = *tracking
	}
	if item.Debit, err = decimal.NewFromString(debit); err != nil {
		return Item{}, err
	}
	if item.Credit, err = decimal.NewFromString(credit); err != nil {
		return Item{}, err
	}
	if item.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return Item{}, err
	}
	if item.Dimensions, err = decodeDimensions(dims); err != nil {
		return Item{}, err
	}
	return item, nil
}

func encodeDimensions(dims map[int64]int64) ([]byte, error) {
	if len(dims) == 0 {
		return []byte("{}"), nil
	}
	out := make(map[string]int64, len(dims))
	for k, val := range dims {
		out[strconv.FormatInt(k, 10)] = val
	}
	return json.Marshal(out)
}

func decodeDimensions(raw []byte) (map[int64]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var in map[string]int64
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[int64]int64, len(in))
	for k, val := range in {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, err
		}
		out[id] = val
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapConstraintErr translates unique-violation errors raised by the
// voucher number and subsidiary number indexes into domain errors.
func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "uq_vouchers_ledger_number":
			return ledger.ErrDuplicateVoucherNumber
		case "uq_vouchers_subsidiary_number":
			return ErrDuplicateSubsidiaryNumber
		}
	}
	return err
}
