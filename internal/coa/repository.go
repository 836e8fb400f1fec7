package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAccountNotFound indicates a missing chart-of-accounts node.
var ErrAccountNotFound = errors.New("coa: account not found")

type Repository interface {
	GetAccount(ctx context.Context, id int64) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var acc Account
	var rawMeta []byte
	err := r.db.QueryRow(ctx, `SELECT id, code, name, level, nature, parent_id, is_active, metadata, created_at, updated_at
FROM accounts WHERE id=$1`, id).
		Scan(&acc.ID, &acc.Code, &acc.Name, &acc.Level, &acc.Nature, &acc.ParentID, &acc.IsActive, &rawMeta, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	acc.Meta, err = DecodeMetadata(rawMeta)
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, level, nature, parent_id, is_active, metadata, created_at, updated_at
FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var acc Account
		var rawMeta []byte
		if err := rows.Scan(&acc.ID, &acc.Code, &acc.Name, &acc.Level, &acc.Nature, &acc.ParentID, &acc.IsActive, &rawMeta, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			return nil, err
		}
		acc.Meta, err = DecodeMetadata(rawMeta)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}
