package fiscal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListPeriods(ctx context.Context, fiscalYearID int64) ([]Period, error)
	GetException(ctx context.Context, periodID, userID int64) (Exception, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListPeriods(ctx context.Context, fiscalYearID int64) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT id, fiscal_year_id, code, title, start_date, end_date, status, created_at, updated_at
FROM fiscal_periods WHERE fiscal_year_id=$1 ORDER BY start_date ASC`, fiscalYearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.FiscalYearID, &p.Code, &p.Title, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) GetException(ctx context.Context, periodID, userID int64) (Exception, error) {
	var exc Exception
	var statuses []string
	err := r.db.QueryRow(ctx, `SELECT period_id, user_id, allowed_statuses
FROM period_exceptions WHERE period_id=$1 AND user_id=$2`, periodID, userID).
		Scan(&exc.PeriodID, &exc.UserID, &statuses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exception{}, ErrExceptionNotFound
		}
		return Exception{}, err
	}
	exc.AllowedStatuses = make([]PeriodStatus, 0, len(statuses))
	for _, s := range statuses {
		exc.AllowedStatuses = append(exc.AllowedStatuses, PeriodStatus(s))
	}
	return exc, nil
}
