package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/shared"
)

// AuditPort records engine actions into the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PeriodGuard resolves and authorizes the fiscal period for a document
// date. Implemented by fiscal.Gate, possibly behind a cache.
type PeriodGuard interface {
	Resolve(ctx context.Context, date time.Time, fiscalYearID int64) (fiscal.Period, error)
	Authorize(ctx context.Context, period fiscal.Period, userID int64) error
}

// Recorder counts engine outcomes for observability.
type Recorder interface {
	RecordVoucherSave(target, outcome string)
}

// Service is the voucher lifecycle state machine. It owns mutability rules
// per status and orchestrates validation, period gating, sequencing and
// persistence for every save or transition request.
type Service struct {
	repo      Repository
	ledgers   ledger.Repository
	gate      PeriodGuard
	validator *LineValidator
	audit     AuditPort
	metrics   Recorder
	now       func() time.Time
}

func NewService(repo Repository, ledgers ledger.Repository, gate PeriodGuard, rules AccountRules, audit AuditPort) *Service {
	return &Service{
		repo:      repo,
		ledgers:   ledgers,
		gate:      gate,
		validator: NewLineValidator(rules),
		audit:     audit,
		now:       time.Now,
	}
}

// WithMetrics attaches an outcome recorder.
func (s *Service) WithMetrics(rec Recorder) {
	s.metrics = rec
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Voucher, error) {
	return s.repo.GetVoucherWithItems(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Voucher, error) {
	return s.repo.List(ctx, filter)
}

// Save creates or updates a voucher under a target status. All validation
// runs before any persistence; header, items and issued counters commit in
// a single transaction.
func (s *Service) Save(ctx context.Context, input SaveInput) (Voucher, error) {
	saved, err := s.save(ctx, input)
	s.record(string(input.TargetStatus), err)
	if err != nil {
		return Voucher{}, err
	}
	s.auditLog(ctx, input.ActorID, "voucher.save", saved.ID, map[string]any{
		"status": string(saved.Status),
		"number": saved.Number,
	})
	return saved, nil
}

func (s *Service) save(ctx context.Context, input SaveInput) (Voucher, error) {
	if err := input.Validate(); err != nil {
		return Voucher{}, err
	}
	if input.VoucherID == 0 && !input.TargetStatus.Editable() {
		return Voucher{}, ErrInvalidTransition
	}

	led, err := s.ledgers.GetLedger(ctx, input.LedgerID)
	if err != nil {
		return Voucher{}, err
	}
	branch, err := s.branch(ctx, input.BranchID)
	if err != nil {
		return Voucher{}, err
	}
	input.BranchID = branch.ID

	items := input.toItems()
	for i, item := range items {
		if err := s.validator.Validate(ctx, i, item); err != nil {
			return Voucher{}, err
		}
	}

	totals := Evaluate(items, led.Precision)
	if err := CheckInvariant(totals, input.TargetStatus); err != nil {
		return Voucher{}, err
	}

	period, err := s.gate.Resolve(ctx, input.Date, input.FiscalYearID)
	if err != nil {
		return Voucher{}, err
	}
	if err := s.gate.Authorize(ctx, period, input.ActorID); err != nil {
		return Voucher{}, err
	}

	var saved Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.SubsidiaryNumber != "" {
			exists, err := tx.SubsidiaryNumberExists(ctx, input.FiscalYearID, input.SubsidiaryNumber, input.VoucherID)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateSubsidiaryNumber
			}
		}
		if input.VoucherID == 0 {
			created, err := s.create(ctx, tx, input, led, items, totals)
			if err != nil {
				return err
			}
			saved = created
			return nil
		}
		updated, err := s.update(ctx, tx, input, items, totals)
		if err != nil {
			return err
		}
		saved = updated
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	saved.Items = items
	return saved, nil
}

func (s *Service) create(ctx context.Context, tx TxRepository, input SaveInput, led ledger.Ledger, items []Item, totals Totals) (Voucher, error) {
	alloc := ledger.NewAllocator(tx.Sequences())
	daily, err := alloc.NextDaily(ctx, input.Date)
	if err != nil {
		return Voucher{}, err
	}
	crossRef, err := alloc.NextCrossRef(ctx, led.ID, input.FiscalYearID)
	if err != nil {
		return Voucher{}, err
	}
	number, err := alloc.NextVoucherNumber(ctx, led, input.FiscalYearID, input.BranchID, input.ManualNumber)
	if err != nil {
		return Voucher{}, err
	}

	ref := input.Ref
	if ref == uuid.Nil {
		ref = uuid.New()
	}
	v := Voucher{
		Ref:              ref,
		Date:             input.Date,
		Status:           input.TargetStatus,
		BranchID:         input.BranchID,
		LedgerID:         led.ID,
		FiscalYearID:     input.FiscalYearID,
		Number:           number,
		DailyNumber:      daily,
		CrossRef:         crossRef,
		SubsidiaryNumber: input.SubsidiaryNumber,
		TotalDebit:       totals.Debit,
		TotalCredit:      totals.Credit,
		Description:      input.Description,
		CreatedBy:        input.ActorID,
	}
	if err := tx.InsertVoucher(ctx, &v); err != nil {
		return Voucher{}, err
	}
	if err := tx.ReplaceItems(ctx, v.ID, items); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (s *Service) update(ctx context.Context, tx TxRepository, input SaveInput, items []Item, totals Totals) (Voucher, error) {
	current, err := tx.GetVoucherForUpdate(ctx, input.VoucherID)
	if err != nil {
		return Voucher{}, err
	}
	if !current.Status.Editable() {
		return Voucher{}, ErrNotEditable
	}
	if !current.Status.CanTransition(input.TargetStatus) {
		return Voucher{}, ErrInvalidTransition
	}
	current.Date = input.Date
	current.BranchID = input.BranchID
	current.SubsidiaryNumber = input.SubsidiaryNumber
	current.TotalDebit = totals.Debit
	current.TotalCredit = totals.Credit
	current.Description = input.Description
	s.stamp(&current, input.TargetStatus, input.ActorID)
	current.Status = input.TargetStatus
	if err := tx.UpdateVoucher(ctx, &current); err != nil {
		return Voucher{}, err
	}
	if err := tx.ReplaceItems(ctx, current.ID, items); err != nil {
		return Voucher{}, err
	}
	return current, nil
}

// Transition changes only the status of a persisted voucher. The balance
// invariant and the period gate are re-checked against the target status.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (Voucher, error) {
	moved, err := s.transition(ctx, input)
	s.record(string(input.TargetStatus), err)
	if err != nil {
		return Voucher{}, err
	}
	s.auditLog(ctx, input.ActorID, "voucher.transition", moved.ID, map[string]any{
		"status": string(moved.Status),
	})
	return moved, nil
}

func (s *Service) transition(ctx context.Context, input TransitionInput) (Voucher, error) {
	if input.VoucherID == 0 {
		return Voucher{}, ErrVoucherNotFound
	}
	if !input.TargetStatus.Valid() {
		return Voucher{}, ErrInvalidTransition
	}
	existing, err := s.repo.GetVoucherWithItems(ctx, input.VoucherID)
	if err != nil {
		return Voucher{}, err
	}
	led, err := s.ledgers.GetLedger(ctx, existing.LedgerID)
	if err != nil {
		return Voucher{}, err
	}
	totals := Evaluate(existing.Items, led.Precision)
	if err := CheckInvariant(totals, input.TargetStatus); err != nil {
		return Voucher{}, err
	}
	period, err := s.gate.Resolve(ctx, existing.Date, existing.FiscalYearID)
	if err != nil {
		return Voucher{}, err
	}
	if err := s.gate.Authorize(ctx, period, input.ActorID); err != nil {
		return Voucher{}, err
	}

	var moved Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, input.VoucherID)
		if err != nil {
			return err
		}
		if current.Status == input.TargetStatus {
			moved = current
			return nil
		}
		if !current.Status.CanTransition(input.TargetStatus) {
			return ErrInvalidTransition
		}
		s.stamp(&current, input.TargetStatus, input.ActorID)
		current.Status = input.TargetStatus
		if err := tx.UpdateVoucher(ctx, &current); err != nil {
			return err
		}
		moved = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	moved.Items = existing.Items
	return moved, nil
}

// Delete removes a voucher while its status still permits it.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.Editable() {
			return ErrNotDeletable
		}
		return tx.DeleteVoucher(ctx, id)
	})
	if err != nil {
		return err
	}
	s.auditLog(ctx, actorID, "voucher.delete", id, nil)
	return nil
}

// branch validates the requested branch and falls back to the default
// branch when none is given. The branch id feeds the numbering counter key,
// so it must reference a real branch before any counter is issued.
func (s *Service) branch(ctx context.Context, id int64) (ledger.Branch, error) {
	if id == 0 {
		return s.ledgers.DefaultBranch(ctx)
	}
	return s.ledgers.GetBranch(ctx, id)
}

// stamp records the acting user when the voucher enters reviewed or final.
func (s *Service) stamp(v *Voucher, target Status, actorID int64) {
	switch target {
	case StatusReviewed:
		v.ReviewedBy = &actorID
	case StatusFinal:
		v.ApprovedBy = &actorID
	}
}

func (s *Service) record(target string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordVoucherSave(target, outcome)
}

func (s *Service) auditLog(ctx context.Context, actorID int64, action string, voucherID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "voucher",
		EntityID: fmt.Sprintf("%d", voucherID),
		Meta:     meta,
		At:       s.now(),
	})
}
