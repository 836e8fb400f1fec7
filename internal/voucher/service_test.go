package voucher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/shared"
)

// In-memory persistence fakes

type voucherStore struct {
	vouchers map[int64]Voucher
	items    map[int64][]Item
	counters map[string]int64
	nextID   int64
}

func newVoucherStore() *voucherStore {
	return &voucherStore{
		vouchers: make(map[int64]Voucher),
		items:    make(map[int64][]Item),
		counters: make(map[string]int64),
	}
}

type memoryRepo struct {
	store *voucherStore
}

func (r *memoryRepo) GetVoucher(ctx context.Context, id int64) (Voucher, error) {
	v, ok := r.store.vouchers[id]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return v, nil
}

func (r *memoryRepo) GetVoucherWithItems(ctx context.Context, id int64) (Voucher, error) {
	v, err := r.GetVoucher(ctx, id)
	if err != nil {
		return Voucher{}, err
	}
	v.Items = append([]Item(nil), r.store.items[id]...)
	return v, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Voucher, error) {
	var out []Voucher
	for _, v := range r.store.vouchers {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		if filter.LedgerID != 0 && v.LedgerID != filter.LedgerID {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{store: r.store})
}

type memoryTx struct {
	store *voucherStore
}

func (tx *memoryTx) Sequences() ledger.Store {
	return &memorySeq{store: tx.store}
}

func (tx *memoryTx) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	v, ok := tx.store.vouchers[id]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return v, nil
}

func (tx *memoryTx) InsertVoucher(ctx context.Context, v *Voucher) error {
	tx.store.nextID++
	v.ID = tx.store.nextID
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	stored := *v
	stored.Items = nil
	tx.store.vouchers[v.ID] = stored
	return nil
}

func (tx *memoryTx) UpdateVoucher(ctx context.Context, v *Voucher) error {
	if _, ok := tx.store.vouchers[v.ID]; !ok {
		return ErrVoucherNotFound
	}
	stored := *v
	stored.Items = nil
	tx.store.vouchers[v.ID] = stored
	return nil
}

func (tx *memoryTx) ReplaceItems(ctx context.Context, voucherID int64, items []Item) error {
	tx.store.items[voucherID] = append([]Item(nil), items...)
	return nil
}

func (tx *memoryTx) DeleteVoucher(ctx context.Context, id int64) error {
	if _, ok := tx.store.vouchers[id]; !ok {
		return ErrVoucherNotFound
	}
	delete(tx.store.vouchers, id)
	delete(tx.store.items, id)
	return nil
}

func (tx *memoryTx) SubsidiaryNumberExists(ctx context.Context, fiscalYearID int64, number string, excludeID int64) (bool, error) {
	for id, v := range tx.store.vouchers {
		if id == excludeID {
			continue
		}
		if v.FiscalYearID == fiscalYearID && v.SubsidiaryNumber == number {
			return true, nil
		}
	}
	return false, nil
}

type memorySeq struct {
	store *voucherStore
}

func (s *memorySeq) NextCounter(ctx context.Context, ledgerID int64, key string) (int64, error) {
	mapKey := fmt.Sprintf("%d|%s", ledgerID, key)
	s.store.counters[mapKey]++
	return s.store.counters[mapKey], nil
}

func (s *memorySeq) MaxDailyNumber(ctx context.Context, date time.Time) (int64, error) {
	var max int64
	for _, v := range s.store.vouchers {
		if v.Date.Equal(date) && v.DailyNumber > max {
			max = v.DailyNumber
		}
	}
	return max, nil
}

func (s *memorySeq) MaxCrossRef(ctx context.Context, ledgerID, fiscalYearID int64) (int64, error) {
	var max int64
	for _, v := range s.store.vouchers {
		if v.LedgerID == ledgerID && v.FiscalYearID == fiscalYearID && v.CrossRef > max {
			max = v.CrossRef
		}
	}
	return max, nil
}

func (s *memorySeq) NumberExists(ctx context.Context, ledgerID int64, number string) (bool, error) {
	for _, v := range s.store.vouchers {
		if v.LedgerID == ledgerID && v.Number == number {
			return true, nil
		}
	}
	return false, nil
}

// Collaborator fakes

type fakeLedgers struct {
	ledgers  map[int64]ledger.Ledger
	branches map[int64]ledger.Branch
}

func (f *fakeLedgers) GetLedger(ctx context.Context, id int64) (ledger.Ledger, error) {
	led, ok := f.ledgers[id]
	if !ok {
		return ledger.Ledger{}, ledger.ErrLedgerNotFound
	}
	return led, nil
}

func (f *fakeLedgers) GetBranch(ctx context.Context, id int64) (ledger.Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return ledger.Branch{}, ledger.ErrBranchNotFound
	}
	return b, nil
}

func (f *fakeLedgers) DefaultBranch(ctx context.Context) (ledger.Branch, error) {
	for _, b := range f.branches {
		if b.IsDefault {
			return b, nil
		}
	}
	return ledger.Branch{}, ledger.ErrBranchNotFound
}

type memoryFiscalRepo struct {
	periods    map[int64][]fiscal.Period
	exceptions map[string]fiscal.Exception
}

func (r *memoryFiscalRepo) ListPeriods(ctx context.Context, fiscalYearID int64) ([]fiscal.Period, error) {
	return append([]fiscal.Period(nil), r.periods[fiscalYearID]...), nil
}

func (r *memoryFiscalRepo) GetException(ctx context.Context, periodID, userID int64) (fiscal.Exception, error) {
	exc, ok := r.exceptions[fmt.Sprintf("%d|%d", periodID, userID)]
	if !ok {
		return fiscal.Exception{}, fiscal.ErrExceptionNotFound
	}
	return exc, nil
}

type fakeAudit struct {
	logs []shared.AuditLog
}

func (f *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

// Fixture

type fixture struct {
	service *Service
	store   *voucherStore
	fiscal  *memoryFiscalRepo
	ledgers *fakeLedgers
	audit   *fakeAudit
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func newFixture(numbering ledger.NumberingConfig) *fixture {
	store := newVoucherStore()
	fiscalRepo := &memoryFiscalRepo{
		periods: map[int64][]fiscal.Period{
			2024: {{ID: 10, FiscalYearID: 2024, StartDate: day("2024-01-01"), EndDate: day("2024-12-31"), Status: fiscal.PeriodStatusOpen}},
		},
		exceptions: make(map[string]fiscal.Exception),
	}
	ledgers := &fakeLedgers{
		ledgers: map[int64]ledger.Ledger{
			1: {ID: 1, Title: "General", Currency: "USD", Precision: 2, Numbering: numbering},
		},
		branches: map[int64]ledger.Branch{
			1: {ID: 1, IsDefault: true},
			3: {ID: 3},
		},
	}
	rules := &fakeAccountRules{}
	audit := &fakeAudit{}
	service := NewService(&memoryRepo{store: store}, ledgers, fiscal.NewGate(fiscalRepo), rules, audit)
	return &fixture{service: service, store: store, fiscal: fiscalRepo, ledgers: ledgers, audit: audit}
}

func balancedInput(target Status) SaveInput {
	return SaveInput{
		Date:         day("2024-06-15"),
		TargetStatus: target,
		LedgerID:     1,
		BranchID:     3,
		FiscalYearID: 2024,
		Description:  "monthly rent",
		ActorID:      7,
		Lines: []LineInput{
			{AccountID: 1, Debit: amount(1000), Description: "rent expense"},
			{AccountID: 2, Credit: amount(1000), Description: "cash"},
		},
	}
}

// Tests

func TestSaveCreatesTemporaryVoucher(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	saved, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)
	require.Equal(t, StatusTemporary, saved.Status)
	require.Equal(t, "1", saved.Number)
	require.Equal(t, int64(1), saved.DailyNumber)
	require.Equal(t, int64(1), saved.CrossRef)
	require.True(t, saved.TotalDebit.Equal(amount(1000)))
	require.True(t, saved.TotalCredit.Equal(amount(1000)))
	require.Len(t, f.store.items[saved.ID], 2)
	require.Len(t, f.audit.logs, 1)
	require.Equal(t, "voucher.save", f.audit.logs[0].Action)
}

func TestSaveSequencesAreIndependent(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	first, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)
	second, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)

	require.Equal(t, "1", first.Number)
	require.Equal(t, "2", second.Number)
	// daily numbers run per document date, across ledgers
	require.Equal(t, int64(1), first.DailyNumber)
	require.Equal(t, int64(2), second.DailyNumber)

	otherDay := balancedInput(StatusTemporary)
	otherDay.Date = day("2024-06-16")
	third, err := f.service.Save(context.Background(), otherDay)
	require.NoError(t, err)
	require.Equal(t, int64(1), third.DailyNumber)
}

func TestSaveDraftMayBeUnbalanced(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	input := balancedInput(StatusDraft)
	input.Lines[1].Credit = amount(900)
	saved, err := f.service.Save(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, saved.Status)
}

func TestSaveTemporaryRejectsUnbalanced(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	input := balancedInput(StatusTemporary)
	input.Lines[1].Credit = amount(900)
	_, err := f.service.Save(context.Background(), input)
	var unbalanced *UnbalancedError
	require.ErrorAs(t, err, &unbalanced)
	require.True(t, unbalanced.Difference.Equal(amount(100)))
}

func TestSaveRejectsZeroTotal(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	input := balancedInput(StatusTemporary)
	input.Lines[0].Debit = amount(0)
	input.Lines[1].Credit = amount(0)
	_, err := f.service.Save(context.Background(), input)
	require.ErrorIs(t, err, ErrZeroTotal)
}

func TestSaveManualNumberingScope(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeNone})

	_, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.ErrorIs(t, err, ledger.ErrManualNumberRequired)

	input := balancedInput(StatusTemporary)
	input.ManualNumber = "A-100"
	saved, err := f.service.Save(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "A-100", saved.Number)

	duplicate := balancedInput(StatusTemporary)
	duplicate.ManualNumber = "A-100"
	_, err = f.service.Save(context.Background(), duplicate)
	require.ErrorIs(t, err, ledger.ErrDuplicateVoucherNumber)
}

func TestSaveRejectsDuplicateSubsidiaryNumber(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	input := balancedInput(StatusTemporary)
	input.SubsidiaryNumber = "SUB-1"
	_, err := f.service.Save(context.Background(), input)
	require.NoError(t, err)

	again := balancedInput(StatusTemporary)
	again.SubsidiaryNumber = "SUB-1"
	_, err = f.service.Save(context.Background(), again)
	require.ErrorIs(t, err, ErrDuplicateSubsidiaryNumber)
}

func TestSaveSubsidiaryNumberIgnoresSelfOnUpdate(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	input := balancedInput(StatusTemporary)
	input.SubsidiaryNumber = "SUB-1"
	saved, err := f.service.Save(context.Background(), input)
	require.NoError(t, err)

	update := input
	update.VoucherID = saved.ID
	_, err = f.service.Save(context.Background(), update)
	require.NoError(t, err)
}

func TestSaveClosedPeriodHonorsExceptions(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})
	f.fiscal.periods[2024] = []fiscal.Period{
		{ID: 10, FiscalYearID: 2024, StartDate: day("2024-01-01"), EndDate: day("2024-12-31"), Status: fiscal.PeriodStatusClosed},
	}
	f.fiscal.exceptions["10|7"] = fiscal.Exception{
		PeriodID: 10, UserID: 7,
		AllowedStatuses: []fiscal.PeriodStatus{fiscal.PeriodStatusClosed},
	}

	// user 7 holds the exception
	_, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)

	// user 8 does not
	denied := balancedInput(StatusTemporary)
	denied.ActorID = 8
	_, err = f.service.Save(context.Background(), denied)
	require.ErrorIs(t, err, fiscal.ErrPeriodClosed)
}

func TestSaveDateOutsideFiscalYear(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	input := balancedInput(StatusTemporary)
	input.Date = day("2025-02-01")
	_, err := f.service.Save(context.Background(), input)
	require.ErrorIs(t, err, fiscal.ErrDateOutsidePeriods)
}

func TestSaveValidatesBranch(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	input := balancedInput(StatusTemporary)
	input.BranchID = 42
	_, err := f.service.Save(context.Background(), input)
	require.ErrorIs(t, err, ledger.ErrBranchNotFound)

	// no branch given falls back to the default branch
	input = balancedInput(StatusTemporary)
	input.BranchID = 0
	saved, err := f.service.Save(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, int64(1), saved.BranchID)
}

func TestSaveRejectsCreateBeyondTemporary(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})
	_, err := f.service.Save(context.Background(), balancedInput(StatusReviewed))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSaveUpdateReplacesItems(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	saved, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)

	update := balancedInput(StatusTemporary)
	update.VoucherID = saved.ID
	update.Lines = []LineInput{
		{AccountID: 1, Debit: amount(500), Description: "rent expense"},
		{AccountID: 2, Credit: amount(200), Description: "cash"},
		{AccountID: 3, Credit: amount(300), Description: "bank"},
	}
	updated, err := f.service.Save(context.Background(), update)
	require.NoError(t, err)
	require.Equal(t, saved.ID, updated.ID)
	require.Equal(t, saved.Number, updated.Number)
	require.Len(t, f.store.items[saved.ID], 3)
	require.True(t, updated.TotalDebit.Equal(amount(500)))
}

func TestSaveUpdateRejectedOnceReviewed(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	saved, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)
	_, err = f.service.Transition(context.Background(), TransitionInput{VoucherID: saved.ID, TargetStatus: StatusReviewed, ActorID: 9})
	require.NoError(t, err)

	update := balancedInput(StatusTemporary)
	update.VoucherID = saved.ID
	_, err = f.service.Save(context.Background(), update)
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestTransitionStampsReviewerAndApprover(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	saved, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)

	reviewed, err := f.service.Transition(context.Background(), TransitionInput{VoucherID: saved.ID, TargetStatus: StatusReviewed, ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, StatusReviewed, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	require.Equal(t, int64(9), *reviewed.ReviewedBy)

	final, err := f.service.Transition(context.Background(), TransitionInput{VoucherID: saved.ID, TargetStatus: StatusFinal, ActorID: 11})
	require.NoError(t, err)
	require.Equal(t, StatusFinal, final.Status)
	require.NotNil(t, final.ApprovedBy)
	require.Equal(t, int64(11), *final.ApprovedBy)
}

func TestTransitionRevertTemporaryToDraft(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	saved, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)

	reverted, err := f.service.Transition(context.Background(), TransitionInput{VoucherID: saved.ID, TargetStatus: StatusDraft, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, reverted.Status)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	saved, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)
	_, err = f.service.Transition(context.Background(), TransitionInput{VoucherID: saved.ID, TargetStatus: StatusFinal, ActorID: 9})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeleteOnlyWhileEditable(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})

	saved, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)
	_, err = f.service.Transition(context.Background(), TransitionInput{VoucherID: saved.ID, TargetStatus: StatusReviewed, ActorID: 9})
	require.NoError(t, err)

	require.ErrorIs(t, f.service.Delete(context.Background(), saved.ID, 7), ErrNotDeletable)

	other, err := f.service.Save(context.Background(), balancedInput(StatusDraft))
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(context.Background(), other.ID, 7))
	_, err = f.service.Get(context.Background(), other.ID)
	require.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestSaveRecordsMetrics(t *testing.T) {
	f := newFixture(ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true})
	rec := &fakeRecorder{}
	f.service.WithMetrics(rec)

	_, err := f.service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)

	input := balancedInput(StatusTemporary)
	input.Lines[1].Credit = amount(900)
	_, err = f.service.Save(context.Background(), input)
	require.Error(t, err)

	require.Equal(t, []string{"TEMPORARY ok", "TEMPORARY error"}, rec.calls)
}

type fakeRecorder struct {
	calls []string
}

func (f *fakeRecorder) RecordVoucherSave(target, outcome string) {
	f.calls = append(f.calls, target+" "+outcome)
}
