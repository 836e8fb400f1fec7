package voucher

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type lineRequest struct {
	RowOrder       int             `json:"row_order"`
	AccountID      int64           `json:"account_id" validate:"required"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	CurrencyCode   string          `json:"currency_code"`
	Dimensions     map[int64]int64 `json:"dimensions"`
	TrackingNumber string          `json:"tracking_number"`
	TrackingDate   *time.Time      `json:"tracking_date"`
	Quantity       decimal.Decimal `json:"quantity"`
	Description    string          `json:"description" validate:"required"`
}

type saveRequest struct {
	Ref              string        `json:"ref" validate:"omitempty,uuid4"`
	Date             time.Time     `json:"date" validate:"required"`
	TargetStatus     string        `json:"target_status" validate:"required,oneof=DRAFT TEMPORARY REVIEWED FINAL"`
	LedgerID         int64         `json:"ledger_id" validate:"required"`
	BranchID         int64         `json:"branch_id"`
	FiscalYearID     int64         `json:"fiscal_year_id" validate:"required"`
	Number           string        `json:"number"`
	SubsidiaryNumber string        `json:"subsidiary_number"`
	Description      string        `json:"description"`
	ActorID          int64         `json:"actor_id" validate:"required"`
	Lines            []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	TargetStatus string `json:"target_status" validate:"required,oneof=DRAFT TEMPORARY REVIEWED FINAL"`
	ActorID      int64  `json:"actor_id" validate:"required"`
}

func (req saveRequest) toInput(voucherID int64) SaveInput {
	input := SaveInput{
		VoucherID:        voucherID,
		Date:             req.Date,
		TargetStatus:     Status(req.TargetStatus),
		LedgerID:         req.LedgerID,
		BranchID:         req.BranchID,
		FiscalYearID:     req.FiscalYearID,
		ManualNumber:     req.Number,
		SubsidiaryNumber: req.SubsidiaryNumber,
		Description:      req.Description,
		ActorID:          req.ActorID,
	}
	if req.Ref != "" {
		input.Ref, _ = uuid.Parse(req.Ref)
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			RowOrder:       line.RowOrder,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			CurrencyCode:   line.CurrencyCode,
			Dimensions:     line.Dimensions,
			TrackingNumber: line.TrackingNumber,
			TrackingDate:   line.TrackingDate,
			Quantity:       line.Quantity,
			Description:    line.Description,
		})
	}
	return input
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	saved, err := h.service.Save(r.Context(), req.toInput(0))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toVoucherResponse(saved))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	saved, err := h.service.Save(r.Context(), req.toInput(id))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVoucherResponse(saved))
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	moved, err := h.service.Transition(r.Context(), TransitionInput{
		VoucherID:    id,
		TargetStatus: Status(req.TargetStatus),
		ActorID:      req.ActorID,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVoucherResponse(moved))
}

// Revert moves a temporary voucher back to draft. Shorthand for a
// transition with target DRAFT.
func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		ActorID int64 `json:"actor_id" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	moved, err := h.service.Transition(r.Context(), TransitionInput{
		VoucherID:    id,
		TargetStatus: StatusDraft,
		ActorID:      req.ActorID,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVoucherResponse(moved))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actorID, err := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)
	if err != nil || actorID == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: actor_id query parameter required", httpx.ErrValidation))
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVoucherResponse(v))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	q := r.URL.Query()
	filter.LedgerID, _ = strconv.ParseInt(q.Get("ledger_id"), 10, 64)
	filter.FiscalYearID, _ = strconv.ParseInt(q.Get("fiscal_year_id"), 10, 64)
	filter.Status = Status(q.Get("status"))
	if raw := q.Get("date_from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &from
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &to
		}
	}
	vouchers, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	out := make([]voucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, toVoucherResponse(v))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// BalanceAssist applies the auto-balance helper to the submitted lines and
// returns the adjusted set. Nothing is persisted.
func (h *Handler) BalanceAssist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines []lineRequest `json:"lines" validate:"required,min=1"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	items := make([]Item, 0, len(req.Lines))
	for i, line := range req.Lines {
		row := line.RowOrder
		if row == 0 {
			row = i + 1
		}
		items = append(items, Item{
			RowOrder:    row,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	balanced := AutoBalance(items)
	out := make([]itemResponse, 0, len(balanced))
	for _, item := range balanced {
		out = append(out, toItemResponse(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": out})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid voucher id", httpx.ErrValidation))
		return 0, false
	}
	return id, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		httpx.RowProblem(w, http.StatusUnprocessableEntity, "Line Validation Failed", lineErr.Error(), lineErr.Row)
		return
	}
	var unbalanced *UnbalancedError
	switch {
	case errors.As(err, &unbalanced), errors.Is(err, ErrZeroTotal),
		errors.Is(err, ErrDuplicateSubsidiaryNumber),
		errors.Is(err, ledger.ErrManualNumberRequired),
		errors.Is(err, fiscal.ErrNoPeriodsDefined),
		errors.Is(err, fiscal.ErrDateOutsidePeriods):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, fiscal.ErrPeriodClosed):
		httpx.Problem(w, http.StatusForbidden, "Period Closed", err.Error())
	case errors.Is(err, ledger.ErrDuplicateVoucherNumber),
		errors.Is(err, ErrNotEditable),
		errors.Is(err, ErrNotDeletable),
		errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrVoucherNotFound), errors.Is(err, ledger.ErrLedgerNotFound),
		errors.Is(err, ledger.ErrBranchNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("voucher request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

type itemResponse struct {
	ID             int64           `json:"id,omitempty"`
	RowOrder       int             `json:"row_order"`
	AccountID      int64           `json:"account_id,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	CurrencyCode   string          `json:"currency_code,omitempty"`
	Dimensions     map[int64]int64 `json:"dimensions,omitempty"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	TrackingDate   *time.Time      `json:"tracking_date,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Description    string          `json:"description"`
}

type voucherResponse struct {
	ID               int64           `json:"id"`
	Ref              string          `json:"ref"`
	Date             time.Time       `json:"date"`
	Status           string          `json:"status"`
	BranchID         int64           `json:"branch_id"`
	LedgerID         int64           `json:"ledger_id"`
	FiscalYearID     int64           `json:"fiscal_year_id"`
	Number           string          `json:"number"`
	DailyNumber      int64           `json:"daily_number"`
	CrossRef         int64           `json:"cross_ref"`
	SubsidiaryNumber string          `json:"subsidiary_number,omitempty"`
	TotalDebit       decimal.Decimal `json:"total_debit"`
	TotalCredit      decimal.Decimal `json:"total_credit"`
	Description      string          `json:"description,omitempty"`
	ReviewedBy       *int64          `json:"reviewed_by,omitempty"`
	ApprovedBy       *int64          `json:"approved_by,omitempty"`
	Items            []itemResponse  `json:"items,omitempty"`
}

func toItemResponse(item Item) itemResponse {
	return itemResponse{
		ID:             item.ID,
		RowOrder:       item.RowOrder,
		AccountID:      item.AccountID,
		Debit:          item.Debit,
		Credit:         item.Credit,
		CurrencyCode:   item.CurrencyCode,
		Dimensions:     item.Dimensions,
		TrackingNumber: item.TrackingNumber,
		TrackingDate:   item.TrackingDate,
		Quantity:       item.Quantity,
		Description:    item.Description,
	}
}

func toVoucherResponse(v Voucher) voucherResponse {
	resp := voucherResponse{
		ID:               v.ID,
		Ref:              v.Ref.String(),
		Date:             v.Date,
		Status:           string(v.Status),
		BranchID:         v.BranchID,
		LedgerID:         v.LedgerID,
		FiscalYearID:     v.FiscalYearID,
		Number:           v.Number,
		DailyNumber:      v.DailyNumber,
		CrossRef:         v.CrossRef,
		SubsidiaryNumber: v.SubsidiaryNumber,
		TotalDebit:       v.TotalDebit,
		TotalCredit:      v.TotalCredit,
		Description:      v.Description,
		ReviewedBy:       v.ReviewedBy,
		ApprovedBy:       v.ApprovedBy,
	}
	for _, item := range v.Items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	return resp
}
