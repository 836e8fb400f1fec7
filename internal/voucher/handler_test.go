package voucher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger"
)

func newTestRouter(t *testing.T, rules AccountRules) (http.Handler, *Service) {
	t.Helper()
	store := newVoucherStore()
	fiscalRepo := &memoryFiscalRepo{
		periods: map[int64][]fiscal.Period{
			2024: {{ID: 10, FiscalYearID: 2024, StartDate: day("2024-01-01"), EndDate: day("2024-12-31"), Status: fiscal.PeriodStatusOpen}},
		},
		exceptions: make(map[string]fiscal.Exception),
	}
	ledgers := &fakeLedgers{
		ledgers: map[int64]ledger.Ledger{
			1: {ID: 1, Currency: "USD", Precision: 2, Numbering: ledger.NumberingConfig{Scope: ledger.ScopeLedger, ResetYear: true}},
		},
		branches: map[int64]ledger.Branch{
			1: {ID: 1, IsDefault: true},
			3: {ID: 3},
		},
	}
	service := NewService(&memoryRepo{store: store}, ledgers, fiscal.NewGate(fiscalRepo), rules, &fakeAudit{})
	handler := NewHandler(slog.Default(), service)

	r := chi.NewRouter()
	r.Route("/vouchers", func(r chi.Router) {
		handler.MountRoutes(r)
	})
	return r, service
}

func saveBody(accountID int64) []byte {
	body := map[string]any{
		"date":           "2024-06-15T00:00:00Z",
		"target_status":  "TEMPORARY",
		"ledger_id":      1,
		"fiscal_year_id": 2024,
		"actor_id":       7,
		"lines": []map[string]any{
			{"account_id": accountID, "debit": "100", "description": "rent expense"},
			{"account_id": 2, "credit": "100", "description": "cash"},
		},
	}
	raw, _ := json.Marshal(body)
	return raw
}

func TestHandlerRejectsInvalidJSON(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAccountRules{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vouchers", bytes.NewBufferString("{"))
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Contains(t, problem.Detail, "invalid JSON body")
}

func TestHandlerUnknownAccountIsLineProblem(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAccountRules{unknown: map[int64]bool{99: true}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vouchers", bytes.NewBuffer(saveBody(99)))
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var problem struct {
		Detail string `json:"detail"`
		Row    *int   `json:"row"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Contains(t, problem.Detail, string(LineErrUnknownAccount))
	require.NotNil(t, problem.Row)
	require.Equal(t, 0, *problem.Row)
}

func TestHandlerDeleteRequiresActor(t *testing.T) {
	router, service := newTestRouter(t, &fakeAccountRules{})

	saved, err := service.Save(context.Background(), balancedInput(StatusDraft))
	require.NoError(t, err)

	for _, target := range []string{"", "?actor_id=abc", "?actor_id=0"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/vouchers/%d%s", saved.ID, target), nil)
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	}

	// voucher untouched by the rejected requests
	_, err = service.Get(context.Background(), saved.ID)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/vouchers/%d?actor_id=7", saved.ID), nil)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandlerRevertMovesTemporaryToDraft(t *testing.T) {
	router, service := newTestRouter(t, &fakeAccountRules{})

	saved, err := service.Save(context.Background(), balancedInput(StatusTemporary))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/vouchers/%d/revert", saved.ID),
		bytes.NewBufferString(`{"actor_id":7}`))
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, string(StatusDraft), resp.Status)
}

func TestHandlerUnknownBranchIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAccountRules{})

	body := map[string]any{
		"date":           "2024-06-15T00:00:00Z",
		"target_status":  "TEMPORARY",
		"ledger_id":      1,
		"branch_id":      42,
		"fiscal_year_id": 2024,
		"actor_id":       7,
		"lines": []map[string]any{
			{"account_id": 1, "debit": "100", "description": "rent expense"},
			{"account_id": 2, "credit": "100", "description": "cash"},
		},
	}
	raw, _ := json.Marshal(body)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vouchers", bytes.NewBuffer(raw))
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
