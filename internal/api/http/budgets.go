package http

import (
	"net/http"

	"condo-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type budgetItemRequest struct {
	AccountID    int64                 `json:"account_id"`
	Category     domain.BudgetCategory `json:"category"`
	AnnualAmount decimal.Decimal       `json:"annual_amount"`
	Monthly      []decimal.Decimal     `json:"monthly"`
	Notes        string                `json:"notes"`
}

func (req budgetItemRequest) toItem() (domain.BudgetItem, error) {
	item := domain.BudgetItem{
		AccountID:    req.AccountID,
		Category:     req.Category,
		AnnualAmount: req.AnnualAmount,
		Notes:        req.Notes,
	}
	if len(req.Monthly) != 0 && len(req.Monthly) != 12 {
		return item, domain.NewValidationError("monthly", "expected 12 monthly amounts, got %d", len(req.Monthly))
	}
	copy(item.Monthly[:], req.Monthly)
	return item, nil
}

type createBudgetRequest struct {
	FiscalYear int                 `json:"fiscal_year"`
	Name       string              `json:"name"`
	Items      []budgetItemRequest `json:"items"`
}

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req createBudgetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	b := &domain.Budget{ScopeID: scopeID, FiscalYear: req.FiscalYear, Name: req.Name}
	for _, ir := range req.Items {
		item, err := ir.toItem()
		if err != nil {
			writeError(w, err)
			return
		}
		b.Items = append(b.Items, item)
	}

	b, err = h.svc.Budget.CreateBudget(r.Context(), actorID(r), b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := h.svc.Budget.GetBudget(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) AddBudgetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req budgetItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := req.toItem()
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.svc.Budget.AddItem(r.Context(), id, &item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ActivateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := h.svc.Budget.ActivateBudget(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) CloseBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := h.svc.Budget.CloseBudget(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) RefreshBudgetPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	year, month, err := periodVars(r)
	if err != nil {
		writeError(w, err)
		return
	}
	execs, err := h.svc.Budget.RefreshPeriod(r.Context(), id, month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, execs)
}

func (h *Handler) VarianceAlerts(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	year, month, err := periodVars(r)
	if err != nil {
		writeError(w, err)
		return
	}
	alerts, err := h.svc.Budget.VarianceAlerts(r.Context(), id, month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) RefreshExecution(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	exec, err := h.svc.Budget.RefreshExecution(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}
