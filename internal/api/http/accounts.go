package http

import (
	"net/http"

	"condo-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type createAccountRequest struct {
	Code               string               `json:"code"`
	Name               string               `json:"name"`
	Type               domain.AccountType   `json:"type"`
	Nature             domain.AccountNature `json:"nature"`
	ParentID           *int64               `json:"parent_id"`
	RequiresThirdParty bool                 `json:"requires_third_party"`
}

type moveAccountRequest struct {
	ParentID *int64 `json:"parent_id"`
	Code     string `json:"code"`
}

type balanceResponse struct {
	AccountID int64           `json:"account_id"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req createAccountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.svc.Chart.CreateAccount(r.Context(), &domain.Account{
		ScopeID:            scopeID,
		Code:               req.Code,
		Name:               req.Name,
		Type:               req.Type,
		Nature:             req.Nature,
		ParentID:           req.ParentID,
		RequiresThirdParty: req.RequiresThirdParty,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := h.svc.Chart.ListAccounts(r.Context(), scopeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) MoveAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req moveAccountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	account, err := h.svc.Chart.MoveAccount(r.Context(), id, req.ParentID, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.svc.Chart.DeactivateAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GetBalance accepts optional from and to query dates.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.svc.Chart.GetBalance(r.Context(), id, domain.DateRange{From: from, To: to})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, From: q.Get("from"), To: q.Get("to"), Balance: balance})
}

func (h *Handler) Ancestors(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := h.svc.Chart.Ancestors(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) Descendants(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := h.svc.Chart.Descendants(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) ConceptAccounts(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	conceptID, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := h.svc.Mapping.AccountsForConcept(r.Context(), scopeID, conceptID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) CashAccount(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	method := domain.PaymentMethod(muxVar(r, "method"))
	if !method.Valid() {
		writeError(w, domain.NewValidationError("method", "unknown payment method %q", method))
		return
	}
	accountID, err := h.svc.Mapping.CashAccountForMethod(r.Context(), scopeID, method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"method": method, "account_id": accountID})
}
