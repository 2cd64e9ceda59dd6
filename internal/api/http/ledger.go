package http

import (
	"context"
	"net/http"
	"strconv"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/service"

	"github.com/shopspring/decimal"
)

type createDraftRequest struct {
	Date          string `json:"date"`
	Description   string `json:"description"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   int64  `json:"reference_id"`
	Subject       string `json:"subject"`
}

type entryRequest struct {
	AccountID    int64              `json:"account_id"`
	Description  string             `json:"description"`
	DebitAmount  decimal.Decimal    `json:"debit_amount"`
	CreditAmount decimal.Decimal    `json:"credit_amount"`
	ThirdParty   *domain.ThirdParty `json:"third_party"`
	CostCenterID *int64             `json:"cost_center_id"`
}

type postRequest struct {
	SkipPeriodValidation bool `json:"skip_period_validation"`
}

// transactionResponse flattens the reference union for JSON.
type transactionResponse struct {
	*domain.Transaction
	ReferenceType domain.ReferenceKind `json:"reference_type"`
	ReferenceID   int64                `json:"reference_id,omitempty"`
}

func toTransactionResponse(tx *domain.Transaction) transactionResponse {
	resp := transactionResponse{Transaction: tx, ReferenceType: domain.ReferenceManual}
	if tx.Reference != nil {
		resp.ReferenceType = tx.Reference.Kind()
		resp.ReferenceID = tx.Reference.TargetID()
	}
	return resp
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req createDraftRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := requireDate("date", req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	ref := domain.Reference(domain.ManualRef{})
	if req.ReferenceType != "" {
		if ref, err = domain.ParseReference(req.ReferenceType, req.ReferenceID); err != nil {
			writeError(w, domain.NewValidationError("reference_type", "%v", err))
			return
		}
	}

	tx, err := h.svc.Ledger.CreateDraft(r.Context(), actorID(r), service.DraftRequest{
		ScopeID:     scopeID,
		Date:        date,
		Description: req.Description,
		Reference:   ref,
		Subject:     req.Subject,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// ListTransactions lists the transactions of one reference, e.g.
// ?reference_type=invoice&reference_id=12.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	refID, _ := strconv.ParseInt(q.Get("reference_id"), 10, 64)
	ref, err := domain.ParseReference(q.Get("reference_type"), refID)
	if err != nil {
		writeError(w, domain.NewValidationError("reference_type", "%v", err))
		return
	}

	txs, err := h.svc.Ledger.ListByReference(r.Context(), scopeID, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]transactionResponse, 0, len(txs))
	for i := range txs {
		resp = append(resp, toTransactionResponse(&txs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	tx, err := h.svc.Ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tx, err := h.svc.Ledger.AddEntry(r.Context(), id, domain.Entry{
		AccountID:    req.AccountID,
		Description:  req.Description,
		DebitAmount:  req.DebitAmount,
		CreditAmount: req.CreditAmount,
		ThirdParty:   req.ThirdParty,
		CostCenterID: req.CostCenterID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req postRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	tx, err := h.svc.Ledger.PostTransaction(r.Context(), actorID(r), id, req.SkipPeriodValidation)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	tx, err := h.svc.Ledger.CancelTransaction(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *Handler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	tx, err := h.svc.Ledger.ReverseTransaction(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *Handler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	h.setPeriod(w, r, h.svc.Ledger.ClosePeriod)
}

func (h *Handler) ReopenPeriod(w http.ResponseWriter, r *http.Request) {
	h.setPeriod(w, r, h.svc.Ledger.ReopenPeriod)
}

type periodFunc func(ctx context.Context, actorID, scopeID int64, year, month int) (*domain.AccountingPeriod, error)

func (h *Handler) setPeriod(w http.ResponseWriter, r *http.Request, fn periodFunc) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	year, month, err := periodVars(r)
	if err != nil {
		writeError(w, err)
		return
	}
	period, err := fn(r.Context(), actorID(r), scopeID, year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}
