package http

import (
	"mime"
	"net/http"
	"strings"

	"condo-ledger-backend/internal/bankimport"
	"condo-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type importRowRequest struct {
	PaymentType     string          `json:"payment_type"`
	ReferenceNumber string          `json:"reference_number"`
	TransactionAt   string          `json:"transaction_at"`
	Amount          decimal.Decimal `json:"amount"`
	ApprovalNumber  string          `json:"approval_number"`
	OriginatorTaxID string          `json:"originator_tax_id"`
	Detail          string          `json:"detail"`
}

type ingestResponse struct {
	BatchID string                     `json:"batch_id"`
	Rows    []domain.ImportRow         `json:"rows"`
	Skipped []bankimport.RowError      `json:"skipped,omitempty"`
	Summary *domain.ImportBatchSummary `json:"summary,omitempty"`
}

type assignRequest struct {
	ApartmentID int64  `json:"apartment_id"`
	Notes       string `json:"notes"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type rowPaymentRequest struct {
	Method domain.PaymentMethod `json:"method"`
}

// IngestBatch accepts either a JSON array of rows or a raw CSV bank export
// (Content-Type text/csv). With ?reconcile=true the batch is matched right away.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}

	var rows []domain.ImportRow
	var skipped []bankimport.RowError
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		result, err := h.parser.Parse(r.Body)
		if err != nil {
			writeError(w, domain.NewValidationError("body", "%v", err))
			return
		}
		rows, skipped = result.Rows, result.Skipped
	} else {
		var req []importRowRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		for i, rr := range req {
			at, err := h.parser.ParseDate(rr.TransactionAt)
			if err != nil {
				writeError(w, domain.NewValidationError("transaction_at", "row %d: %v", i+1, err))
				return
			}
			rows = append(rows, domain.ImportRow{
				PaymentType:     rr.PaymentType,
				ReferenceNumber: rr.ReferenceNumber,
				TransactionAt:   at,
				Amount:          rr.Amount,
				ApprovalNumber:  rr.ApprovalNumber,
				OriginatorTaxID: rr.OriginatorTaxID,
				Detail:          rr.Detail,
			})
		}
	}

	batchID, stored, err := h.svc.Reconciliation.IngestBatch(r.Context(), scopeID, rows)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := ingestResponse{BatchID: batchID, Rows: stored, Skipped: skipped}

	if strings.EqualFold(r.URL.Query().Get("reconcile"), "true") {
		if resp.Summary, err = h.svc.Reconciliation.ReconcileBatch(r.Context(), batchID); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ReconcileBatch(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Reconciliation.ReconcileBatch(r.Context(), muxVar(r, "batchID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) BatchSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Reconciliation.BatchSummary(r.Context(), muxVar(r, "batchID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ReconcileRow(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	row, err := h.svc.Reconciliation.AttemptAutomaticReconciliation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *Handler) AssignApartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req assignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	row, err := h.svc.Reconciliation.AssignApartment(r.Context(), actorID(r), id, req.ApartmentID, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *Handler) RejectRow(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req rejectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	row, err := h.svc.Reconciliation.RejectRow(r.Context(), actorID(r), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *Handler) CreatePaymentFromRow(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req rowPaymentRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	payment, apps, err := h.svc.Reconciliation.CreatePayment(r.Context(), actorID(r), id, req.Method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment, apps))
}
