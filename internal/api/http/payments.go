package http

import (
	"net/http"
	"strconv"

	"condo-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type registerPaymentRequest struct {
	ApartmentID int64                `json:"apartment_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Method      domain.PaymentMethod `json:"method"`
	PaymentDate string               `json:"payment_date"`
	Reference   string               `json:"reference"`
}

type paymentResponse struct {
	*domain.Payment
	RemainingAmount decimal.Decimal             `json:"remaining_amount"`
	Applications    []domain.PaymentApplication `json:"applications"`
}

func toPaymentResponse(p *domain.Payment, apps []domain.PaymentApplication) paymentResponse {
	if apps == nil {
		apps = []domain.PaymentApplication{}
	}
	return paymentResponse{Payment: p, RemainingAmount: p.RemainingAmount(), Applications: apps}
}

// RegisterPayment applies the payment to outstanding invoices unless
// ?auto_apply=false.
func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	autoApply := true
	if raw := r.URL.Query().Get("auto_apply"); raw != "" {
		if autoApply, err = strconv.ParseBool(raw); err != nil {
			writeError(w, domain.NewValidationError("auto_apply", "invalid boolean %q", raw))
			return
		}
	}
	var req registerPaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := requireDate("payment_date", req.PaymentDate)
	if err != nil {
		writeError(w, err)
		return
	}

	payment, apps, err := h.svc.Payment.RegisterPayment(r.Context(), actorID(r), &domain.Payment{
		ScopeID:     scopeID,
		ApartmentID: req.ApartmentID,
		Amount:      req.Amount,
		Method:      req.Method,
		PaymentDate: date,
		Reference:   req.Reference,
	}, autoApply)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment, apps))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	payment, apps, err := h.svc.Payment.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment, apps))
}

func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	apps, err := h.svc.Payment.ApplyToInvoices(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if apps == nil {
		apps = []domain.PaymentApplication{}
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *Handler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	payment, err := h.svc.Payment.ReversePayment(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment, nil))
}

func (h *Handler) ReverseApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	app, err := h.svc.Payment.ReverseApplication(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
