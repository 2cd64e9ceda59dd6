package http

import (
	"net/http"

	"condo-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type invoiceItemRequest struct {
	ConceptID   int64           `json:"concept_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type createInvoiceRequest struct {
	ApartmentID   int64                `json:"apartment_id"`
	BillingDate   string               `json:"billing_date"`
	DueDate       string               `json:"due_date"`
	EarlyDiscount decimal.Decimal      `json:"early_discount"`
	LateFees      decimal.Decimal      `json:"late_fees"`
	Items         []invoiceItemRequest `json:"items"`
}

type createExpenseRequest struct {
	SupplierID  *int64               `json:"supplier_id"`
	AccountID   int64                `json:"account_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Method      domain.PaymentMethod `json:"method"`
	ExpenseDate string               `json:"expense_date"`
	Description string               `json:"description"`
}

// invoiceResponse adds the derived balance due.
type invoiceResponse struct {
	*domain.Invoice
	BalanceDue decimal.Decimal `json:"balance_due"`
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req createInvoiceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	billing, err := requireDate("billing_date", req.BillingDate)
	if err != nil {
		writeError(w, err)
		return
	}
	due, err := requireDate("due_date", req.DueDate)
	if err != nil {
		writeError(w, err)
		return
	}

	inv := &domain.Invoice{
		ScopeID:       scopeID,
		ApartmentID:   req.ApartmentID,
		BillingDate:   billing,
		DueDate:       due,
		EarlyDiscount: req.EarlyDiscount,
		LateFees:      req.LateFees,
	}
	for _, item := range req.Items {
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ConceptID:   item.ConceptID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	inv, err = h.svc.Invoice.CreateInvoice(r.Context(), actorID(r), inv)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invoiceResponse{Invoice: inv, BalanceDue: inv.BalanceDue()})
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	inv, err := h.svc.Invoice.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceResponse{Invoice: inv, BalanceDue: inv.BalanceDue()})
}

func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	inv, err := h.svc.Invoice.CancelInvoice(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceResponse{Invoice: inv, BalanceDue: inv.BalanceDue()})
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	scopeID, err := pathInt(r, "scopeID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req createExpenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := requireDate("expense_date", req.ExpenseDate)
	if err != nil {
		writeError(w, err)
		return
	}

	expense, err := h.svc.Expense.CreateExpense(r.Context(), actorID(r), &domain.Expense{
		ScopeID:     scopeID,
		SupplierID:  req.SupplierID,
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Method:      req.Method,
		ExpenseDate: date,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	expense, err := h.svc.Expense.ApproveExpense(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (h *Handler) CancelExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	expense, err := h.svc.Expense.CancelExpense(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}
