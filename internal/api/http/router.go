// Package http exposes the ledger services as a JSON REST API.
package http

import (
	"net/http"

	"condo-ledger-backend/internal/bankimport"
	"condo-ledger-backend/internal/security"
	"condo-ledger-backend/internal/service"

	"github.com/gorilla/mux"
)

// Services groups everything the handlers call.
type Services struct {
	Chart          service.ChartService
	Ledger         service.LedgerService
	Mapping        service.AccountMappingService
	Invoice        service.InvoiceService
	Expense        service.ExpenseService
	Payment        service.PaymentService
	Budget         service.BudgetService
	Reconciliation service.ReconciliationService
}

type Handler struct {
	svc    *Services
	parser *bankimport.Parser
}

func NewHandler(svc *Services) *Handler {
	return &Handler{svc: svc, parser: bankimport.NewParser()}
}

// NewRouter registers every route under /api/v1. Route names key the security
// levels in config.EndpointSecurityConfig.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.Use(loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(NewAuthMiddleware(tm).Handler)

	api.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("health")

	scope := api.PathPrefix("/scopes/{scopeID:[0-9]+}").Subrouter()

	// Chart of accounts
	scope.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost).Name("accounts.create")
	scope.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet).Name("accounts.list")
	api.HandleFunc("/accounts/{id:[0-9]+}/move", h.MoveAccount).Methods(http.MethodPost).Name("accounts.move")
	api.HandleFunc("/accounts/{id:[0-9]+}/deactivate", h.DeactivateAccount).Methods(http.MethodPost).Name("accounts.deactivate")
	api.HandleFunc("/accounts/{id:[0-9]+}/balance", h.GetBalance).Methods(http.MethodGet).Name("accounts.balance")
	api.HandleFunc("/accounts/{id:[0-9]+}/ancestors", h.Ancestors).Methods(http.MethodGet).Name("accounts.ancestors")
	api.HandleFunc("/accounts/{id:[0-9]+}/descendants", h.Descendants).Methods(http.MethodGet).Name("accounts.descendants")

	// Ledger
	scope.HandleFunc("/transactions", h.CreateDraft).Methods(http.MethodPost).Name("transactions.create")
	scope.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet).Name("transactions.list")
	api.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods(http.MethodGet).Name("transactions.get")
	api.HandleFunc("/transactions/{id:[0-9]+}/entries", h.AddEntry).Methods(http.MethodPost).Name("transactions.entries")
	api.HandleFunc("/transactions/{id:[0-9]+}/post", h.PostTransaction).Methods(http.MethodPost).Name("transactions.post")
	api.HandleFunc("/transactions/{id:[0-9]+}/cancel", h.CancelTransaction).Methods(http.MethodPost).Name("transactions.cancel")
	api.HandleFunc("/transactions/{id:[0-9]+}/reverse", h.ReverseTransaction).Methods(http.MethodPost).Name("transactions.reverse")
	scope.HandleFunc("/periods/{year:[0-9]{4}}/{month:[0-9]{1,2}}/close", h.ClosePeriod).Methods(http.MethodPost).Name("periods.close")
	scope.HandleFunc("/periods/{year:[0-9]{4}}/{month:[0-9]{1,2}}/reopen", h.ReopenPeriod).Methods(http.MethodPost).Name("periods.reopen")

	// Account mapping
	scope.HandleFunc("/concepts/{id:[0-9]+}/accounts", h.ConceptAccounts).Methods(http.MethodGet).Name("mappings.concept")
	scope.HandleFunc("/cash-accounts/{method}", h.CashAccount).Methods(http.MethodGet).Name("mappings.cash")

	// Invoices and expenses
	scope.HandleFunc("/invoices", h.CreateInvoice).Methods(http.MethodPost).Name("invoices.create")
	api.HandleFunc("/invoices/{id:[0-9]+}", h.GetInvoice).Methods(http.MethodGet).Name("invoices.get")
	api.HandleFunc("/invoices/{id:[0-9]+}/cancel", h.CancelInvoice).Methods(http.MethodPost).Name("invoices.cancel")
	scope.HandleFunc("/expenses", h.CreateExpense).Methods(http.MethodPost).Name("expenses.create")
	api.HandleFunc("/expenses/{id:[0-9]+}/approve", h.ApproveExpense).Methods(http.MethodPost).Name("expenses.approve")
	api.HandleFunc("/expenses/{id:[0-9]+}/cancel", h.CancelExpense).Methods(http.MethodPost).Name("expenses.cancel")

	// Payments
	scope.HandleFunc("/payments", h.RegisterPayment).Methods(http.MethodPost).Name("payments.create")
	api.HandleFunc("/payments/{id:[0-9]+}", h.GetPayment).Methods(http.MethodGet).Name("payments.get")
	api.HandleFunc("/payments/{id:[0-9]+}/apply", h.ApplyPayment).Methods(http.MethodPost).Name("payments.apply")
	api.HandleFunc("/payments/{id:[0-9]+}/reverse", h.ReversePayment).Methods(http.MethodPost).Name("payments.reverse")
	api.HandleFunc("/applications/{id:[0-9]+}/reverse", h.ReverseApplication).Methods(http.MethodPost).Name("applications.reverse")

	// Budgets
	scope.HandleFunc("/budgets", h.CreateBudget).Methods(http.MethodPost).Name("budgets.create")
	api.HandleFunc("/budgets/{id:[0-9]+}", h.GetBudget).Methods(http.MethodGet).Name("budgets.get")
	api.HandleFunc("/budgets/{id:[0-9]+}/items", h.AddBudgetItem).Methods(http.MethodPost).Name("budgets.items")
	api.HandleFunc("/budgets/{id:[0-9]+}/activate", h.ActivateBudget).Methods(http.MethodPost).Name("budgets.activate")
	api.HandleFunc("/budgets/{id:[0-9]+}/close", h.CloseBudget).Methods(http.MethodPost).Name("budgets.close")
	api.HandleFunc("/budgets/{id:[0-9]+}/periods/{year:[0-9]{4}}/{month:[0-9]{1,2}}/refresh", h.RefreshBudgetPeriod).Methods(http.MethodPost).Name("budgets.refresh")
	api.HandleFunc("/budgets/{id:[0-9]+}/periods/{year:[0-9]{4}}/{month:[0-9]{1,2}}/alerts", h.VarianceAlerts).Methods(http.MethodGet).Name("budgets.alerts")
	api.HandleFunc("/executions/{id:[0-9]+}/refresh", h.RefreshExecution).Methods(http.MethodPost).Name("executions.refresh")

	// Bank imports
	scope.HandleFunc("/imports", h.IngestBatch).Methods(http.MethodPost).Name("imports.create")
	api.HandleFunc("/imports/{batchID}/reconcile", h.ReconcileBatch).Methods(http.MethodPost).Name("imports.reconcile")
	api.HandleFunc("/imports/{batchID}/summary", h.BatchSummary).Methods(http.MethodGet).Name("imports.summary")
	api.HandleFunc("/import-rows/{id:[0-9]+}/reconcile", h.ReconcileRow).Methods(http.MethodPost).Name("rows.reconcile")
	api.HandleFunc("/import-rows/{id:[0-9]+}/assign", h.AssignApartment).Methods(http.MethodPost).Name("rows.assign")
	api.HandleFunc("/import-rows/{id:[0-9]+}/reject", h.RejectRow).Methods(http.MethodPost).Name("rows.reject")
	api.HandleFunc("/import-rows/{id:[0-9]+}/payment", h.CreatePaymentFromRow).Methods(http.MethodPost).Name("rows.payment")

	return router
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
