package service

import (
	"context"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/events"
	"condo-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

// Every mutating operation takes the acting user explicitly and runs in one unit of work.

type ChartService interface {
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	MoveAccount(ctx context.Context, accountID int64, newParentID *int64, newCode string) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	GetBalance(ctx context.Context, accountID int64, period domain.DateRange) (decimal.Decimal, error)
	Ancestors(ctx context.Context, accountID int64) ([]domain.Account, error)
	Descendants(ctx context.Context, accountID int64) ([]domain.Account, error)
	ListAccounts(ctx context.Context, scopeID int64) ([]domain.Account, error)
}

// DraftRequest describes a new draft transaction. Subject is the apartment code
// used in the number; empty means a transaction not tied to an apartment.
type DraftRequest struct {
	ScopeID     int64
	Date        time.Time
	Description string
	Reference   domain.Reference
	Subject     string
}

type LedgerService interface {
	CreateDraft(ctx context.Context, actorID int64, req DraftRequest) (*domain.Transaction, error)
	AddEntry(ctx context.Context, transactionID int64, entry domain.Entry) (*domain.Transaction, error)
	PostTransaction(ctx context.Context, actorID, transactionID int64, skipPeriodValidation bool) (*domain.Transaction, error)
	CancelTransaction(ctx context.Context, actorID, transactionID int64) (*domain.Transaction, error)
	ReverseTransaction(ctx context.Context, actorID, transactionID int64) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	ListByReference(ctx context.Context, scopeID int64, ref domain.Reference) ([]domain.Transaction, error)
	ClosePeriod(ctx context.Context, actorID, scopeID int64, year, month int) (*domain.AccountingPeriod, error)
	ReopenPeriod(ctx context.Context, actorID, scopeID int64, year, month int) (*domain.AccountingPeriod, error)
}

type AccountMappingService interface {
	AccountsForConcept(ctx context.Context, scopeID, conceptID int64) (*domain.ConceptAccounts, error)
	CashAccountForMethod(ctx context.Context, scopeID int64, method domain.PaymentMethod) (int64, error)
}

type InvoiceService interface {
	CreateInvoice(ctx context.Context, actorID int64, invoice *domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	CancelInvoice(ctx context.Context, actorID, id int64) (*domain.Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

type ExpenseService interface {
	CreateExpense(ctx context.Context, actorID int64, expense *domain.Expense) (*domain.Expense, error)
	ApproveExpense(ctx context.Context, actorID, id int64) (*domain.Expense, error)
	CancelExpense(ctx context.Context, actorID, id int64) (*domain.Expense, error)
}

type PaymentService interface {
	RegisterPayment(ctx context.Context, actorID int64, payment *domain.Payment, autoApply bool) (*domain.Payment, []domain.PaymentApplication, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, []domain.PaymentApplication, error)
	ApplyToInvoices(ctx context.Context, actorID, paymentID int64) ([]domain.PaymentApplication, error)
	ReverseApplication(ctx context.Context, actorID, applicationID int64) (*domain.PaymentApplication, error)
	ReversePayment(ctx context.Context, actorID, paymentID int64) (*domain.Payment, error)
}

// ExecutionAlert is one execution whose variance crossed a threshold.
type ExecutionAlert struct {
	Execution domain.BudgetExecution `json:"execution"`
	Alert     domain.VarianceAlert   `json:"alert"`
}

type BudgetService interface {
	CreateBudget(ctx context.Context, actorID int64, budget *domain.Budget) (*domain.Budget, error)
	AddItem(ctx context.Context, budgetID int64, item *domain.BudgetItem) (*domain.BudgetItem, error)
	GetBudget(ctx context.Context, id int64) (*domain.Budget, error)
	ActivateBudget(ctx context.Context, actorID, budgetID int64) (*domain.Budget, error)
	CloseBudget(ctx context.Context, actorID, budgetID int64) (*domain.Budget, error)
	RefreshExecution(ctx context.Context, executionID int64) (*domain.BudgetExecution, error)
	RefreshPeriod(ctx context.Context, budgetID int64, month, year int) ([]domain.BudgetExecution, error)
	RefreshActiveBudgets(ctx context.Context, month, year int) (int, error)
	VarianceAlerts(ctx context.Context, budgetID int64, month, year int) ([]ExecutionAlert, error)
	HandleTransactionPosted(ctx context.Context, repos *repository.Repositories, evt events.TransactionPosted) error
}

type ReconciliationService interface {
	IngestBatch(ctx context.Context, scopeID int64, rows []domain.ImportRow) (string, []domain.ImportRow, error)
	AttemptAutomaticReconciliation(ctx context.Context, rowID int64) (*domain.ImportRow, error)
	ReconcileBatch(ctx context.Context, batchID string) (*domain.ImportBatchSummary, error)
	ReconcilePending(ctx context.Context, limit int) (int, error)
	AssignApartment(ctx context.Context, actorID, rowID, apartmentID int64, notes string) (*domain.ImportRow, error)
	RejectRow(ctx context.Context, actorID, rowID int64, reason string) (*domain.ImportRow, error)
	CreatePayment(ctx context.Context, actorID, rowID int64, method domain.PaymentMethod) (*domain.Payment, []domain.PaymentApplication, error)
	BatchSummary(ctx context.Context, batchID string) (*domain.ImportBatchSummary, error)
	BatchRows(ctx context.Context, batchID string) ([]domain.ImportRow, error)
}
