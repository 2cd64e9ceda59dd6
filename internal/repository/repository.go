package repository

import (
	"context"

	"condo-ledger-backend/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByCode(ctx context.Context, scopeID int64, code string) (*domain.Account, error)
	ListByScope(ctx context.Context, scopeID int64) ([]domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	HasEntries(ctx context.Context, id int64) (bool, error)
	// SumPosted totals posted entries of every account whose code starts with codePrefix.
	SumPosted(ctx context.Context, scopeID int64, codePrefix string, period domain.DateRange) (domain.Totals, error)
}

type LedgerRepository interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id int64) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error
	AddEntry(ctx context.Context, entry *domain.Entry) error
	ListEntries(ctx context.Context, transactionID int64) ([]domain.Entry, error)
	ListByReference(ctx context.Context, scopeID int64, ref domain.Reference) ([]domain.Transaction, error)
	SumPostedByAccount(ctx context.Context, accountID int64, period domain.DateRange) (domain.Totals, error)

	GetPeriod(ctx context.Context, scopeID int64, year, month int) (*domain.AccountingPeriod, error)
	SavePeriod(ctx context.Context, period *domain.AccountingPeriod) error
}

// AccountMappingRepository exposes the static routing tables. Lookups return
// (nil, nil) when no mapping row exists.
type AccountMappingRepository interface {
	ConceptAccounts(ctx context.Context, scopeID, conceptID int64) (*domain.ConceptAccounts, error)
	DefaultConceptAccounts(ctx context.Context, scopeID int64) (*domain.ConceptAccounts, error)
	CashAccountForMethod(ctx context.Context, scopeID int64, method domain.PaymentMethod) (*int64, error)
	DefaultCashAccount(ctx context.Context, scopeID int64) (*int64, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice) error
	// ListOutstandingForUpdate locks the apartment's open invoices, oldest first.
	ListOutstandingForUpdate(ctx context.Context, apartmentID int64) ([]domain.Invoice, error)
	ListPastDue(ctx context.Context, asOf string) ([]domain.Invoice, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error

	CreateApplication(ctx context.Context, app *domain.PaymentApplication) error
	GetApplicationForUpdate(ctx context.Context, id int64) (*domain.PaymentApplication, error)
	UpdateApplication(ctx context.Context, app *domain.PaymentApplication) error
	ListApplications(ctx context.Context, paymentID int64) ([]domain.PaymentApplication, error)
	FindApplication(ctx context.Context, paymentID, invoiceID int64) (*domain.PaymentApplication, error)
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *domain.Expense) error
	GetForUpdate(ctx context.Context, id int64) (*domain.Expense, error)
	Update(ctx context.Context, expense *domain.Expense) error
}

type BudgetRepository interface {
	Create(ctx context.Context, budget *domain.Budget) error
	GetByID(ctx context.Context, id int64) (*domain.Budget, error)
	Update(ctx context.Context, budget *domain.Budget) error
	ListActive(ctx context.Context) ([]domain.Budget, error)
	ListActiveByYear(ctx context.Context, scopeID int64, year int) ([]domain.Budget, error)

	CreateItem(ctx context.Context, item *domain.BudgetItem) error

	CreateExecution(ctx context.Context, exec *domain.BudgetExecution) error
	UpdateExecution(ctx context.Context, exec *domain.BudgetExecution) error
	GetExecution(ctx context.Context, id int64) (*domain.BudgetExecution, error)
	ListExecutions(ctx context.Context, budgetID int64, month, year int) ([]domain.BudgetExecution, error)
	// ListActiveExecutionsForAccount finds executions of active budgets for one account and period.
	ListActiveExecutionsForAccount(ctx context.Context, accountID int64, month, year int) ([]domain.BudgetExecution, error)
}

type ImportRowRepository interface {
	Create(ctx context.Context, row *domain.ImportRow) error
	GetByID(ctx context.Context, id int64) (*domain.ImportRow, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.ImportRow, error)
	Update(ctx context.Context, row *domain.ImportRow) error
	ListByBatch(ctx context.Context, batchID string) ([]domain.ImportRow, error)
	ListPending(ctx context.Context, limit int) ([]domain.ImportRow, error)
}

// DirectoryRepository is the read side of apartments and residents.
type DirectoryRepository interface {
	GetApartment(ctx context.Context, id int64) (*domain.Apartment, error)
	// ListApartmentsByNumber returns every apartment whose number or tower-prefixed
	// code equals number, ordered by id.
	ListApartmentsByNumber(ctx context.Context, scopeID int64, number string) ([]domain.Apartment, error)
	// FindActiveOwnerByDocument matches the digits-only, zero-trimmed document number.
	FindActiveOwnerByDocument(ctx context.Context, scopeID int64, normalizedDocument string) (*domain.Resident, error)
}

type SequenceRepository interface {
	// Next increments and returns the counter for key under a row lock.
	Next(ctx context.Context, scopeID int64, key string) (int, error)
	NumberExists(ctx context.Context, kind domain.DocumentKind, scopeID int64, number string) (bool, error)
}

// Repositories groups every repository bound to one unit of work.
type Repositories struct {
	Accounts  AccountRepository
	Ledger    LedgerRepository
	Mappings  AccountMappingRepository
	Invoices  InvoiceRepository
	Payments  PaymentRepository
	Expenses  ExpenseRepository
	Budgets   BudgetRepository
	Imports   ImportRowRepository
	Directory DirectoryRepository
	Sequences SequenceRepository
}

// UnitOfWork runs fn atomically: everything fn writes commits or rolls back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}
