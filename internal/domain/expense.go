package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseStatus string

const (
	ExpenseStatusPending   ExpenseStatus = "pending"
	ExpenseStatusApproved  ExpenseStatus = "approved"
	ExpenseStatusCancelled ExpenseStatus = "cancelled"
)

type Expense struct {
	ID            int64           `json:"id"`
	ScopeID       int64           `json:"scope_id"`
	Number        string          `json:"number"`
	SupplierID    *int64          `json:"supplier_id,omitempty"`
	AccountID     int64           `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	ExpenseDate   time.Time       `json:"expense_date"`
	Description   string          `json:"description"`
	Status        ExpenseStatus   `json:"status"`
	TransactionID *int64          `json:"transaction_id,omitempty"`
	ApprovedBy    *int64          `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (e *Expense) Validate() error {
	if e.AccountID == 0 {
		return NewValidationError("account_id", "expense account is required")
	}
	if !e.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be positive")
	}
	if !e.Method.Valid() {
		return NewValidationError("method", "unknown payment method %q", e.Method)
	}
	if e.ExpenseDate.IsZero() {
		return NewValidationError("expense_date", "expense date is required")
	}
	return nil
}

// ConceptAccounts is the routing of a billing concept to the ledger.
type ConceptAccounts struct {
	IncomeAccountID     int64 `json:"income_account_id"`
	ReceivableAccountID int64 `json:"receivable_account_id"`
}
