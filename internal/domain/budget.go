package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BudgetStatus string

const (
	BudgetStatusDraft  BudgetStatus = "draft"
	BudgetStatusActive BudgetStatus = "active"
	BudgetStatusClosed BudgetStatus = "closed"
)

type BudgetCategory string

const (
	BudgetCategoryIncome  BudgetCategory = "income"
	BudgetCategoryExpense BudgetCategory = "expense"
)

type Budget struct {
	ID         int64        `json:"id"`
	ScopeID    int64        `json:"scope_id"`
	FiscalYear int          `json:"fiscal_year"`
	Name       string       `json:"name"`
	Status     BudgetStatus `json:"status"`
	ApprovedBy *int64       `json:"approved_by,omitempty"`
	ApprovedAt *time.Time   `json:"approved_at,omitempty"`
	CreatedBy  int64        `json:"created_by"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Items      []BudgetItem `json:"items,omitempty"`
}

// Totals returns budgeted income and expenses, computed from the items.
func (b *Budget) Totals() (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, item := range b.Items {
		if item.Category == BudgetCategoryIncome {
			income = income.Add(item.AnnualAmount)
		} else {
			expense = expense.Add(item.AnnualAmount)
		}
	}
	return income, expense
}

type BudgetItem struct {
	ID           int64               `json:"id"`
	BudgetID     int64               `json:"budget_id"`
	AccountID    int64               `json:"account_id"`
	Category     BudgetCategory      `json:"category"`
	AnnualAmount decimal.Decimal     `json:"annual_amount"`
	Monthly      [12]decimal.Decimal `json:"monthly"`
	Notes        string              `json:"notes,omitempty"`
}

// DistributeEvenly splits the annual amount over twelve months, rounding to cents.
// Rounding leftovers go to December so the months always sum to the annual total.
func (i *BudgetItem) DistributeEvenly() {
	share := i.AnnualAmount.Div(decimal.NewFromInt(12)).RoundDown(2)
	allocated := decimal.Zero
	for m := 0; m < 11; m++ {
		i.Monthly[m] = share
		allocated = allocated.Add(share)
	}
	i.Monthly[11] = i.AnnualAmount.Sub(allocated)
}

// MonthlySum may differ from AnnualAmount; the two are not forced equal.
func (i *BudgetItem) MonthlySum() decimal.Decimal {
	sum := decimal.Zero
	for _, m := range i.Monthly {
		sum = sum.Add(m)
	}
	return sum
}

// AmountForMonth returns the bucket for month 1..12.
func (i *BudgetItem) AmountForMonth(month int) decimal.Decimal {
	if month < 1 || month > 12 {
		return decimal.Zero
	}
	return i.Monthly[month-1]
}

func (i *BudgetItem) Validate() error {
	if i.AccountID == 0 {
		return NewValidationError("account_id", "account is required")
	}
	if i.Category != BudgetCategoryIncome && i.Category != BudgetCategoryExpense {
		return NewValidationError("category", "unknown budget category %q", i.Category)
	}
	if i.AnnualAmount.IsNegative() {
		return NewValidationError("annual_amount", "annual amount cannot be negative")
	}
	for m, amount := range i.Monthly {
		if amount.IsNegative() {
			return NewValidationError("monthly", "month %d amount cannot be negative", m+1)
		}
	}
	return nil
}

type VarianceAlert string

const (
	VarianceAlertNone    VarianceAlert = ""
	VarianceAlertWarning VarianceAlert = "warning"
	VarianceAlertDanger  VarianceAlert = "danger"
)

var (
	varianceDangerThreshold  = decimal.NewFromInt(10)
	varianceWarningThreshold = decimal.NewFromInt(5)
	hundred                  = decimal.NewFromInt(100)
)

// BudgetExecution pairs one item with one (month, year).
type BudgetExecution struct {
	ID                 int64           `json:"id"`
	BudgetItemID       int64           `json:"budget_item_id"`
	AccountID          int64           `json:"account_id"`
	Month              int             `json:"month"`
	Year               int             `json:"year"`
	BudgetedAmount     decimal.Decimal `json:"budgeted_amount"`
	ActualAmount       decimal.Decimal `json:"actual_amount"`
	VarianceAmount     decimal.Decimal `json:"variance_amount"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
	CalculatedAt       *time.Time      `json:"calculated_at,omitempty"`
}

// ActualFromTotals derives the realized amount of an account from its period totals.
// Credit-nature accounts (income) realize credits minus debits, debit-nature
// accounts (expense) the opposite. Never below zero.
func ActualFromTotals(nature AccountNature, t Totals) decimal.Decimal {
	var actual decimal.Decimal
	if nature == NatureCredit {
		actual = t.Credit.Sub(t.Debit)
	} else {
		actual = t.Debit.Sub(t.Credit)
	}
	if actual.IsNegative() {
		return decimal.Zero
	}
	return actual
}

// ApplyActual stores actual and the derived variance fields.
func (e *BudgetExecution) ApplyActual(actual decimal.Decimal, at time.Time) {
	e.ActualAmount = actual
	e.VarianceAmount = actual.Sub(e.BudgetedAmount)
	if e.BudgetedAmount.IsZero() {
		e.VariancePercentage = decimal.Zero
	} else {
		e.VariancePercentage = e.VarianceAmount.Div(e.BudgetedAmount).Mul(hundred).Round(2)
	}
	e.CalculatedAt = &at
}

func (e *BudgetExecution) Alert() VarianceAlert {
	switch {
	case e.VariancePercentage.GreaterThan(varianceDangerThreshold):
		return VarianceAlertDanger
	case e.VariancePercentage.GreaterThan(varianceWarningThreshold):
		return VarianceAlertWarning
	default:
		return VarianceAlertNone
	}
}
