package service

import (
	"context"
	"testing"
	"time"

	"condo-ledger-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *ledgerFixture) activeBudget(t *testing.T) *domain.Budget {
	t.Helper()
	ctx := context.Background()
	b, err := f.budgets.CreateBudget(ctx, 7, &domain.Budget{
		ScopeID:    testScope,
		FiscalYear: 2024,
		Items: []domain.BudgetItem{
			{AccountID: f.maintenanceID, Category: domain.BudgetCategoryExpense, AnnualAmount: money("1200")},
			{AccountID: f.incomeID, Category: domain.BudgetCategoryIncome, AnnualAmount: money("1000")},
		},
	})
	require.NoError(t, err)
	b, err = f.budgets.ActivateBudget(ctx, 7, b.ID)
	require.NoError(t, err)
	return b
}

func (f *ledgerFixture) execution(itemID int64, month int) domain.BudgetExecution {
	for _, e := range f.store.executions {
		if e.BudgetItemID == itemID && e.Month == month {
			return e
		}
	}
	return domain.BudgetExecution{}
}

func TestBudgetService_CreateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("Spreads annual amounts", func(t *testing.T) {
		f := newLedgerFixture(t)

		b, err := f.budgets.CreateBudget(ctx, 7, &domain.Budget{
			ScopeID:    testScope,
			FiscalYear: 2024,
			Items: []domain.BudgetItem{
				{AccountID: f.incomeID, Category: domain.BudgetCategoryIncome, AnnualAmount: money("1000")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Budget 2024", b.Name)
		assert.Equal(t, domain.BudgetStatusDraft, b.Status)
		require.Len(t, b.Items, 1)

		item := b.Items[0]
		assert.True(t, money("83.33").Equal(item.Monthly[0]))
		assert.True(t, money("83.37").Equal(item.Monthly[11]))
		assert.True(t, money("1000").Equal(item.MonthlySum()))

		income, expense := b.Totals()
		assert.True(t, money("1000").Equal(income))
		assert.True(t, expense.IsZero())
	})

	t.Run("Keeps an explicit split", func(t *testing.T) {
		f := newLedgerFixture(t)
		item := domain.BudgetItem{AccountID: f.maintenanceID, Category: domain.BudgetCategoryExpense, AnnualAmount: money("100")}
		item.Monthly[5] = money("100")

		b, err := f.budgets.CreateBudget(ctx, 7, &domain.Budget{ScopeID: testScope, FiscalYear: 2024, Items: []domain.BudgetItem{item}})
		require.NoError(t, err)
		assert.True(t, b.Items[0].Monthly[0].IsZero())
		assert.True(t, money("100").Equal(b.Items[0].AmountForMonth(6)))
	})

	t.Run("Fiscal year out of range", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.budgets.CreateBudget(ctx, 7, &domain.Budget{ScopeID: testScope, FiscalYear: 1999})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Same account twice", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.budgets.CreateBudget(ctx, 7, &domain.Budget{
			ScopeID:    testScope,
			FiscalYear: 2024,
			Items: []domain.BudgetItem{
				{AccountID: f.maintenanceID, Category: domain.BudgetCategoryExpense, AnnualAmount: money("10")},
				{AccountID: f.maintenanceID, Category: domain.BudgetCategoryExpense, AnnualAmount: money("20")},
			},
		})
		assert.True(t, domain.IsValidation(err))
		assert.Empty(t, f.store.budgets)
	})
	t.Run("Grouping account", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.budgets.CreateBudget(ctx, 7, &domain.Budget{
			ScopeID:    testScope,
			FiscalYear: 2024,
			Items: []domain.BudgetItem{
				{AccountID: f.assetsID, Category: domain.BudgetCategoryExpense, AnnualAmount: money("10")},
			},
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "groups sub-accounts")
		assert.Empty(t, f.store.budgets)
	})
}

func TestBudgetService_ActivateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("Seeds twelve executions per item", func(t *testing.T) {
		f := newLedgerFixture(t)

		b := f.activeBudget(t)
		assert.Equal(t, domain.BudgetStatusActive, b.Status)
		require.NotNil(t, b.ApprovedBy)
		assert.Len(t, f.store.executions, 24)

		march := f.execution(b.Items[0].ID, 3)
		assert.True(t, money("100").Equal(march.BudgetedAmount))
		assert.True(t, march.ActualAmount.IsZero())
	})

	t.Run("Supersedes the active budget of the year", func(t *testing.T) {
		f := newLedgerFixture(t)
		first := f.activeBudget(t)

		second := f.activeBudget(t)
		assert.Equal(t, domain.BudgetStatusClosed, f.store.budgets[first.ID].Status)
		assert.Equal(t, domain.BudgetStatusActive, f.store.budgets[second.ID].Status)
	})

	t.Run("Only drafts", func(t *testing.T) {
		f := newLedgerFixture(t)
		b := f.activeBudget(t)

		_, err := f.budgets.ActivateBudget(ctx, 7, b.ID)
		assert.True(t, domain.IsInvalidState(err))

		_, err = f.budgets.AddItem(ctx, b.ID, &domain.BudgetItem{AccountID: f.cashID, Category: domain.BudgetCategoryExpense, AnnualAmount: money("12")})
		assert.True(t, domain.IsInvalidState(err))
	})
}

func TestBudgetService_Execution(t *testing.T) {
	ctx := context.Background()

	t.Run("Posting refreshes the touched execution", func(t *testing.T) {
		f := newLedgerFixture(t)
		b := f.activeBudget(t)
		maintenance := b.Items[0]

		e := f.expense(t, "120.00", domain.PaymentMethodCash)
		_, err := f.expenses.ApproveExpense(ctx, 7, e.ID)
		require.NoError(t, err)

		march := f.execution(maintenance.ID, 3)
		assert.True(t, money("120").Equal(march.ActualAmount))
		assert.True(t, money("20").Equal(march.VarianceAmount))
		assert.True(t, money("20").Equal(march.VariancePercentage))
		assert.NotNil(t, march.CalculatedAt)
		assert.Nil(t, f.execution(maintenance.ID, 4).CalculatedAt)

		alerts, err := f.budgets.VarianceAlerts(ctx, b.ID, 3, 2024)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, domain.VarianceAlertDanger, alerts[0].Alert)
		assert.Equal(t, maintenance.ID, alerts[0].Execution.BudgetItemID)
	})

	t.Run("Income realizes credits", func(t *testing.T) {
		f := newLedgerFixture(t)
		b := f.activeBudget(t)
		f.invoice(t, "60.00", day(2024, time.March, 1))

		income := f.execution(b.Items[1].ID, 3)
		assert.True(t, money("60").Equal(income.ActualAmount))
		assert.True(t, income.VariancePercentage.IsNegative())
	})

	t.Run("Refresh period and active budgets", func(t *testing.T) {
		f := newLedgerFixture(t)
		b := f.activeBudget(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("104"), "a"),
			domain.CreditEntry(f.cashID, money("104"), "b"))
		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.NoError(t, err)

		// Cancelling does not publish, so the execution is stale until refreshed.
		_, err = f.ledger.CancelTransaction(ctx, 7, tx.ID)
		require.NoError(t, err)
		assert.True(t, money("104").Equal(f.execution(b.Items[0].ID, 3).ActualAmount))

		execs, err := f.budgets.RefreshPeriod(ctx, b.ID, 3, 2024)
		require.NoError(t, err)
		assert.Len(t, execs, 2)
		assert.True(t, f.execution(b.Items[0].ID, 3).ActualAmount.IsZero())

		refreshed, err := f.budgets.RefreshActiveBudgets(ctx, 3, 2024)
		require.NoError(t, err)
		assert.Equal(t, 2, refreshed)

		refreshed, err = f.budgets.RefreshActiveBudgets(ctx, 3, 2023)
		require.NoError(t, err)
		assert.Zero(t, refreshed)
	})

	t.Run("Warning band", func(t *testing.T) {
		f := newLedgerFixture(t)
		b := f.activeBudget(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("106"), "a"),
			domain.CreditEntry(f.cashID, money("106"), "b"))
		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.NoError(t, err)

		exec := f.execution(b.Items[0].ID, 3)
		refreshed, err := f.budgets.RefreshExecution(ctx, exec.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VarianceAlertWarning, refreshed.Alert())
	})
}

func TestBudgetService_CloseBudget(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	t.Run("Draft", func(t *testing.T) {
		b, err := f.budgets.CreateBudget(ctx, 7, &domain.Budget{ScopeID: testScope, FiscalYear: 2025})
		require.NoError(t, err)

		_, err = f.budgets.CloseBudget(ctx, 7, b.ID)
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Active", func(t *testing.T) {
		b := f.activeBudget(t)

		closed, err := f.budgets.CloseBudget(ctx, 7, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BudgetStatusClosed, closed.Status)

		e := f.expense(t, "120.00", domain.PaymentMethodCash)
		_, err = f.expenses.ApproveExpense(ctx, 7, e.ID)
		require.NoError(t, err)
		assert.True(t, f.execution(b.Items[0].ID, 3).ActualAmount.IsZero())
	})
}
