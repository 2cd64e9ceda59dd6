package jobs

import (
	"context"

	"condo-ledger-backend/internal/logger"
)

// RefreshBudgetExecutions re-derives the current month of every active budget.
// On the first day of a month the previous month is refreshed as well so late
// postings are picked up.
func (jr *JobRunner) RefreshBudgetExecutions() {
	jr.runWithRecovery("RefreshBudgetExecutions", func(ctx context.Context) error {
		today := jr.now().UTC()
		periods := [][2]int{{int(today.Month()), today.Year()}}
		if today.Day() == 1 {
			prev := today.AddDate(0, -1, 0)
			periods = append(periods, [2]int{int(prev.Month()), prev.Year()})
		}

		for _, p := range periods {
			refreshed, err := jr.services.Budget.RefreshActiveBudgets(ctx, p[0], p[1])
			if err != nil {
				return err
			}
			logger.Info("Refreshed budget executions", "month", p[0], "year", p[1], "executions", refreshed)
		}
		return nil
	})
}

// ReconcilePendingImports runs automatic matching over rows still pending.
func (jr *JobRunner) ReconcilePendingImports() {
	jr.runWithRecovery("ReconcilePendingImports", func(ctx context.Context) error {
		matched, err := jr.services.Reconciliation.ReconcilePending(ctx, jr.config.Ledger.ReconcileBatchSize)
		if err != nil {
			return err
		}
		logger.Info("Reconciled pending import rows", "matched", matched)
		return nil
	})
}

// MarkOverdueInvoices moves unpaid invoices past their due date to overdue.
func (jr *JobRunner) MarkOverdueInvoices() {
	jr.runWithRecovery("MarkOverdueInvoices", func(ctx context.Context) error {
		changed, err := jr.services.Invoice.MarkOverdue(ctx, jr.now())
		if err != nil {
			return err
		}
		logger.Info("Marked overdue invoices", "changed", changed)
		return nil
	})
}
