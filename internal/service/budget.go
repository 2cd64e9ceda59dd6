package service

import (
	"context"
	"errors"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/events"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type budgetService struct {
	uow repository.UnitOfWork
}

func NewBudgetService(uow repository.UnitOfWork) BudgetService {
	return &budgetService{uow: uow}
}

func (s *budgetService) CreateBudget(ctx context.Context, actorID int64, b *domain.Budget) (*domain.Budget, error) {
	logger.EnterMethod("budgetService.CreateBudget", "scopeID", b.ScopeID, "fiscalYear", b.FiscalYear)

	if b.FiscalYear < 2000 || b.FiscalYear > 2100 {
		return nil, domain.NewValidationError("fiscal_year", "fiscal year %d is out of range", b.FiscalYear)
	}
	if b.Name == "" {
		b.Name = fmt.Sprintf("Budget %d", b.FiscalYear)
	}
	items := b.Items

	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, b.ScopeID); err != nil {
			return err
		}
		b.Status = domain.BudgetStatusDraft
		b.CreatedBy = actorID
		if err := repos.Budgets.Create(ctx, b); err != nil {
			return err
		}
		b.Items = nil
		for i := range items {
			if err := s.addItem(ctx, repos, b, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("budgetService.CreateBudget", err, "scopeID", b.ScopeID)
		return nil, err
	}

	logger.ExitMethod("budgetService.CreateBudget", "budgetID", b.ID, "items", len(b.Items))
	return b, nil
}

// addItem spreads the annual amount evenly when no monthly split was given.
func (s *budgetService) addItem(ctx context.Context, repos *repository.Repositories, b *domain.Budget, item *domain.BudgetItem) error {
	if b.Status != domain.BudgetStatusDraft {
		return &domain.InvalidStateError{Entity: "budget", ID: b.ID, State: string(b.Status), Operation: "add item to"}
	}
	if item.MonthlySum().IsZero() {
		item.DistributeEvenly()
	}
	if err := item.Validate(); err != nil {
		return err
	}
	for _, existing := range b.Items {
		if existing.AccountID == item.AccountID {
			return domain.NewValidationError("account_id", "account %d is already budgeted", item.AccountID)
		}
	}
	account, err := repos.Accounts.GetByID(ctx, item.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError("account_id", "account %d does not exist", item.AccountID)
	}
	if err != nil {
		return err
	}
	if account.ScopeID != b.ScopeID {
		return domain.NewValidationError("account_id", "account %s belongs to another scope", account.Code)
	}
	if !account.Postable {
		return domain.NewValidationError("account_id", "account %s groups sub-accounts, budget those instead", account.Code)
	}
	if !item.MonthlySum().Equal(item.AnnualAmount) {
		logger.Warn("Budget item months do not add up to the annual amount",
			"budgetID", b.ID, "accountID", item.AccountID, "annual", item.AnnualAmount, "months", item.MonthlySum())
	}

	item.BudgetID = b.ID
	if err := repos.Budgets.CreateItem(ctx, item); err != nil {
		return err
	}
	b.Items = append(b.Items, *item)
	return nil
}

func (s *budgetService) AddItem(ctx context.Context, budgetID int64, item *domain.BudgetItem) (*domain.BudgetItem, error) {
	logger.EnterMethod("budgetService.AddItem", "budgetID", budgetID, "accountID", item.AccountID)

	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		b, err := repos.Budgets.GetByID(ctx, budgetID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, b.ScopeID); err != nil {
			return err
		}
		return s.addItem(ctx, repos, b, item)
	})
	if err != nil {
		logger.ExitMethodWithError("budgetService.AddItem", err, "budgetID", budgetID)
		return nil, err
	}

	logger.ExitMethod("budgetService.AddItem", "itemID", item.ID)
	return item, nil
}

func (s *budgetService) GetBudget(ctx context.Context, id int64) (*domain.Budget, error) {
	var b *domain.Budget
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if b, err = repos.Budgets.GetByID(ctx, id); err != nil {
			return err
		}
		return authorizeScope(ctx, b.ScopeID)
	})
	return b, err
}

// ActivateBudget closes any other active budget of the same scope and year,
// then seeds twelve executions per item.
func (s *budgetService) ActivateBudget(ctx context.Context, actorID, budgetID int64) (*domain.Budget, error) {
	logger.EnterMethod("budgetService.ActivateBudget", "budgetID", budgetID, "actorID", actorID)

	var b *domain.Budget
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if b, err = repos.Budgets.GetByID(ctx, budgetID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, b.ScopeID); err != nil {
			return err
		}
		if b.Status != domain.BudgetStatusDraft {
			return &domain.InvalidStateError{Entity: "budget", ID: b.ID, State: string(b.Status), Operation: "activate"}
		}

		active, err := repos.Budgets.ListActiveByYear(ctx, b.ScopeID, b.FiscalYear)
		if err != nil {
			return err
		}
		for i := range active {
			if active[i].ID == b.ID {
				continue
			}
			active[i].Status = domain.BudgetStatusClosed
			if err := repos.Budgets.Update(ctx, &active[i]); err != nil {
				return err
			}
			logger.Info("Closed superseded budget", "budgetID", active[i].ID, "fiscalYear", b.FiscalYear)
		}

		for _, item := range b.Items {
			for month := 1; month <= 12; month++ {
				exec := &domain.BudgetExecution{
					BudgetItemID:       item.ID,
					AccountID:          item.AccountID,
					Month:              month,
					Year:               b.FiscalYear,
					BudgetedAmount:     item.AmountForMonth(month),
					ActualAmount:       decimal.Zero,
					VarianceAmount:     decimal.Zero,
					VariancePercentage: decimal.Zero,
				}
				if err := repos.Budgets.CreateExecution(ctx, exec); err != nil {
					return fmt.Errorf("failed to seed execution %d/%d for item %d: %w", month, b.FiscalYear, item.ID, err)
				}
			}
		}

		approvedAt := now()
		b.Status = domain.BudgetStatusActive
		b.ApprovedBy = &actorID
		b.ApprovedAt = &approvedAt
		return repos.Budgets.Update(ctx, b)
	})
	if err != nil {
		logger.ExitMethodWithError("budgetService.ActivateBudget", err, "budgetID", budgetID)
		return nil, err
	}

	logger.ExitMethod("budgetService.ActivateBudget", "budgetID", budgetID, "items", len(b.Items))
	return b, nil
}

func (s *budgetService) CloseBudget(ctx context.Context, actorID, budgetID int64) (*domain.Budget, error) {
	logger.EnterMethod("budgetService.CloseBudget", "budgetID", budgetID, "actorID", actorID)

	var b *domain.Budget
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if b, err = repos.Budgets.GetByID(ctx, budgetID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, b.ScopeID); err != nil {
			return err
		}
		if b.Status != domain.BudgetStatusActive {
			return &domain.InvalidStateError{Entity: "budget", ID: b.ID, State: string(b.Status), Operation: "close"}
		}
		b.Status = domain.BudgetStatusClosed
		return repos.Budgets.Update(ctx, b)
	})
	if err != nil {
		logger.ExitMethodWithError("budgetService.CloseBudget", err, "budgetID", budgetID)
		return nil, err
	}

	logger.ExitMethod("budgetService.CloseBudget", "budgetID", budgetID)
	return b, nil
}

// refreshExecution re-derives actual and variance of one execution from posted entries.
func refreshExecution(ctx context.Context, repos *repository.Repositories, exec *domain.BudgetExecution) error {
	account, err := repos.Accounts.GetByID(ctx, exec.AccountID)
	if err != nil {
		return err
	}
	totals, err := repos.Ledger.SumPostedByAccount(ctx, exec.AccountID, domain.MonthRange(exec.Year, exec.Month))
	if err != nil {
		return err
	}
	exec.ApplyActual(domain.ActualFromTotals(account.Nature, totals), now())
	return repos.Budgets.UpdateExecution(ctx, exec)
}

func (s *budgetService) RefreshExecution(ctx context.Context, executionID int64) (*domain.BudgetExecution, error) {
	logger.EnterMethod("budgetService.RefreshExecution", "executionID", executionID)

	var exec *domain.BudgetExecution
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if exec, err = repos.Budgets.GetExecution(ctx, executionID); err != nil {
			return err
		}
		account, err := repos.Accounts.GetByID(ctx, exec.AccountID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, account.ScopeID); err != nil {
			return err
		}
		return refreshExecution(ctx, repos, exec)
	})
	if err != nil {
		logger.ExitMethodWithError("budgetService.RefreshExecution", err, "executionID", executionID)
		return nil, err
	}

	logger.ExitMethod("budgetService.RefreshExecution", "executionID", executionID, "actual", exec.ActualAmount)
	return exec, nil
}

func (s *budgetService) RefreshPeriod(ctx context.Context, budgetID int64, month, year int) ([]domain.BudgetExecution, error) {
	logger.EnterMethod("budgetService.RefreshPeriod", "budgetID", budgetID, "month", month, "year", year)

	var execs []domain.BudgetExecution
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		b, err := repos.Budgets.GetByID(ctx, budgetID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, b.ScopeID); err != nil {
			return err
		}
		if execs, err = repos.Budgets.ListExecutions(ctx, budgetID, month, year); err != nil {
			return err
		}
		for i := range execs {
			if err := refreshExecution(ctx, repos, &execs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("budgetService.RefreshPeriod", err, "budgetID", budgetID)
		return nil, err
	}

	logger.ExitMethod("budgetService.RefreshPeriod", "budgetID", budgetID, "executions", len(execs))
	return execs, nil
}

// RefreshActiveBudgets refreshes (month, year) of every active budget whose
// fiscal year matches. It returns the number of executions refreshed.
func (s *budgetService) RefreshActiveBudgets(ctx context.Context, month, year int) (int, error) {
	logger.EnterMethod("budgetService.RefreshActiveBudgets", "month", month, "year", year)

	refreshed := 0
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		budgets, err := repos.Budgets.ListActive(ctx)
		if err != nil {
			return err
		}
		for _, b := range budgets {
			if b.FiscalYear != year {
				continue
			}
			execs, err := repos.Budgets.ListExecutions(ctx, b.ID, month, year)
			if err != nil {
				return err
			}
			for i := range execs {
				if err := refreshExecution(ctx, repos, &execs[i]); err != nil {
					return fmt.Errorf("budget %d: %w", b.ID, err)
				}
				refreshed++
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("budgetService.RefreshActiveBudgets", err)
		return 0, err
	}

	logger.ExitMethod("budgetService.RefreshActiveBudgets", "refreshed", refreshed)
	return refreshed, nil
}

func (s *budgetService) VarianceAlerts(ctx context.Context, budgetID int64, month, year int) ([]ExecutionAlert, error) {
	var execs []domain.BudgetExecution
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		b, err := repos.Budgets.GetByID(ctx, budgetID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, b.ScopeID); err != nil {
			return err
		}
		execs, err = repos.Budgets.ListExecutions(ctx, budgetID, month, year)
		return err
	})
	if err != nil {
		return nil, err
	}

	alerts := []ExecutionAlert{}
	for _, e := range execs {
		if alert := e.Alert(); alert != domain.VarianceAlertNone {
			alerts = append(alerts, ExecutionAlert{Execution: e, Alert: alert})
		}
	}
	return alerts, nil
}

// HandleTransactionPosted refreshes the executions touched by a posted
// transaction. It runs inside the posting unit of work.
func (s *budgetService) HandleTransactionPosted(ctx context.Context, repos *repository.Repositories, evt events.TransactionPosted) error {
	tx := evt.Transaction
	month, year := int(tx.Date.Month()), tx.Date.Year()

	seen := make(map[int64]bool)
	for _, e := range tx.Entries {
		if seen[e.AccountID] {
			continue
		}
		seen[e.AccountID] = true

		execs, err := repos.Budgets.ListActiveExecutionsForAccount(ctx, e.AccountID, month, year)
		if err != nil {
			return err
		}
		for i := range execs {
			if err := refreshExecution(ctx, repos, &execs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
