package service

import (
	"context"
	"errors"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type chartService struct {
	uow repository.UnitOfWork
}

func NewChartService(uow repository.UnitOfWork) ChartService {
	return &chartService{uow: uow}
}

func (s *chartService) loadParent(ctx context.Context, repos *repository.Repositories, parentID *int64) (*domain.Account, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := repos.Accounts.GetByID(ctx, *parentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("parent_id", "parent account %d does not exist", *parentID)
	}
	if err != nil {
		return nil, err
	}
	if !parent.Active {
		return nil, domain.NewValidationError("parent_id", "parent account %s is inactive", parent.Code)
	}
	if parent.Level >= domain.MaxAccountLevel {
		return nil, domain.NewValidationError("parent_id", "account %s is at the deepest level", parent.Code)
	}
	return parent, nil
}

// adopt turns parent into a grouping account. An account that already carries
// entries cannot become a parent.
func (s *chartService) adopt(ctx context.Context, repos *repository.Repositories, parent *domain.Account) error {
	if parent == nil || !parent.Postable {
		return nil
	}
	used, err := repos.Accounts.HasEntries(ctx, parent.ID)
	if err != nil {
		return err
	}
	if used {
		return domain.NewValidationError("parent_id", "account %s already has entries and cannot hold sub-accounts", parent.Code)
	}
	parent.Postable = false
	return repos.Accounts.Update(ctx, parent)
}

func (s *chartService) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	logger.EnterMethod("chartService.CreateAccount", "scopeID", account.ScopeID, "code", account.Code)

	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, account.ScopeID); err != nil {
			return err
		}
		parent, err := s.loadParent(ctx, repos, account.ParentID)
		if err != nil {
			return err
		}
		if err := account.Validate(parent); err != nil {
			return err
		}
		if _, err := repos.Accounts.GetByCode(ctx, account.ScopeID, account.Code); err == nil {
			return domain.NewValidationError("code", "account %s already exists", account.Code)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := s.adopt(ctx, repos, parent); err != nil {
			return err
		}

		account.Postable = true
		account.Active = true
		return repos.Accounts.Create(ctx, account)
	})
	if err != nil {
		logger.ExitMethodWithError("chartService.CreateAccount", err, "code", account.Code)
		return nil, err
	}

	logger.ExitMethod("chartService.CreateAccount", "accountID", account.ID, "level", account.Level)
	return account, nil
}

// MoveAccount re-parents an account together with its subtree. The level is
// kept, so every code in the subtree swaps its prefix for newCode.
func (s *chartService) MoveAccount(ctx context.Context, accountID int64, newParentID *int64, newCode string) (*domain.Account, error) {
	logger.EnterMethod("chartService.MoveAccount", "accountID", accountID, "newCode", newCode)

	var moved *domain.Account
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		account, err := repos.Accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, account.ScopeID); err != nil {
			return err
		}
		accounts, err := repos.Accounts.ListByScope(ctx, account.ScopeID)
		if err != nil {
			return err
		}
		chart := domain.NewChart(accounts)
		if newParentID != nil && chart.WouldCycle(account.ID, *newParentID) {
			return domain.NewValidationError("parent_id", "moving %s under account %d would create a cycle", account.Code, *newParentID)
		}

		parent, err := s.loadParent(ctx, repos, newParentID)
		if err != nil {
			return err
		}
		candidate := *account
		candidate.Code = newCode
		candidate.ParentID = newParentID
		if err := candidate.Validate(parent); err != nil {
			return err
		}
		if candidate.Level != account.Level {
			return domain.NewValidationError("parent_id", "move must keep %s at level %d", account.Code, account.Level)
		}
		if newCode != account.Code {
			if _, err := repos.Accounts.GetByCode(ctx, account.ScopeID, newCode); err == nil {
				return domain.NewValidationError("code", "account %s already exists", newCode)
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		if err := s.adopt(ctx, repos, parent); err != nil {
			return err
		}

		oldCode := account.Code
		for _, d := range chart.Descendants(account.ID) {
			d.Code = newCode + d.Code[len(oldCode):]
			if err := repos.Accounts.Update(ctx, d); err != nil {
				return fmt.Errorf("failed to recode %d: %w", d.ID, err)
			}
		}
		moved = &candidate
		return repos.Accounts.Update(ctx, moved)
	})
	if err != nil {
		logger.ExitMethodWithError("chartService.MoveAccount", err, "accountID", accountID)
		return nil, err
	}

	logger.ExitMethod("chartService.MoveAccount", "accountID", accountID, "code", moved.Code)
	return moved, nil
}

func (s *chartService) DeactivateAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	logger.EnterMethod("chartService.DeactivateAccount", "accountID", accountID)

	var account *domain.Account
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if account, err = repos.Accounts.GetByID(ctx, accountID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, account.ScopeID); err != nil {
			return err
		}
		if !account.Active {
			return &domain.InvalidStateError{Entity: "account", ID: account.ID, State: "inactive", Operation: "deactivate"}
		}
		accounts, err := repos.Accounts.ListByScope(ctx, account.ScopeID)
		if err != nil {
			return err
		}
		for _, d := range domain.NewChart(accounts).Descendants(account.ID) {
			if d.Active {
				return domain.NewValidationError("account_id", "sub-account %s is still active", d.Code)
			}
		}
		account.Active = false
		return repos.Accounts.Update(ctx, account)
	})
	if err != nil {
		logger.ExitMethodWithError("chartService.DeactivateAccount", err, "accountID", accountID)
		return nil, err
	}

	logger.ExitMethod("chartService.DeactivateAccount", "accountID", accountID)
	return account, nil
}

// GetBalance nets posted entries of the account and everything below it.
func (s *chartService) GetBalance(ctx context.Context, accountID int64, period domain.DateRange) (decimal.Decimal, error) {
	logger.EnterMethod("chartService.GetBalance", "accountID", accountID)

	var balance decimal.Decimal
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		account, err := repos.Accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, account.ScopeID); err != nil {
			return err
		}
		totals, err := repos.Accounts.SumPosted(ctx, account.ScopeID, account.Code, period)
		if err != nil {
			return err
		}
		balance = account.NetBalance(totals)
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("chartService.GetBalance", err, "accountID", accountID)
		return decimal.Zero, err
	}

	logger.ExitMethod("chartService.GetBalance", "accountID", accountID, "balance", balance)
	return balance, nil
}

func (s *chartService) walk(ctx context.Context, accountID int64, fn func(*domain.Chart, int64) []*domain.Account) ([]domain.Account, error) {
	var out []domain.Account
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		account, err := repos.Accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, account.ScopeID); err != nil {
			return err
		}
		accounts, err := repos.Accounts.ListByScope(ctx, account.ScopeID)
		if err != nil {
			return err
		}
		found := fn(domain.NewChart(accounts), account.ID)
		out = make([]domain.Account, len(found))
		for i, a := range found {
			out[i] = *a
		}
		return nil
	})
	return out, err
}

func (s *chartService) Ancestors(ctx context.Context, accountID int64) ([]domain.Account, error) {
	return s.walk(ctx, accountID, (*domain.Chart).Ancestors)
}

func (s *chartService) Descendants(ctx context.Context, accountID int64) ([]domain.Account, error) {
	return s.walk(ctx, accountID, (*domain.Chart).Descendants)
}

func (s *chartService) ListAccounts(ctx context.Context, scopeID int64) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, scopeID); err != nil {
			return err
		}
		var err error
		accounts, err = repos.Accounts.ListByScope(ctx, scopeID)
		return err
	})
	return accounts, err
}
