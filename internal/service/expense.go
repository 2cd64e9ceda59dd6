package service

import (
	"context"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type expenseService struct {
	uow     repository.UnitOfWork
	journal *Journal
}

func NewExpenseService(uow repository.UnitOfWork, journal *Journal) ExpenseService {
	return &expenseService{uow: uow, journal: journal}
}

func (s *expenseService) CreateExpense(ctx context.Context, actorID int64, e *domain.Expense) (*domain.Expense, error) {
	logger.EnterMethod("expenseService.CreateExpense", "scopeID", e.ScopeID, "accountID", e.AccountID, "amount", e.Amount)

	if err := e.Validate(); err != nil {
		logger.ExitMethodWithError("expenseService.CreateExpense", err, "scopeID", e.ScopeID)
		return nil, err
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, e.ScopeID); err != nil {
			return err
		}
		var err error
		e.Number, err = s.journal.numberer.Next(ctx, repos.Sequences, domain.DocumentExpense, e.ScopeID, "", e.ExpenseDate)
		if err != nil {
			return err
		}
		e.Status = domain.ExpenseStatusPending
		e.CreatedBy = actorID
		if err := repos.Expenses.Create(ctx, e); err != nil {
			return fmt.Errorf("failed to create expense %s: %w", e.Number, err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("expenseService.CreateExpense", err, "scopeID", e.ScopeID)
		return nil, err
	}

	logger.ExitMethod("expenseService.CreateExpense", "expenseID", e.ID, "number", e.Number)
	return e, nil
}

// ApproveExpense debits the expense account and credits the cash account of
// the payment method.
func (s *expenseService) ApproveExpense(ctx context.Context, actorID, id int64) (*domain.Expense, error) {
	logger.EnterMethod("expenseService.ApproveExpense", "expenseID", id, "actorID", actorID)

	var e *domain.Expense
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if e, err = repos.Expenses.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := authorizeScope(ctx, e.ScopeID); err != nil {
			return err
		}
		if e.Status != domain.ExpenseStatusPending {
			return &domain.InvalidStateError{Entity: "expense", ID: e.ID, State: string(e.Status), Operation: "approve"}
		}
		cashID, err := cashAccount(ctx, repos, e.ScopeID, e.Method)
		if err != nil {
			return err
		}

		debit := domain.DebitEntry(e.AccountID, e.Amount, e.Description)
		if e.SupplierID != nil {
			debit.ThirdParty = &domain.ThirdParty{Kind: domain.ThirdPartySupplier, ID: *e.SupplierID}
		}
		credit := domain.CreditEntry(cashID, e.Amount, "Expense "+e.Number)

		tx, err := s.journal.record(ctx, repos, actorID, DraftRequest{
			ScopeID:     e.ScopeID,
			Date:        e.ExpenseDate,
			Description: "Expense " + e.Number,
			Reference:   domain.ExpenseRef{ExpenseID: e.ID},
			Subject:     domain.ExpenseSubject,
		}, []domain.Entry{debit, credit})
		if err != nil {
			return err
		}

		approvedAt := now()
		e.Status = domain.ExpenseStatusApproved
		e.TransactionID = &tx.ID
		e.ApprovedBy = &actorID
		e.ApprovedAt = &approvedAt
		return repos.Expenses.Update(ctx, e)
	})
	if err != nil {
		logger.ExitMethodWithError("expenseService.ApproveExpense", err, "expenseID", id)
		return nil, err
	}

	logger.ExitMethod("expenseService.ApproveExpense", "expenseID", id, "transactionID", *e.TransactionID)
	return e, nil
}

// CancelExpense reverses the posting of an approved expense.
func (s *expenseService) CancelExpense(ctx context.Context, actorID, id int64) (*domain.Expense, error) {
	logger.EnterMethod("expenseService.CancelExpense", "expenseID", id, "actorID", actorID)

	var e *domain.Expense
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if e, err = repos.Expenses.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := authorizeScope(ctx, e.ScopeID); err != nil {
			return err
		}
		if e.Status == domain.ExpenseStatusCancelled {
			return &domain.InvalidStateError{Entity: "expense", ID: e.ID, State: string(e.Status), Operation: "cancel"}
		}
		if e.TransactionID != nil {
			original, err := repos.Ledger.GetTransactionForUpdate(ctx, *e.TransactionID)
			if err != nil {
				return err
			}
			if _, err := s.journal.reverse(ctx, repos, actorID, original, "Cancellation of expense "+e.Number); err != nil {
				return err
			}
		}
		e.Status = domain.ExpenseStatusCancelled
		return repos.Expenses.Update(ctx, e)
	})
	if err != nil {
		logger.ExitMethodWithError("expenseService.CancelExpense", err, "expenseID", id)
		return nil, err
	}

	logger.ExitMethod("expenseService.CancelExpense", "expenseID", id)
	return e, nil
}
