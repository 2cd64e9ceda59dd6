package service

import (
	"context"
	"errors"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type ledgerService struct {
	uow     repository.UnitOfWork
	journal *Journal
}

func NewLedgerService(uow repository.UnitOfWork, journal *Journal) LedgerService {
	return &ledgerService{uow: uow, journal: journal}
}

func (s *ledgerService) CreateDraft(ctx context.Context, actorID int64, req DraftRequest) (*domain.Transaction, error) {
	logger.EnterMethod("ledgerService.CreateDraft", "scopeID", req.ScopeID, "actorID", actorID)

	var tx *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, req.ScopeID); err != nil {
			return err
		}
		var err error
		tx, err = s.journal.createDraft(ctx, repos, actorID, req)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.CreateDraft", err, "scopeID", req.ScopeID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.CreateDraft", "transactionID", tx.ID, "number", tx.Number)
	return tx, nil
}

func (s *ledgerService) AddEntry(ctx context.Context, transactionID int64, entry domain.Entry) (*domain.Transaction, error) {
	logger.EnterMethod("ledgerService.AddEntry", "transactionID", transactionID, "accountID", entry.AccountID)

	var tx *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if tx, err = repos.Ledger.GetTransactionForUpdate(ctx, transactionID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, tx.ScopeID); err != nil {
			return err
		}
		return s.journal.addEntry(ctx, repos, tx, entry)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.AddEntry", err, "transactionID", transactionID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.AddEntry", "transactionID", transactionID, "entries", len(tx.Entries))
	return tx, nil
}

func (s *ledgerService) PostTransaction(ctx context.Context, actorID, transactionID int64, skipPeriodValidation bool) (*domain.Transaction, error) {
	logger.EnterMethod("ledgerService.PostTransaction", "transactionID", transactionID, "actorID", actorID)

	var tx *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if tx, err = repos.Ledger.GetTransactionForUpdate(ctx, transactionID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, tx.ScopeID); err != nil {
			return err
		}
		return s.journal.post(ctx, repos, tx, actorID, skipPeriodValidation)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.PostTransaction", err, "transactionID", transactionID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.PostTransaction", "transactionID", transactionID, "number", tx.Number)
	return tx, nil
}

// CancelTransaction only flips the status. Amounts are not reversed.
func (s *ledgerService) CancelTransaction(ctx context.Context, actorID, transactionID int64) (*domain.Transaction, error) {
	logger.EnterMethod("ledgerService.CancelTransaction", "transactionID", transactionID, "actorID", actorID)

	var tx *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if tx, err = repos.Ledger.GetTransactionForUpdate(ctx, transactionID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, tx.ScopeID); err != nil {
			return err
		}
		if tx.Status != domain.TransactionStatusPosted {
			return &domain.InvalidStateError{Entity: "transaction", ID: tx.ID, State: string(tx.Status), Operation: "cancel"}
		}
		if err := ledgerOwned(ctx, repos, tx, "cancel"); err != nil {
			return err
		}
		cancelledAt := now()
		tx.Status = domain.TransactionStatusCancelled
		tx.CancelledBy = &actorID
		tx.CancelledAt = &cancelledAt
		return repos.Ledger.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.CancelTransaction", err, "transactionID", transactionID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.CancelTransaction", "transactionID", transactionID)
	return tx, nil
}

func (s *ledgerService) ReverseTransaction(ctx context.Context, actorID, transactionID int64) (*domain.Transaction, error) {
	logger.EnterMethod("ledgerService.ReverseTransaction", "transactionID", transactionID, "actorID", actorID)

	var reversal *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		original, err := repos.Ledger.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, original.ScopeID); err != nil {
			return err
		}
		if err := ledgerOwned(ctx, repos, original, "reverse"); err != nil {
			return err
		}
		reversal, err = s.journal.reverse(ctx, repos, actorID, original, "")
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.ReverseTransaction", err, "transactionID", transactionID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.ReverseTransaction", "transactionID", transactionID, "reversalID", reversal.ID)
	return reversal, nil
}

// ledgerOwned refuses transactions posted on behalf of an invoice, payment or
// expense. Those are undone through their owner so its amounts stay in step.
func ledgerOwned(ctx context.Context, repos *repository.Repositories, tx *domain.Transaction, operation string) error {
	ref := tx.Reference
	for {
		rev, ok := ref.(domain.ReversalRef)
		if !ok {
			break
		}
		original, err := repos.Ledger.GetTransaction(ctx, rev.OriginalTransactionID)
		if err != nil {
			return err
		}
		ref = original.Reference
	}
	owner := domain.OwnerOperation(ref)
	if owner == "" {
		return nil
	}
	return &domain.InvalidStateError{Entity: "transaction", ID: tx.ID, State: string(tx.Status), Operation: operation,
		Remedy: fmt.Sprintf("posted for %s %d, %s instead", ref.Kind(), ref.TargetID(), owner)}
}

func (s *ledgerService) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if tx, err = repos.Ledger.GetTransaction(ctx, id); err != nil {
			return err
		}
		return authorizeScope(ctx, tx.ScopeID)
	})
	return tx, err
}

func (s *ledgerService) ListByReference(ctx context.Context, scopeID int64, ref domain.Reference) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, scopeID); err != nil {
			return err
		}
		var err error
		txs, err = repos.Ledger.ListByReference(ctx, scopeID, ref)
		return err
	})
	return txs, err
}

func (s *ledgerService) ClosePeriod(ctx context.Context, actorID, scopeID int64, year, month int) (*domain.AccountingPeriod, error) {
	return s.setPeriodStatus(ctx, actorID, scopeID, year, month, domain.PeriodClosed)
}

func (s *ledgerService) ReopenPeriod(ctx context.Context, actorID, scopeID int64, year, month int) (*domain.AccountingPeriod, error) {
	return s.setPeriodStatus(ctx, actorID, scopeID, year, month, domain.PeriodOpen)
}

func (s *ledgerService) setPeriodStatus(ctx context.Context, actorID, scopeID int64, year, month int, status domain.PeriodStatus) (*domain.AccountingPeriod, error) {
	logger.EnterMethod("ledgerService.setPeriodStatus", "scopeID", scopeID, "year", year, "month", month, "status", status)

	if month < 1 || month > 12 {
		return nil, domain.NewValidationError("month", "month %d is outside 1..12", month)
	}

	var period *domain.AccountingPeriod
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, scopeID); err != nil {
			return err
		}
		var err error
		period, err = repos.Ledger.GetPeriod(ctx, scopeID, year, month)
		if errors.Is(err, domain.ErrNotFound) {
			period = &domain.AccountingPeriod{ScopeID: scopeID, Year: year, Month: month, Status: domain.PeriodOpen}
		} else if err != nil {
			return err
		}
		if period.Status == status {
			return &domain.InvalidStateError{Entity: "period", ID: period.ID, State: string(period.Status),
				Operation: fmt.Sprintf("set %s", status)}
		}

		period.Status = status
		if status == domain.PeriodClosed {
			closedAt := now()
			period.ClosedBy = &actorID
			period.ClosedAt = &closedAt
		} else {
			period.ClosedBy = nil
			period.ClosedAt = nil
		}
		return repos.Ledger.SavePeriod(ctx, period)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.setPeriodStatus", err, "scopeID", scopeID)
		return nil, err
	}

	logger.WithScope(scopeID).Info("Accounting period updated", "year", year, "month", month, "status", status, "actorID", actorID)
	logger.ExitMethod("ledgerService.setPeriodStatus", "periodID", period.ID)
	return period, nil
}
