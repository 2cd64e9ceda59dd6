package service

import (
	"context"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository"
)

type accountMappingService struct {
	uow repository.UnitOfWork
}

func NewAccountMappingService(uow repository.UnitOfWork) AccountMappingService {
	return &accountMappingService{uow: uow}
}

func (s *accountMappingService) AccountsForConcept(ctx context.Context, scopeID, conceptID int64) (*domain.ConceptAccounts, error) {
	var accounts *domain.ConceptAccounts
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, scopeID); err != nil {
			return err
		}
		var err error
		accounts, err = conceptAccounts(ctx, repos, scopeID, conceptID)
		return err
	})
	return accounts, err
}

func (s *accountMappingService) CashAccountForMethod(ctx context.Context, scopeID int64, method domain.PaymentMethod) (int64, error) {
	if !method.Valid() {
		return 0, domain.NewValidationError("payment_method", "unknown payment method %q", method)
	}
	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, scopeID); err != nil {
			return err
		}
		var err error
		id, err = cashAccount(ctx, repos, scopeID, method)
		return err
	})
	return id, err
}
