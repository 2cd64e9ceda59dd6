package postgres

import (
	"context"
	"database/sql"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository"
)

type accountMappingRepository struct {
	db DBTX
}

func NewAccountMappingRepository(db DBTX) repository.AccountMappingRepository {
	return &accountMappingRepository{db: db}
}

// defaultConceptID marks the scope-wide fallback row in concept_account_mappings.
const defaultConceptID = 0

func (r *accountMappingRepository) ConceptAccounts(ctx context.Context, scopeID, conceptID int64) (*domain.ConceptAccounts, error) {
	query := `SELECT income_account_id, receivable_account_id
	          FROM concept_account_mappings WHERE scope_id = $1 AND concept_id = $2`
	var c domain.ConceptAccounts
	err := r.db.QueryRowContext(ctx, query, scopeID, conceptID).Scan(&c.IncomeAccountID, &c.ReceivableAccountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *accountMappingRepository) DefaultConceptAccounts(ctx context.Context, scopeID int64) (*domain.ConceptAccounts, error) {
	return r.ConceptAccounts(ctx, scopeID, defaultConceptID)
}

func (r *accountMappingRepository) CashAccountForMethod(ctx context.Context, scopeID int64, method domain.PaymentMethod) (*int64, error) {
	query := `SELECT account_id FROM payment_method_accounts WHERE scope_id = $1 AND payment_method = $2`
	var id int64
	err := r.db.QueryRowContext(ctx, query, scopeID, string(method)).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *accountMappingRepository) DefaultCashAccount(ctx context.Context, scopeID int64) (*int64, error) {
	return r.CashAccountForMethod(ctx, scopeID, domain.PaymentMethodCash)
}
