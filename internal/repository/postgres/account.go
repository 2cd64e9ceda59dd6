package postgres

import (
	"context"
	"database/sql"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type accountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) repository.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, scope_id, code, name, account_type, nature, parent_id, level,
	postable, active, requires_third_party, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var parentID sql.NullInt64
	err := row.Scan(&a.ID, &a.ScopeID, &a.Code, &a.Name, &a.Type, &a.Nature, &parentID, &a.Level,
		&a.Postable, &a.Active, &a.RequiresThirdParty, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ParentID = int64Ptr(parentID)
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	logger.EnterMethod("accountRepository.Create", "scopeID", a.ScopeID, "code", a.Code)

	query := `INSERT INTO accounts (scope_id, code, name, account_type, nature, parent_id, level,
	              postable, active, requires_third_party, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		a.ScopeID, a.Code, a.Name, a.Type, a.Nature, a.ParentID, a.Level,
		a.Postable, a.Active, a.RequiresThirdParty,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("accountRepository.Create", err, "code", a.Code)
		return err
	}

	logger.ExitMethod("accountRepository.Create", "accountID", a.ID)
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *accountRepository) GetByCode(ctx context.Context, scopeID int64, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE scope_id = $1 AND code = $2`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, scopeID, code))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *accountRepository) ListByScope(ctx context.Context, scopeID int64) ([]domain.Account, error) {
	logger.EnterMethod("accountRepository.ListByScope", "scopeID", scopeID)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE scope_id = $1 ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, scopeID)
	if err != nil {
		logger.ExitMethodWithError("accountRepository.ListByScope", err, "scopeID", scopeID)
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.ExitMethod("accountRepository.ListByScope", "scopeID", scopeID, "count", len(accounts))
	return accounts, nil
}

func (r *accountRepository) Update(ctx context.Context, a *domain.Account) error {
	query := `UPDATE accounts SET code = $1, name = $2, parent_id = $3, level = $4, postable = $5, active = $6,
	              requires_third_party = $7, updated_at = NOW()
	          WHERE id = $8`
	_, err := r.db.ExecContext(ctx, query, a.Code, a.Name, a.ParentID, a.Level, a.Postable, a.Active, a.RequiresThirdParty, a.ID)
	return err
}

func (r *accountRepository) HasEntries(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounting_entries WHERE account_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *accountRepository) SumPosted(ctx context.Context, scopeID int64, codePrefix string, period domain.DateRange) (domain.Totals, error) {
	logger.EnterMethod("accountRepository.SumPosted", "scopeID", scopeID, "codePrefix", codePrefix)

	query := `SELECT COALESCE(SUM(e.debit_amount), 0), COALESCE(SUM(e.credit_amount), 0)
	          FROM accounting_entries e
	          JOIN accounting_transactions t ON t.id = e.transaction_id
	          JOIN accounts a ON a.id = e.account_id
	          WHERE a.scope_id = $1 AND a.code LIKE $2 || '%' AND t.status = 'posted'
	            AND ($3::date IS NULL OR t.transaction_date >= $3)
	            AND ($4::date IS NULL OR t.transaction_date <= $4)`

	var totals domain.Totals
	err := r.db.QueryRowContext(ctx, query, scopeID, codePrefix, dateOrNil(period.From), dateOrNil(period.To)).
		Scan(&totals.Debit, &totals.Credit)
	if err != nil {
		logger.ExitMethodWithError("accountRepository.SumPosted", err, "codePrefix", codePrefix)
		return domain.Totals{}, err
	}

	logger.ExitMethod("accountRepository.SumPosted", "debit", totals.Debit, "credit", totals.Credit)
	return totals, nil
}
