package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type ledgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

const transactionColumns = `id, scope_id, number, transaction_date, description, reference_type, reference_id,
	total_debit, total_credit, status, created_by, posted_by, posted_at, cancelled_by, cancelled_at,
	created_at, updated_at`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var refType string
	var refID int64
	var postedBy, cancelledBy sql.NullInt64
	var postedAt, cancelledAt sql.NullTime
	err := row.Scan(&t.ID, &t.ScopeID, &t.Number, &t.Date, &t.Description, &refType, &refID,
		&t.TotalDebit, &t.TotalCredit, &t.Status, &t.CreatedBy, &postedBy, &postedAt, &cancelledBy, &cancelledAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ref, err := domain.ParseReference(refType, refID)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	t.Reference = ref
	t.PostedBy = int64Ptr(postedBy)
	t.PostedAt = timePtr(postedAt)
	t.CancelledBy = int64Ptr(cancelledBy)
	t.CancelledAt = timePtr(cancelledAt)
	return &t, nil
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	logger.EnterMethod("ledgerRepository.CreateTransaction", "scopeID", t.ScopeID, "number", t.Number)

	ref := t.Reference
	if ref == nil {
		ref = domain.ManualRef{}
	}
	query := `INSERT INTO accounting_transactions (scope_id, number, transaction_date, description,
	              reference_type, reference_id, total_debit, total_credit, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		t.ScopeID, t.Number, t.Date.Format("2006-01-02"), t.Description,
		string(ref.Kind()), ref.TargetID(), t.TotalDebit, t.TotalCredit, t.Status, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("ledgerRepository.CreateTransaction", err, "number", t.Number)
		return err
	}

	logger.ExitMethod("ledgerRepository.CreateTransaction", "transactionID", t.ID)
	return nil
}

func (r *ledgerRepository) getTransaction(ctx context.Context, id int64, lock bool) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM accounting_transactions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	entries, err := r.ListEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Entries = entries
	return t, nil
}

func (r *ledgerRepository) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.getTransaction(ctx, id, false)
}

func (r *ledgerRepository) GetTransactionForUpdate(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.getTransaction(ctx, id, true)
}

func (r *ledgerRepository) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	logger.EnterMethod("ledgerRepository.UpdateTransaction", "transactionID", t.ID, "status", t.Status)

	query := `UPDATE accounting_transactions SET
	              total_debit = $1, total_credit = $2, status = $3,
	              posted_by = $4, posted_at = $5, cancelled_by = $6, cancelled_at = $7,
	              updated_at = NOW()
	          WHERE id = $8`
	_, err := r.db.ExecContext(ctx, query,
		t.TotalDebit, t.TotalCredit, t.Status, t.PostedBy, t.PostedAt, t.CancelledBy, t.CancelledAt, t.ID)
	if err != nil {
		logger.ExitMethodWithError("ledgerRepository.UpdateTransaction", err, "transactionID", t.ID)
		return err
	}

	logger.ExitMethod("ledgerRepository.UpdateTransaction", "transactionID", t.ID)
	return nil
}

func (r *ledgerRepository) AddEntry(ctx context.Context, e *domain.Entry) error {
	var tpType interface{}
	var tpID interface{}
	if e.ThirdParty != nil {
		tpType = string(e.ThirdParty.Kind)
		tpID = e.ThirdParty.ID
	}
	query := `INSERT INTO accounting_entries (transaction_id, account_id, description, debit_amount, credit_amount,
	              third_party_type, third_party_id, cost_center_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	          RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		e.TransactionID, e.AccountID, e.Description, e.DebitAmount, e.CreditAmount, tpType, tpID, e.CostCenterID,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *ledgerRepository) ListEntries(ctx context.Context, transactionID int64) ([]domain.Entry, error) {
	query := `SELECT id, transaction_id, account_id, description, debit_amount, credit_amount,
	              third_party_type, third_party_id, cost_center_id, created_at
	          FROM accounting_entries WHERE transaction_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		var e domain.Entry
		var tpType sql.NullString
		var tpID, costCenter sql.NullInt64
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.Description, &e.DebitAmount, &e.CreditAmount,
			&tpType, &tpID, &costCenter, &e.CreatedAt); err != nil {
			return nil, err
		}
		if tpType.Valid && tpID.Valid {
			e.ThirdParty = &domain.ThirdParty{Kind: domain.ThirdPartyKind(tpType.String), ID: tpID.Int64}
		}
		e.CostCenterID = int64Ptr(costCenter)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ledgerRepository) ListByReference(ctx context.Context, scopeID int64, ref domain.Reference) ([]domain.Transaction, error) {
	logger.EnterMethod("ledgerRepository.ListByReference", "scopeID", scopeID, "kind", ref.Kind(), "id", ref.TargetID())

	query := `SELECT ` + transactionColumns + ` FROM accounting_transactions
	          WHERE scope_id = $1 AND reference_type = $2 AND reference_id = $3
	          ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, scopeID, string(ref.Kind()), ref.TargetID())
	if err != nil {
		logger.ExitMethodWithError("ledgerRepository.ListByReference", err, "scopeID", scopeID)
		return nil, err
	}

	txs := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		txs = append(txs, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Entries are loaded after the cursor is closed; a transaction-bound
	// connection cannot interleave two result sets.
	for i := range txs {
		entries, err := r.ListEntries(ctx, txs[i].ID)
		if err != nil {
			return nil, err
		}
		txs[i].Entries = entries
	}

	logger.ExitMethod("ledgerRepository.ListByReference", "count", len(txs))
	return txs, nil
}

func (r *ledgerRepository) SumPostedByAccount(ctx context.Context, accountID int64, period domain.DateRange) (domain.Totals, error) {
	query := `SELECT COALESCE(SUM(e.debit_amount), 0), COALESCE(SUM(e.credit_amount), 0)
	          FROM accounting_entries e
	          JOIN accounting_transactions t ON t.id = e.transaction_id
	          WHERE e.account_id = $1 AND t.status = 'posted'
	            AND ($2::date IS NULL OR t.transaction_date >= $2)
	            AND ($3::date IS NULL OR t.transaction_date <= $3)`
	var totals domain.Totals
	err := r.db.QueryRowContext(ctx, query, accountID, dateOrNil(period.From), dateOrNil(period.To)).
		Scan(&totals.Debit, &totals.Credit)
	return totals, err
}

func (r *ledgerRepository) GetPeriod(ctx context.Context, scopeID int64, year, month int) (*domain.AccountingPeriod, error) {
	query := `SELECT id, scope_id, year, month, status, closed_by, closed_at
	          FROM accounting_periods WHERE scope_id = $1 AND year = $2 AND month = $3`
	var p domain.AccountingPeriod
	var closedBy sql.NullInt64
	var closedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, scopeID, year, month).
		Scan(&p.ID, &p.ScopeID, &p.Year, &p.Month, &p.Status, &closedBy, &closedAt)
	if err != nil {
		return nil, notFound(err)
	}
	p.ClosedBy = int64Ptr(closedBy)
	p.ClosedAt = timePtr(closedAt)
	return &p, nil
}

func (r *ledgerRepository) SavePeriod(ctx context.Context, p *domain.AccountingPeriod) error {
	query := `INSERT INTO accounting_periods (scope_id, year, month, status, closed_by, closed_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (scope_id, year, month)
	          DO UPDATE SET status = EXCLUDED.status, closed_by = EXCLUDED.closed_by, closed_at = EXCLUDED.closed_at
	          RETURNING id`
	return r.db.QueryRowContext(ctx, query, p.ScopeID, p.Year, p.Month, p.Status, p.ClosedBy, p.ClosedAt).Scan(&p.ID)
}
