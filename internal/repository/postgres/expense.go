package postgres

import (
	"context"
	"database/sql"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type expenseRepository struct {
	db DBTX
}

func NewExpenseRepository(db DBTX) repository.ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, e *domain.Expense) error {
	logger.EnterMethod("expenseRepository.Create", "scopeID", e.ScopeID, "number", e.Number)

	query := `INSERT INTO expenses (scope_id, number, supplier_id, account_id, amount, payment_method,
	              expense_date, description, status, created_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	          RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		e.ScopeID, e.Number, e.SupplierID, e.AccountID, e.Amount, e.Method,
		e.ExpenseDate.Format("2006-01-02"), e.Description, e.Status, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		logger.ExitMethodWithError("expenseRepository.Create", err, "number", e.Number)
		return err
	}

	logger.ExitMethod("expenseRepository.Create", "expenseID", e.ID)
	return nil
}

func (r *expenseRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Expense, error) {
	query := `SELECT id, scope_id, number, supplier_id, account_id, amount, payment_method, expense_date,
	              description, status, transaction_id, approved_by, approved_at, created_by, created_at
	          FROM expenses WHERE id = $1 FOR UPDATE`
	var e domain.Expense
	var supplierID, txID, approvedBy sql.NullInt64
	var approvedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.ScopeID, &e.Number, &supplierID, &e.AccountID,
		&e.Amount, &e.Method, &e.ExpenseDate, &e.Description, &e.Status, &txID, &approvedBy, &approvedAt,
		&e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	e.SupplierID = int64Ptr(supplierID)
	e.TransactionID = int64Ptr(txID)
	e.ApprovedBy = int64Ptr(approvedBy)
	e.ApprovedAt = timePtr(approvedAt)
	return &e, nil
}

func (r *expenseRepository) Update(ctx context.Context, e *domain.Expense) error {
	query := `UPDATE expenses SET status = $1, transaction_id = $2, approved_by = $3, approved_at = $4
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, e.Status, e.TransactionID, e.ApprovedBy, e.ApprovedAt, e.ID)
	return err
}
