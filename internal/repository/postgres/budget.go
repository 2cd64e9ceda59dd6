package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type budgetRepository struct {
	db DBTX
}

func NewBudgetRepository(db DBTX) repository.BudgetRepository {
	return &budgetRepository{db: db}
}

const budgetColumns = `id, scope_id, fiscal_year, name, status, approved_by, approved_at, created_by, created_at, updated_at`

func scanBudget(row rowScanner) (*domain.Budget, error) {
	var b domain.Budget
	var approvedBy sql.NullInt64
	var approvedAt sql.NullTime
	err := row.Scan(&b.ID, &b.ScopeID, &b.FiscalYear, &b.Name, &b.Status, &approvedBy, &approvedAt,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.ApprovedBy = int64Ptr(approvedBy)
	b.ApprovedAt = timePtr(approvedAt)
	return &b, nil
}

func (r *budgetRepository) Create(ctx context.Context, b *domain.Budget) error {
	logger.EnterMethod("budgetRepository.Create", "scopeID", b.ScopeID, "fiscalYear", b.FiscalYear)

	query := `INSERT INTO budgets (scope_id, fiscal_year, name, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, b.ScopeID, b.FiscalYear, b.Name, b.Status, b.CreatedBy).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("budgetRepository.Create", err, "fiscalYear", b.FiscalYear)
		return err
	}

	logger.ExitMethod("budgetRepository.Create", "budgetID", b.ID)
	return nil
}

func (r *budgetRepository) GetByID(ctx context.Context, id int64) (*domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1`
	b, err := scanBudget(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

func (r *budgetRepository) Update(ctx context.Context, b *domain.Budget) error {
	query := `UPDATE budgets SET name = $1, status = $2, approved_by = $3, approved_at = $4, updated_at = NOW()
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, b.Name, b.Status, b.ApprovedBy, b.ApprovedAt, b.ID)
	return err
}

func (r *budgetRepository) listBudgets(ctx context.Context, query string, args ...any) ([]domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []domain.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (r *budgetRepository) ListActive(ctx context.Context) ([]domain.Budget, error) {
	return r.listBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE status = 'active' ORDER BY scope_id, id`)
}

func (r *budgetRepository) ListActiveByYear(ctx context.Context, scopeID int64, year int) ([]domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets
	          WHERE scope_id = $1 AND fiscal_year = $2 AND status = 'active'
	          ORDER BY id FOR UPDATE`
	return r.listBudgets(ctx, query, scopeID, year)
}

func monthlyArray(monthly [12]decimal.Decimal) interface{} {
	values := make([]string, len(monthly))
	for i, m := range monthly {
		values[i] = m.StringFixed(2)
	}
	return pq.Array(values)
}

func parseMonthly(values []string) ([12]decimal.Decimal, error) {
	var monthly [12]decimal.Decimal
	if len(values) != 12 {
		return monthly, fmt.Errorf("expected 12 monthly amounts, got %d", len(values))
	}
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return monthly, fmt.Errorf("month %d: %w", i+1, err)
		}
		monthly[i] = d
	}
	return monthly, nil
}

func (r *budgetRepository) CreateItem(ctx context.Context, item *domain.BudgetItem) error {
	query := `INSERT INTO budget_items (budget_id, account_id, category, annual_amount, monthly, notes)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		item.BudgetID, item.AccountID, item.Category, item.AnnualAmount, monthlyArray(item.Monthly), item.Notes,
	).Scan(&item.ID)
}

func (r *budgetRepository) listItems(ctx context.Context, budgetID int64) ([]domain.BudgetItem, error) {
	query := `SELECT id, budget_id, account_id, category, annual_amount, monthly, notes
	          FROM budget_items WHERE budget_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.BudgetItem{}
	for rows.Next() {
		var item domain.BudgetItem
		var monthly pq.StringArray
		if err := rows.Scan(&item.ID, &item.BudgetID, &item.AccountID, &item.Category, &item.AnnualAmount,
			&monthly, &item.Notes); err != nil {
			return nil, err
		}
		if item.Monthly, err = parseMonthly(monthly); err != nil {
			return nil, fmt.Errorf("budget item %d: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const executionSelect = `SELECT e.id, e.budget_item_id, i.account_id, e.month, e.year, e.budgeted_amount,
	e.actual_amount, e.variance_amount, e.variance_percentage, e.calculated_at
	FROM budget_executions e
	JOIN budget_items i ON i.id = e.budget_item_id`

func scanExecution(row rowScanner) (*domain.BudgetExecution, error) {
	var e domain.BudgetExecution
	var calculatedAt sql.NullTime
	err := row.Scan(&e.ID, &e.BudgetItemID, &e.AccountID, &e.Month, &e.Year, &e.BudgetedAmount,
		&e.ActualAmount, &e.VarianceAmount, &e.VariancePercentage, &calculatedAt)
	if err != nil {
		return nil, err
	}
	e.CalculatedAt = timePtr(calculatedAt)
	return &e, nil
}

func (r *budgetRepository) CreateExecution(ctx context.Context, e *domain.BudgetExecution) error {
	query := `INSERT INTO budget_executions (budget_item_id, month, year, budgeted_amount, actual_amount,
	              variance_amount, variance_percentage, calculated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (budget_item_id, month, year) DO UPDATE SET budgeted_amount = EXCLUDED.budgeted_amount
	          RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		e.BudgetItemID, e.Month, e.Year, e.BudgetedAmount, e.ActualAmount, e.VarianceAmount, e.VariancePercentage, e.CalculatedAt,
	).Scan(&e.ID)
}

func (r *budgetRepository) UpdateExecution(ctx context.Context, e *domain.BudgetExecution) error {
	query := `UPDATE budget_executions SET actual_amount = $1, variance_amount = $2, variance_percentage = $3,
	              calculated_at = $4
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, e.ActualAmount, e.VarianceAmount, e.VariancePercentage, e.CalculatedAt, e.ID)
	return err
}

func (r *budgetRepository) GetExecution(ctx context.Context, id int64) (*domain.BudgetExecution, error) {
	e, err := scanExecution(r.db.QueryRowContext(ctx, executionSelect+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (r *budgetRepository) listExecutions(ctx context.Context, query string, args ...any) ([]domain.BudgetExecution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	execs := []domain.BudgetExecution{}
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

func (r *budgetRepository) ListExecutions(ctx context.Context, budgetID int64, month, year int) ([]domain.BudgetExecution, error) {
	query := executionSelect + ` WHERE i.budget_id = $1 AND e.month = $2 AND e.year = $3 ORDER BY e.id`
	return r.listExecutions(ctx, query, budgetID, month, year)
}

func (r *budgetRepository) ListActiveExecutionsForAccount(ctx context.Context, accountID int64, month, year int) ([]domain.BudgetExecution, error) {
	query := executionSelect + `
	          JOIN budgets b ON b.id = i.budget_id
	          WHERE i.account_id = $1 AND e.month = $2 AND e.year = $3 AND b.status = 'active'
	          ORDER BY e.id
	          FOR UPDATE OF e`
	return r.listExecutions(ctx, query, accountID, month, year)
}
