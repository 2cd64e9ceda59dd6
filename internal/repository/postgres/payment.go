package postgres

import (
	"context"
	"database/sql"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, scope_id, apartment_id, number, total_amount, applied_amount, payment_method,
	payment_date, reference, status, applied_by, applied_at, reversed_by, reversed_at, created_by,
	created_at, updated_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var appliedBy, reversedBy sql.NullInt64
	var appliedAt, reversedAt sql.NullTime
	err := row.Scan(&p.ID, &p.ScopeID, &p.ApartmentID, &p.Number, &p.Amount, &p.AppliedAmount, &p.Method,
		&p.PaymentDate, &p.Reference, &p.Status, &appliedBy, &appliedAt, &reversedBy, &reversedAt, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AppliedBy = int64Ptr(appliedBy)
	p.AppliedAt = timePtr(appliedAt)
	p.ReversedBy = int64Ptr(reversedBy)
	p.ReversedAt = timePtr(reversedAt)
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.Create", "apartmentID", p.ApartmentID, "amount", p.Amount)

	query := `INSERT INTO payments (scope_id, apartment_id, number, total_amount, applied_amount, payment_method,
	              payment_date, reference, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		p.ScopeID, p.ApartmentID, p.Number, p.Amount, p.AppliedAmount, p.Method,
		p.PaymentDate.Format("2006-01-02"), p.Reference, p.Status, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("paymentRepository.Create", err, "number", p.Number)
		return err
	}

	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *paymentRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `UPDATE payments SET applied_amount = $1, status = $2, applied_by = $3, applied_at = $4,
	              reversed_by = $5, reversed_at = $6, updated_at = NOW()
	          WHERE id = $7`
	_, err := r.db.ExecContext(ctx, query,
		p.AppliedAmount, p.Status, p.AppliedBy, p.AppliedAt, p.ReversedBy, p.ReversedAt, p.ID)
	return err
}

const applicationColumns = `id, payment_id, invoice_id, amount_applied, status, transaction_id,
	applied_by, applied_at, reversed_by, reversed_at`

func scanApplication(row rowScanner) (*domain.PaymentApplication, error) {
	var a domain.PaymentApplication
	var txID, reversedBy sql.NullInt64
	var reversedAt sql.NullTime
	err := row.Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.AmountApplied, &a.Status, &txID,
		&a.AppliedBy, &a.AppliedAt, &reversedBy, &reversedAt)
	if err != nil {
		return nil, err
	}
	a.TransactionID = int64Ptr(txID)
	a.ReversedBy = int64Ptr(reversedBy)
	a.ReversedAt = timePtr(reversedAt)
	return &a, nil
}

func (r *paymentRepository) CreateApplication(ctx context.Context, a *domain.PaymentApplication) error {
	query := `INSERT INTO payment_applications (payment_id, invoice_id, amount_applied, status, transaction_id,
	              applied_by, applied_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		a.PaymentID, a.InvoiceID, a.AmountApplied, a.Status, a.TransactionID, a.AppliedBy, a.AppliedAt,
	).Scan(&a.ID)
}

func (r *paymentRepository) GetApplicationForUpdate(ctx context.Context, id int64) (*domain.PaymentApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM payment_applications WHERE id = $1 FOR UPDATE`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *paymentRepository) UpdateApplication(ctx context.Context, a *domain.PaymentApplication) error {
	query := `UPDATE payment_applications SET amount_applied = $1, status = $2, transaction_id = $3,
	              applied_by = $4, applied_at = $5, reversed_by = $6, reversed_at = $7
	          WHERE id = $8`
	_, err := r.db.ExecContext(ctx, query,
		a.AmountApplied, a.Status, a.TransactionID, a.AppliedBy, a.AppliedAt, a.ReversedBy, a.ReversedAt, a.ID)
	return err
}

func (r *paymentRepository) ListApplications(ctx context.Context, paymentID int64) ([]domain.PaymentApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM payment_applications WHERE payment_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []domain.PaymentApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// FindApplication returns (nil, nil) when the pair was never allocated.
func (r *paymentRepository) FindApplication(ctx context.Context, paymentID, invoiceID int64) (*domain.PaymentApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM payment_applications
	          WHERE payment_id = $1 AND invoice_id = $2 FOR UPDATE`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, paymentID, invoiceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
