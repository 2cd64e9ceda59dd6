package postgres

import (
	"context"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	"github.com/lib/pq"
)

type invoiceRepository struct {
	db DBTX
}

func NewInvoiceRepository(db DBTX) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

const invoiceColumns = `id, scope_id, apartment_id, number, billing_date, due_date, subtotal, early_discount,
	late_fees, total, paid_amount, status, created_by, created_at, updated_at`

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.ScopeID, &inv.ApartmentID, &inv.Number, &inv.BillingDate, &inv.DueDate,
		&inv.Subtotal, &inv.EarlyDiscount, &inv.LateFees, &inv.Total, &inv.PaidAmount, &inv.Status,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	logger.EnterMethod("invoiceRepository.Create", "scopeID", inv.ScopeID, "apartmentID", inv.ApartmentID, "number", inv.Number)

	query := `INSERT INTO invoices (scope_id, apartment_id, number, billing_date, due_date, subtotal, early_discount,
	              late_fees, total, paid_amount, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		inv.ScopeID, inv.ApartmentID, inv.Number, inv.BillingDate.Format("2006-01-02"), inv.DueDate.Format("2006-01-02"),
		inv.Subtotal, inv.EarlyDiscount, inv.LateFees, inv.Total, inv.PaidAmount, inv.Status, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("invoiceRepository.Create", err, "number", inv.Number)
		return err
	}

	itemQuery := `INSERT INTO invoice_items (invoice_id, concept_id, description, quantity, unit_price)
	              VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		if err := r.db.QueryRowContext(ctx, itemQuery,
			item.InvoiceID, item.ConceptID, item.Description, item.Quantity, item.UnitPrice,
		).Scan(&item.ID); err != nil {
			logger.ExitMethodWithError("invoiceRepository.Create", err, "invoiceID", inv.ID)
			return err
		}
	}

	logger.ExitMethod("invoiceRepository.Create", "invoiceID", inv.ID, "items", len(inv.Items))
	return nil
}

func (r *invoiceRepository) listItems(ctx context.Context, invoiceID int64) ([]domain.InvoiceItem, error) {
	query := `SELECT id, invoice_id, concept_id, description, quantity, unit_price
	          FROM invoice_items WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.InvoiceItem{}
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ConceptID, &item.Description, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *invoiceRepository) get(ctx context.Context, id int64, lock bool) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return r.get(ctx, id, false)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return r.get(ctx, id, true)
}

func (r *invoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	query := `UPDATE invoices SET paid_amount = $1, status = $2, late_fees = $3, total = $4, updated_at = NOW()
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, inv.PaidAmount, inv.Status, inv.LateFees, inv.Total, inv.ID)
	return err
}

func (r *invoiceRepository) collect(ctx context.Context, query string, args ...any) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	invoices := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range invoices {
		items, err := r.listItems(ctx, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Items = items
	}
	return invoices, nil
}

func (r *invoiceRepository) ListOutstandingForUpdate(ctx context.Context, apartmentID int64) ([]domain.Invoice, error) {
	logger.EnterMethod("invoiceRepository.ListOutstandingForUpdate", "apartmentID", apartmentID)

	statuses := make([]string, len(domain.OutstandingInvoiceStatuses))
	for i, s := range domain.OutstandingInvoiceStatuses {
		statuses[i] = string(s)
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices
	          WHERE apartment_id = $1 AND status = ANY($2)
	          ORDER BY billing_date ASC, id ASC
	          FOR UPDATE`
	invoices, err := r.collect(ctx, query, apartmentID, pq.Array(statuses))
	if err != nil {
		logger.ExitMethodWithError("invoiceRepository.ListOutstandingForUpdate", err, "apartmentID", apartmentID)
		return nil, err
	}

	logger.ExitMethod("invoiceRepository.ListOutstandingForUpdate", "apartmentID", apartmentID, "count", len(invoices))
	return invoices, nil
}

func (r *invoiceRepository) ListPastDue(ctx context.Context, asOf string) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
	          WHERE status IN ('pending', 'partial') AND due_date < $1
	          ORDER BY due_date, id`
	return r.collect(ctx, query, asOf)
}
