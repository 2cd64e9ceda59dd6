package postgres

import (
	"context"
	"database/sql"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type importRowRepository struct {
	db DBTX
}

func NewImportRowRepository(db DBTX) repository.ImportRowRepository {
	return &importRowRepository{db: db}
}

const importRowColumns = `id, scope_id, batch_id, payment_type, reference_number, transaction_at, amount,
	approval_number, originator_tax_id, detail, reconciliation_status, apartment_id, payment_id,
	match_type, match_notes, processed_by, processed_at, created_at`

func scanImportRow(row rowScanner) (*domain.ImportRow, error) {
	var r domain.ImportRow
	var apartmentID, paymentID, processedBy sql.NullInt64
	var processedAt sql.NullTime
	err := row.Scan(&r.ID, &r.ScopeID, &r.BatchID, &r.PaymentType, &r.ReferenceNumber, &r.TransactionAt, &r.Amount,
		&r.ApprovalNumber, &r.OriginatorTaxID, &r.Detail, &r.Status, &apartmentID, &paymentID,
		&r.MatchType, &r.MatchNotes, &processedBy, &processedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.ApartmentID = int64Ptr(apartmentID)
	r.PaymentID = int64Ptr(paymentID)
	r.ProcessedBy = int64Ptr(processedBy)
	r.ProcessedAt = timePtr(processedAt)
	return &r, nil
}

func (r *importRowRepository) Create(ctx context.Context, row *domain.ImportRow) error {
	query := `INSERT INTO payment_import_rows (scope_id, batch_id, payment_type, reference_number, transaction_at,
	              amount, approval_number, originator_tax_id, detail, reconciliation_status, match_type, match_notes,
	              created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	          RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		row.ScopeID, row.BatchID, row.PaymentType, row.ReferenceNumber, row.TransactionAt, row.Amount,
		row.ApprovalNumber, row.OriginatorTaxID, row.Detail, row.Status, row.MatchType, row.MatchNotes,
	).Scan(&row.ID, &row.CreatedAt)
}

func (r *importRowRepository) GetByID(ctx context.Context, id int64) (*domain.ImportRow, error) {
	row, err := scanImportRow(r.db.QueryRowContext(ctx, `SELECT `+importRowColumns+` FROM payment_import_rows WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return row, nil
}

func (r *importRowRepository) GetForUpdate(ctx context.Context, id int64) (*domain.ImportRow, error) {
	row, err := scanImportRow(r.db.QueryRowContext(ctx, `SELECT `+importRowColumns+` FROM payment_import_rows WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return row, nil
}

func (r *importRowRepository) Update(ctx context.Context, row *domain.ImportRow) error {
	query := `UPDATE payment_import_rows SET reconciliation_status = $1, apartment_id = $2, payment_id = $3,
	              match_type = $4, match_notes = $5, processed_by = $6, processed_at = $7
	          WHERE id = $8`
	_, err := r.db.ExecContext(ctx, query,
		row.Status, row.ApartmentID, row.PaymentID, row.MatchType, row.MatchNotes, row.ProcessedBy, row.ProcessedAt, row.ID)
	return err
}

func (r *importRowRepository) list(ctx context.Context, query string, args ...any) ([]domain.ImportRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ImportRow{}
	for rows.Next() {
		row, err := scanImportRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *row)
	}
	return result, rows.Err()
}

func (r *importRowRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.ImportRow, error) {
	logger.EnterMethod("importRowRepository.ListByBatch", "batchID", batchID)

	rows, err := r.list(ctx, `SELECT `+importRowColumns+` FROM payment_import_rows WHERE batch_id = $1 ORDER BY id`, batchID)
	if err != nil {
		logger.ExitMethodWithError("importRowRepository.ListByBatch", err, "batchID", batchID)
		return nil, err
	}

	logger.ExitMethod("importRowRepository.ListByBatch", "batchID", batchID, "count", len(rows))
	return rows, nil
}

func (r *importRowRepository) ListPending(ctx context.Context, limit int) ([]domain.ImportRow, error) {
	query := `SELECT ` + importRowColumns + ` FROM payment_import_rows
	          WHERE reconciliation_status = 'pending'
	          ORDER BY id LIMIT $1`
	return r.list(ctx, query, limit)
}
