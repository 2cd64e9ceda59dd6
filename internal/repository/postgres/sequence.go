package postgres

import (
	"context"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

type sequenceRepository struct {
	db DBTX
}

func NewSequenceRepository(db DBTX) repository.SequenceRepository {
	return &sequenceRepository{db: db}
}

var numberTables = map[domain.DocumentKind]string{
	domain.DocumentTransaction: "accounting_transactions",
	domain.DocumentExpense:     "expenses",
	domain.DocumentPayment:     "payments",
	domain.DocumentInvoice:     "invoices",
}

func (r *sequenceRepository) Next(ctx context.Context, scopeID int64, key string) (int, error) {
	logger.DatabaseCall("sequence.next", "document_sequences", "scopeID", scopeID, "key", key)

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO document_sequences (scope_id, key, last_value) VALUES ($1, $2, 0) ON CONFLICT DO NOTHING`,
		scopeID, key); err != nil {
		return 0, fmt.Errorf("failed to seed sequence %s: %w", key, err)
	}

	var last int
	if err := r.db.QueryRowContext(ctx,
		`SELECT last_value FROM document_sequences WHERE scope_id = $1 AND key = $2 FOR UPDATE`,
		scopeID, key).Scan(&last); err != nil {
		return 0, fmt.Errorf("failed to lock sequence %s: %w", key, err)
	}

	next := last + 1
	res, err := r.db.ExecContext(ctx,
		`UPDATE document_sequences SET last_value = $1 WHERE scope_id = $2 AND key = $3`,
		next, scopeID, key)
	if err != nil {
		logger.DatabaseResult("sequence.next", 0, err, "key", key)
		return 0, fmt.Errorf("failed to advance sequence %s: %w", key, err)
	}
	affected, _ := res.RowsAffected()
	logger.DatabaseResult("sequence.next", affected, nil, "key", key, "value", next)
	return next, nil
}

func (r *sequenceRepository) NumberExists(ctx context.Context, kind domain.DocumentKind, scopeID int64, number string) (bool, error) {
	table, ok := numberTables[kind]
	if !ok {
		return false, fmt.Errorf("unknown document kind %q", kind)
	}
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE scope_id = $1 AND number = $2)`
	err := r.db.QueryRowContext(ctx, query, scopeID, number).Scan(&exists)
	return exists, err
}
