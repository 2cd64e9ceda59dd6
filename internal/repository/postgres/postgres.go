package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	_ "github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories run inside or
// outside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	repository.Repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Repositories: *newRepositories(db),
	}
}

func newRepositories(q DBTX) *repository.Repositories {
	return &repository.Repositories{
		Accounts:  NewAccountRepository(q),
		Ledger:    NewLedgerRepository(q),
		Mappings:  NewAccountMappingRepository(q),
		Invoices:  NewInvoiceRepository(q),
		Payments:  NewPaymentRepository(q),
		Expenses:  NewExpenseRepository(q),
		Budgets:   NewBudgetRepository(q),
		Imports:   NewImportRowRepository(q),
		Directory: NewDirectoryRepository(q),
		Sequences: NewSequenceRepository(q),
	}
}

// Do runs fn inside one database transaction. An error or panic from fn rolls
// everything back.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Rollback failed", "error", rbErr, "cause", err)
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ repository.UnitOfWork = (*Store)(nil)
