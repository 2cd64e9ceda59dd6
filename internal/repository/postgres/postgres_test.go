package postgres_test

import (
	"context"
	"errors"
	"testing"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository"
	"condo-ledger-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestStore_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("Commits", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("error opening mock database: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM accounting_entries").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectCommit()

		err = postgres.NewStore(db).Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			_, err := repos.Accounts.HasEntries(ctx, 4)
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("error opening mock database: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		cause := &domain.IntegrityViolation{Reasons: []string{"period closed"}}
		err = postgres.NewStore(db).Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			return cause
		})
		assert.ErrorIs(t, err, cause)
		assert.True(t, domain.IsIntegrityViolation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rolls back on panic", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("error opening mock database: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = postgres.NewStore(db).Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("error opening mock database: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err = postgres.NewStore(db).Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			called = true
			return nil
		})
		assert.ErrorContains(t, err, "too many connections")
		assert.False(t, called)
	})
}
