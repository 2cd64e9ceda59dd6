package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentCols = []string{"id", "scope_id", "apartment_id", "number", "total_amount", "applied_amount",
	"payment_method", "payment_date", "reference", "status", "applied_by", "applied_at", "reversed_by",
	"reversed_at", "created_by", "created_at", "updated_at"}

var applicationCols = []string{"id", "payment_id", "invoice_id", "amount_applied", "status", "transaction_id",
	"applied_by", "applied_at", "reversed_by", "reversed_at"}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	p := &domain.Payment{ScopeID: 1, ApartmentID: 101, Number: "PAY-202403-101-01", Amount: decimal.NewFromInt(50),
		AppliedAmount: decimal.Zero, Method: domain.PaymentMethodCash,
		PaymentDate: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), Status: domain.PaymentStatusPending, CreatedBy: 7}

	mock.ExpectQuery("INSERT INTO payments").
		WithArgs(int64(1), int64(101), "PAY-202403-101-01", "50", "0", "cash", "2024-03-10", "", "pending", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(40, time.Now(), time.Now()))

	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int64(40), p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM payments WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(40)).
			WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
				40, 1, 101, "PAY-202403-101-01", "50", "30", "cash", now, "", "partially_applied",
				7, now, nil, nil, 7, now, now))

		p, err := repo.GetForUpdate(ctx, 40)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(20).Equal(p.RemainingAmount()))
		require.NotNil(t, p.AppliedBy)
		assert.Nil(t, p.ReversedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM payments WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(41)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetForUpdate(ctx, 41)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_FindApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()
	query := "WHERE payment_id = \\$1 AND invoice_id = \\$2 FOR UPDATE"

	t.Run("Reversed allocation", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(query).
			WithArgs(int64(40), int64(3)).
			WillReturnRows(sqlmock.NewRows(applicationCols).
				AddRow(5, 40, 3, "30", "reversed", 12, 7, now, 8, now))

		app, err := repo.FindApplication(ctx, 40, 3)
		require.NoError(t, err)
		require.NotNil(t, app)
		assert.Equal(t, domain.ApplicationStatusReversed, app.Status)
		require.NotNil(t, app.TransactionID)
		assert.Equal(t, int64(12), *app.TransactionID)
		require.NotNil(t, app.ReversedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Never allocated", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(40), int64(4)).
			WillReturnError(sql.ErrNoRows)

		app, err := repo.FindApplication(ctx, 40, 4)
		require.NoError(t, err)
		assert.Nil(t, app)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_UpdateApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	txID, reversedBy := int64(12), int64(8)
	reversedAt := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	appliedAt := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	app := &domain.PaymentApplication{ID: 5, AmountApplied: decimal.NewFromInt(30), Status: domain.ApplicationStatusReversed,
		TransactionID: &txID, AppliedBy: 7, AppliedAt: appliedAt, ReversedBy: &reversedBy, ReversedAt: &reversedAt}

	mock.ExpectExec("UPDATE payment_applications SET").
		WithArgs("30", "reversed", int64(12), int64(7), appliedAt, int64(8), reversedAt, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateApplication(context.Background(), app))
	assert.NoError(t, mock.ExpectationsWereMet())
}
