package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/events"
	"condo-ledger-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *ledgerFixture) draft(t *testing.T, date time.Time, entries ...domain.Entry) *domain.Transaction {
	t.Helper()
	ctx := context.Background()
	tx, err := f.ledger.CreateDraft(ctx, 7, DraftRequest{ScopeID: testScope, Date: date, Description: "Manual adjustment"})
	require.NoError(t, err)
	for _, e := range entries {
		tx, err = f.ledger.AddEntry(ctx, tx.ID, e)
		require.NoError(t, err)
	}
	return tx
}

func TestLedgerService_CreateDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("Numbers per subject and month", func(t *testing.T) {
		f := newLedgerFixture(t)

		first := f.draft(t, day(2024, time.March, 3))
		second := f.draft(t, day(2024, time.March, 4))
		april := f.draft(t, day(2024, time.April, 1))

		assert.Equal(t, "TXN-EXP-202403-0001", first.Number)
		assert.Equal(t, "TXN-EXP-202403-0002", second.Number)
		assert.Equal(t, "TXN-EXP-202404-0001", april.Number)
		assert.Equal(t, domain.TransactionStatusDraft, first.Status)
		assert.Equal(t, domain.ReferenceManual, first.Reference.Kind())
	})

	t.Run("Missing date", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.ledger.CreateDraft(ctx, 7, DraftRequest{ScopeID: testScope})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Entry with both sides", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3))

		entry := domain.DebitEntry(f.cashID, money("10"), "both")
		entry.CreditAmount = money("10")
		_, err := f.ledger.AddEntry(ctx, tx.ID, entry)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestLedgerService_PostTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("25.50"), "Light bulbs"),
			domain.CreditEntry(f.cashID, money("25.50"), "Light bulbs"))

		posted, err := f.ledger.PostTransaction(ctx, 8, tx.ID, false)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPosted, posted.Status)
		require.NotNil(t, posted.PostedBy)
		assert.Equal(t, int64(8), *posted.PostedBy)
		assert.True(t, money("25.50").Equal(posted.TotalDebit))
		assert.True(t, money("25.50").Equal(f.balance(t, f.maintenanceID)))
		assert.True(t, money("-25.50").Equal(f.balance(t, f.cashID)))
	})

	t.Run("Unbalanced", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("30"), "a"),
			domain.CreditEntry(f.cashID, money("20"), "b"))

		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		var violation *domain.IntegrityViolation
		require.ErrorAs(t, err, &violation)
		assert.Contains(t, violation.Reasons[0], "do not equal")
		assert.Equal(t, domain.TransactionStatusDraft, f.store.txs[tx.ID].Status)
	})

	t.Run("No entries", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3))

		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		assert.True(t, domain.IsIntegrityViolation(err))
	})

	t.Run("Grouping account and missing third party", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.assetsID, money("10"), "group"),
			domain.CreditEntry(f.receivableID, money("10"), "no apartment"))

		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		var violation *domain.IntegrityViolation
		require.ErrorAs(t, err, &violation)
		require.Len(t, violation.Reasons, 2)
		assert.Contains(t, violation.Reasons[0], "not postable")
		assert.Contains(t, violation.Reasons[1], "requires a third party")
	})

	t.Run("Inactive account", func(t *testing.T) {
		f := newLedgerFixture(t)
		a := f.store.accounts[f.maintenanceID]
		a.Active = false
		f.store.accounts[f.maintenanceID] = a
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("10"), "a"),
			domain.CreditEntry(f.cashID, money("10"), "b"))

		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		assert.True(t, domain.IsIntegrityViolation(err))
	})

	t.Run("Closed period", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("10"), "a"),
			domain.CreditEntry(f.cashID, money("10"), "b"))
		_, err := f.ledger.ClosePeriod(ctx, 7, testScope, 2024, 3)
		require.NoError(t, err)

		_, err = f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		assert.True(t, domain.IsIntegrityViolation(err))

		posted, err := f.ledger.PostTransaction(ctx, 7, tx.ID, true)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPosted, posted.Status)
	})

	t.Run("Already posted", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("10"), "a"),
			domain.CreditEntry(f.cashID, money("10"), "b"))
		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.NoError(t, err)

		_, err = f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		assert.True(t, domain.IsInvalidState(err))

		_, err = f.ledger.AddEntry(ctx, tx.ID, domain.DebitEntry(f.cashID, money("1"), "late"))
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Failing subscriber rolls the posting back", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.bus.OnTransactionPosted("audit", func(ctx context.Context, repos *repository.Repositories, evt events.TransactionPosted) error {
			return errors.New("audit store unavailable")
		})
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("10"), "a"),
			domain.CreditEntry(f.cashID, money("10"), "b"))

		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "audit")
		assert.Equal(t, domain.TransactionStatusDraft, f.store.txs[tx.ID].Status)
		assert.True(t, f.balance(t, f.maintenanceID).IsZero())
	})
}

func TestLedgerService_CancelTransaction(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	tx := f.draft(t, day(2024, time.March, 3),
		domain.DebitEntry(f.maintenanceID, money("10"), "a"),
		domain.CreditEntry(f.cashID, money("10"), "b"))

	t.Run("Draft cannot be cancelled", func(t *testing.T) {
		_, err := f.ledger.CancelTransaction(ctx, 7, tx.ID)
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Success", func(t *testing.T) {
		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.NoError(t, err)

		cancelled, err := f.ledger.CancelTransaction(ctx, 9, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledBy)
		assert.Equal(t, int64(9), *cancelled.CancelledBy)
		assert.True(t, f.balance(t, f.maintenanceID).IsZero())
	})
}

func TestLedgerService_ReverseTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("40"), "Plumbing"),
			domain.CreditEntry(f.cashID, money("40"), "Plumbing"))
		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.NoError(t, err)

		reversal, err := f.ledger.ReverseTransaction(ctx, 7, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPosted, reversal.Status)
		assert.Equal(t, domain.ReversalRef{OriginalTransactionID: tx.ID}, reversal.Reference)
		assert.Equal(t, "Reversal of "+tx.Number, reversal.Description)
		require.Len(t, reversal.Entries, 2)
		assert.Equal(t, f.maintenanceID, reversal.Entries[0].AccountID)
		assert.True(t, money("40").Equal(reversal.Entries[0].CreditAmount))

		assert.Equal(t, domain.TransactionStatusPosted, f.store.txs[tx.ID].Status)
		assert.True(t, f.balance(t, f.maintenanceID).IsZero())
		assert.True(t, f.balance(t, f.cashID).IsZero())

		found, err := f.ledger.ListByReference(ctx, testScope, domain.ReversalRef{OriginalTransactionID: tx.ID})
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("Twice", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("40"), "a"),
			domain.CreditEntry(f.cashID, money("40"), "b"))
		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.NoError(t, err)
		_, err = f.ledger.ReverseTransaction(ctx, 7, tx.ID)
		require.NoError(t, err)

		_, err = f.ledger.ReverseTransaction(ctx, 7, tx.ID)
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Draft", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3))

		_, err := f.ledger.ReverseTransaction(ctx, 7, tx.ID)
		assert.True(t, domain.IsInvalidState(err))
	})
}

func TestLedgerService_Periods(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	t.Run("Close", func(t *testing.T) {
		period, err := f.ledger.ClosePeriod(ctx, 7, testScope, 2024, 2)
		require.NoError(t, err)
		assert.Equal(t, domain.PeriodClosed, period.Status)
		require.NotNil(t, period.ClosedBy)
		assert.Equal(t, int64(7), *period.ClosedBy)
	})

	t.Run("Close twice", func(t *testing.T) {
		_, err := f.ledger.ClosePeriod(ctx, 7, testScope, 2024, 2)
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Reopen", func(t *testing.T) {
		period, err := f.ledger.ReopenPeriod(ctx, 7, testScope, 2024, 2)
		require.NoError(t, err)
		assert.Equal(t, domain.PeriodOpen, period.Status)
		assert.Nil(t, period.ClosedAt)
	})

	t.Run("Reopen an open period", func(t *testing.T) {
		_, err := f.ledger.ReopenPeriod(ctx, 7, testScope, 2024, 5)
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Invalid month", func(t *testing.T) {
		_, err := f.ledger.ClosePeriod(ctx, 7, testScope, 2024, 13)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestLedgerService_OwnedTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("Application posting goes through the payment", func(t *testing.T) {
		f := newLedgerFixture(t)
		inv := f.invoice(t, "50.00", day(2024, time.February, 5))
		payment, apps, err := f.payments.RegisterPayment(ctx, 7, cashPayment(f, "50.00"), true)
		require.NoError(t, err)
		require.Len(t, apps, 1)
		require.NotNil(t, apps[0].TransactionID)
		txID := *apps[0].TransactionID

		_, err = f.ledger.ReverseTransaction(ctx, 7, txID)
		assert.True(t, domain.IsInvalidState(err))
		assert.ErrorContains(t, err, "reverse the payment application instead")

		_, err = f.ledger.CancelTransaction(ctx, 7, txID)
		assert.True(t, domain.IsInvalidState(err))
		assert.Equal(t, domain.TransactionStatusPosted, f.store.txs[txID].Status)

		_, err = f.payments.ReverseApplication(ctx, 7, apps[0].ID)
		require.NoError(t, err)
		assert.True(t, f.store.invoices[inv.ID].PaidAmount.IsZero())
		assert.True(t, f.store.payments[payment.ID].AppliedAmount.IsZero())
		assert.True(t, f.balance(t, f.cashID).IsZero())
		assert.True(t, money("50").Equal(f.balance(t, f.receivableID)))
	})

	t.Run("Reversal of an owned posting", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.invoice(t, "50.00", day(2024, time.February, 5))
		_, apps, err := f.payments.RegisterPayment(ctx, 7, cashPayment(f, "50.00"), true)
		require.NoError(t, err)
		_, err = f.payments.ReverseApplication(ctx, 7, apps[0].ID)
		require.NoError(t, err)

		reversals, err := f.ledger.ListByReference(ctx, testScope, domain.ReversalRef{OriginalTransactionID: *apps[0].TransactionID})
		require.NoError(t, err)
		require.Len(t, reversals, 1)

		_, err = f.ledger.CancelTransaction(ctx, 7, reversals[0].ID)
		assert.ErrorContains(t, err, "reverse the payment application instead")
	})

	t.Run("Invoice posting goes through the invoice", func(t *testing.T) {
		f := newLedgerFixture(t)
		inv := f.invoice(t, "50.00", day(2024, time.February, 5))
		txs, err := f.ledger.ListByReference(ctx, testScope, domain.InvoiceRef{InvoiceID: inv.ID})
		require.NoError(t, err)
		require.Len(t, txs, 1)

		_, err = f.ledger.ReverseTransaction(ctx, 7, txs[0].ID)
		assert.ErrorContains(t, err, "cancel the invoice instead")
	})

	t.Run("Reversal of a manual posting can be cancelled", func(t *testing.T) {
		f := newLedgerFixture(t)
		tx := f.draft(t, day(2024, time.March, 3),
			domain.DebitEntry(f.maintenanceID, money("40"), "a"),
			domain.CreditEntry(f.cashID, money("40"), "b"))
		_, err := f.ledger.PostTransaction(ctx, 7, tx.ID, false)
		require.NoError(t, err)
		reversal, err := f.ledger.ReverseTransaction(ctx, 7, tx.ID)
		require.NoError(t, err)

		_, err = f.ledger.CancelTransaction(ctx, 7, reversal.ID)
		assert.NoError(t, err)
	})
}
