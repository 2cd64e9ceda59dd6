package service

import (
	"context"
	"testing"
	"time"

	"condo-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceService_CreateInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newLedgerFixture(t)

		inv := f.invoice(t, "150.00", day(2024, time.March, 20))
		assert.Equal(t, "FAC-202403-101-001", inv.Number)
		assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
		assert.True(t, money("150").Equal(inv.Total))
		assert.True(t, inv.PaidAmount.IsZero())
		assert.Equal(t, int64(7), inv.CreatedBy)

		txs, err := f.ledger.ListByReference(ctx, testScope, domain.InvoiceRef{InvoiceID: inv.ID})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, domain.TransactionStatusPosted, txs[0].Status)
		assert.Equal(t, "TXN-101-202403-0001", txs[0].Number)
		assert.True(t, money("150").Equal(f.balance(t, f.receivableID)))
		assert.True(t, money("150").Equal(f.balance(t, f.incomeID)))
	})

	t.Run("Second invoice of the month", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.invoice(t, "10.00", day(2024, time.March, 1))

		inv := f.invoice(t, "10.00", day(2024, time.March, 2))
		assert.Equal(t, "FAC-202403-101-002", inv.Number)
	})

	t.Run("Discount and late fees", func(t *testing.T) {
		f := newLedgerFixture(t)

		inv, err := f.invoices.CreateInvoice(ctx, 7, &domain.Invoice{
			ScopeID:       testScope,
			ApartmentID:   f.apartmentID,
			BillingDate:   day(2024, time.March, 1),
			DueDate:       day(2024, time.April, 15),
			EarlyDiscount: money("10"),
			LateFees:      money("5"),
			Items: []domain.InvoiceItem{
				{Description: "Administration fee", Quantity: decimal.NewFromInt(2), UnitPrice: money("50")},
			},
		})
		require.NoError(t, err)
		assert.True(t, money("100").Equal(inv.Subtotal))
		assert.True(t, money("95").Equal(inv.Total))
		assert.True(t, money("95").Equal(f.balance(t, f.receivableID)))
		assert.True(t, money("95").Equal(f.balance(t, f.incomeID)))
	})

	t.Run("Concept mapping wins over the default", func(t *testing.T) {
		f := newLedgerFixture(t)
		parking := f.addAccount("42", "Parking", domain.AccountTypeIncome, domain.NatureCredit, 0, true, false)
		f.store.concepts[[2]int64{testScope, 3}] = domain.ConceptAccounts{IncomeAccountID: parking, ReceivableAccountID: f.receivableID}

		_, err := f.invoices.CreateInvoice(ctx, 7, &domain.Invoice{
			ScopeID:     testScope,
			ApartmentID: f.apartmentID,
			BillingDate: day(2024, time.March, 1),
			Items: []domain.InvoiceItem{
				{ConceptID: 3, Description: "Parking", Quantity: decimal.NewFromInt(1), UnitPrice: money("20")},
			},
		})
		require.NoError(t, err)
		assert.True(t, money("20").Equal(f.balance(t, parking)))
		assert.True(t, f.balance(t, f.incomeID).IsZero())
	})

	t.Run("No items", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.invoices.CreateInvoice(ctx, 7, &domain.Invoice{ScopeID: testScope, ApartmentID: f.apartmentID, BillingDate: day(2024, time.March, 1)})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Unknown apartment", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.invoices.CreateInvoice(ctx, 7, &domain.Invoice{
			ScopeID:     testScope,
			ApartmentID: 999,
			BillingDate: day(2024, time.March, 1),
			Items:       []domain.InvoiceItem{{Description: "Fee", Quantity: decimal.NewFromInt(1), UnitPrice: money("5")}},
		})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Unmapped concept rolls back", func(t *testing.T) {
		f := newLedgerFixture(t)
		delete(f.store.defConcept, testScope)

		_, err := f.invoices.CreateInvoice(ctx, 7, &domain.Invoice{
			ScopeID:     testScope,
			ApartmentID: f.apartmentID,
			BillingDate: day(2024, time.March, 1),
			Items:       []domain.InvoiceItem{{Description: "Fee", Quantity: decimal.NewFromInt(1), UnitPrice: money("5")}},
		})
		assert.True(t, domain.IsValidation(err))
		assert.Empty(t, f.store.invoices)
		assert.Empty(t, f.store.counters)
	})
}

func TestInvoiceService_CancelInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("Unpaid", func(t *testing.T) {
		f := newLedgerFixture(t)
		inv := f.invoice(t, "80.00", day(2024, time.March, 1))

		cancelled, err := f.invoices.CancelInvoice(ctx, 7, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, cancelled.Status)
		assert.True(t, f.balance(t, f.receivableID).IsZero())
		assert.True(t, f.balance(t, f.incomeID).IsZero())
		assert.Equal(t, 2, f.postedCount())
	})

	t.Run("Partly paid", func(t *testing.T) {
		f := newLedgerFixture(t)
		inv := f.invoice(t, "80.00", day(2024, time.March, 1))
		_, _, err := f.payments.RegisterPayment(ctx, 7, cashPayment(f, "30.00"), true)
		require.NoError(t, err)

		_, err = f.invoices.CancelInvoice(ctx, 7, inv.ID)
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Twice", func(t *testing.T) {
		f := newLedgerFixture(t)
		inv := f.invoice(t, "80.00", day(2024, time.March, 1))
		_, err := f.invoices.CancelInvoice(ctx, 7, inv.ID)
		require.NoError(t, err)

		_, err = f.invoices.CancelInvoice(ctx, 7, inv.ID)
		assert.True(t, domain.IsInvalidState(err))
	})

	t.Run("Cancelled invoices take no payments", func(t *testing.T) {
		f := newLedgerFixture(t)
		inv := f.invoice(t, "80.00", day(2024, time.March, 1))
		_, err := f.invoices.CancelInvoice(ctx, 7, inv.ID)
		require.NoError(t, err)

		_, apps, err := f.payments.RegisterPayment(ctx, 7, cashPayment(f, "80.00"), true)
		require.NoError(t, err)
		assert.Empty(t, apps)
	})
}

func TestInvoiceService_MarkOverdue(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	setClock(t, day(2024, time.March, 5))
	due := f.invoice(t, "40.00", day(2024, time.March, 1))
	later := f.invoice(t, "40.00", day(2024, time.March, 4))
	require.Equal(t, domain.InvoiceStatusPending, due.Status)

	changed, err := f.invoices.MarkOverdue(ctx, day(2024, time.March, 17))
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, domain.InvoiceStatusOverdue, f.store.invoices[due.ID].Status)
	assert.Equal(t, domain.InvoiceStatusPending, f.store.invoices[later.ID].Status)

	changed, err = f.invoices.MarkOverdue(ctx, day(2024, time.March, 17))
	require.NoError(t, err)
	assert.Zero(t, changed)
}
