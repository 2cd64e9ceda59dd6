package service

import (
	"context"
	"testing"

	"condo-ledger-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountMappingService(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	t.Run("Concept falls back to the scope default", func(t *testing.T) {
		accounts, err := f.mapping.AccountsForConcept(ctx, testScope, 12)
		require.NoError(t, err)
		assert.Equal(t, f.incomeID, accounts.IncomeAccountID)
		assert.Equal(t, f.receivableID, accounts.ReceivableAccountID)
	})

	t.Run("Mapped method", func(t *testing.T) {
		id, err := f.mapping.CashAccountForMethod(ctx, testScope, domain.PaymentMethodCash)
		require.NoError(t, err)
		assert.Equal(t, f.cashID, id)
	})

	t.Run("Unmapped method uses the default", func(t *testing.T) {
		id, err := f.mapping.CashAccountForMethod(ctx, testScope, domain.PaymentMethodCard)
		require.NoError(t, err)
		assert.Equal(t, f.bankID, id)
	})

	t.Run("Unknown method", func(t *testing.T) {
		_, err := f.mapping.CashAccountForMethod(ctx, testScope, domain.PaymentMethod("barter"))
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Scope without mappings", func(t *testing.T) {
		_, err := f.mapping.AccountsForConcept(ctx, 2, 12)
		assert.True(t, domain.IsValidation(err))

		_, err = f.mapping.CashAccountForMethod(ctx, 2, domain.PaymentMethodCash)
		assert.True(t, domain.IsValidation(err))
	})
}
