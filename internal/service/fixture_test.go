package service

import (
	"context"
	"testing"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/events"

	"github.com/shopspring/decimal"
)

const testScope int64 = 1

// ledgerFixture wires every service over one memStore with a small chart:
// cash, bank, fee receivable, fee income and maintenance expense, plus
// apartment 101 owned by a resident with document 000123.456-7.
type ledgerFixture struct {
	store *memStore
	uow   *memUoW
	bus   *events.Bus

	journal        *Journal
	chart          ChartService
	ledger         LedgerService
	mapping        AccountMappingService
	invoices       InvoiceService
	expenses       ExpenseService
	payments       PaymentService
	budgets        BudgetService
	reconciliation ReconciliationService

	assetsID, cashID, bankID, receivableID, incomeID, maintenanceID int64
	apartmentID, ownerID                                            int64
}

func setClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	setClock(t, day(2024, time.March, 31))

	store := newMemStore()
	f := &ledgerFixture{store: store, uow: &memUoW{store: store}, bus: events.NewBus()}

	f.assetsID = f.addAccount("1", "Assets", domain.AccountTypeAsset, domain.NatureDebit, 0, false, false)
	cashGroup := f.addAccount("11", "Cash and banks", domain.AccountTypeAsset, domain.NatureDebit, f.assetsID, false, false)
	f.cashID = f.addAccount("1105", "Petty cash", domain.AccountTypeAsset, domain.NatureDebit, cashGroup, true, false)
	f.bankID = f.addAccount("1110", "Bank", domain.AccountTypeAsset, domain.NatureDebit, cashGroup, true, false)
	recvGroup := f.addAccount("13", "Receivables", domain.AccountTypeAsset, domain.NatureDebit, f.assetsID, false, false)
	f.receivableID = f.addAccount("1305", "Fees receivable", domain.AccountTypeAsset, domain.NatureDebit, recvGroup, true, true)
	income := f.addAccount("4", "Income", domain.AccountTypeIncome, domain.NatureCredit, 0, false, false)
	f.incomeID = f.addAccount("41", "Administration fees", domain.AccountTypeIncome, domain.NatureCredit, income, true, false)
	expense := f.addAccount("5", "Expenses", domain.AccountTypeExpense, domain.NatureDebit, 0, false, false)
	f.maintenanceID = f.addAccount("51", "Maintenance", domain.AccountTypeExpense, domain.NatureDebit, expense, true, false)

	store.defConcept[testScope] = domain.ConceptAccounts{IncomeAccountID: f.incomeID, ReceivableAccountID: f.receivableID}
	store.cash[cashKey(testScope, domain.PaymentMethodCash)] = f.cashID
	store.defCash[testScope] = f.bankID

	f.apartmentID = store.nextID()
	store.apartments[f.apartmentID] = domain.Apartment{ID: f.apartmentID, ScopeID: testScope, Number: "101"}
	f.ownerID = store.nextID()
	store.residents[f.ownerID] = domain.Resident{
		ID: f.ownerID, ScopeID: testScope, ApartmentID: f.apartmentID,
		Name: "Ana Ruiz", DocumentNumber: "000123.456-7", Type: domain.ResidentOwner, Active: true,
	}

	f.journal = NewJournal(NewNumberer(3, 0), NewIntegrityValidator(), f.bus)
	f.chart = NewChartService(f.uow)
	f.ledger = NewLedgerService(f.uow, f.journal)
	f.mapping = NewAccountMappingService(f.uow)
	f.invoices = NewInvoiceService(f.uow, f.journal)
	f.expenses = NewExpenseService(f.uow, f.journal)
	f.payments = NewPaymentService(f.uow, f.journal)
	f.budgets = NewBudgetService(f.uow)
	f.reconciliation = NewReconciliationService(f.uow, f.journal)
	f.bus.OnTransactionPosted("budget_execution_refresh", f.budgets.HandleTransactionPosted)
	return f
}

func (f *ledgerFixture) addAccount(code, name string, typ domain.AccountType, nature domain.AccountNature, parentID int64, postable, thirdParty bool) int64 {
	a := domain.Account{
		ID:                 f.store.nextID(),
		ScopeID:            testScope,
		Code:               code,
		Name:               name,
		Type:               typ,
		Nature:             nature,
		Level:              domain.LevelForCode(code),
		Postable:           postable,
		Active:             true,
		RequiresThirdParty: thirdParty,
	}
	if parentID != 0 {
		a.ParentID = &parentID
	}
	f.store.accounts[a.ID] = a
	return a.ID
}

func (f *ledgerFixture) invoice(t *testing.T, amount string, billed time.Time) *domain.Invoice {
	t.Helper()
	inv, err := f.invoices.CreateInvoice(context.Background(), 7, &domain.Invoice{
		ScopeID:     testScope,
		ApartmentID: f.apartmentID,
		BillingDate: billed,
		DueDate:     billed.AddDate(0, 0, 15),
		Items: []domain.InvoiceItem{
			{Description: "Administration fee", Quantity: decimal.NewFromInt(1), UnitPrice: money(amount)},
		},
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	return inv
}

func (f *ledgerFixture) balance(t *testing.T, accountID int64) decimal.Decimal {
	t.Helper()
	b, err := f.chart.GetBalance(context.Background(), accountID, domain.DateRange{})
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	return b
}

func (f *ledgerFixture) postedCount() int {
	n := 0
	for _, tx := range f.store.txs {
		if tx.Status == domain.TransactionStatusPosted {
			n++
		}
	}
	return n
}
