package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository"
)

// memStore keeps every table in plain maps. Values are stored by value so a
// caller mutating a returned row never changes the store until it calls Update.
type memStore struct {
	lastID int64

	accounts    map[int64]domain.Account
	txs         map[int64]domain.Transaction
	entries     map[int64]domain.Entry
	periods     map[string]domain.AccountingPeriod
	concepts    map[[2]int64]domain.ConceptAccounts
	defConcept  map[int64]domain.ConceptAccounts
	cash        map[string]int64
	defCash     map[int64]int64
	invoices    map[int64]domain.Invoice
	payments    map[int64]domain.Payment
	apps        map[int64]domain.PaymentApplication
	expenses    map[int64]domain.Expense
	budgets     map[int64]domain.Budget
	items       map[int64]domain.BudgetItem
	executions  map[int64]domain.BudgetExecution
	imports     map[int64]domain.ImportRow
	apartments  map[int64]domain.Apartment
	residents   map[int64]domain.Resident
	counters    map[string]int
	takenNumber map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		accounts:    map[int64]domain.Account{},
		txs:         map[int64]domain.Transaction{},
		entries:     map[int64]domain.Entry{},
		periods:     map[string]domain.AccountingPeriod{},
		concepts:    map[[2]int64]domain.ConceptAccounts{},
		defConcept:  map[int64]domain.ConceptAccounts{},
		cash:        map[string]int64{},
		defCash:     map[int64]int64{},
		invoices:    map[int64]domain.Invoice{},
		payments:    map[int64]domain.Payment{},
		apps:        map[int64]domain.PaymentApplication{},
		expenses:    map[int64]domain.Expense{},
		budgets:     map[int64]domain.Budget{},
		items:       map[int64]domain.BudgetItem{},
		executions:  map[int64]domain.BudgetExecution{},
		imports:     map[int64]domain.ImportRow{},
		apartments:  map[int64]domain.Apartment{},
		residents:   map[int64]domain.Resident{},
		counters:    map[string]int{},
		takenNumber: map[string]bool{},
	}
}

func (m *memStore) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *memStore) snapshot() *memStore {
	return &memStore{
		lastID:      m.lastID,
		accounts:    maps.Clone(m.accounts),
		txs:         maps.Clone(m.txs),
		entries:     maps.Clone(m.entries),
		periods:     maps.Clone(m.periods),
		concepts:    maps.Clone(m.concepts),
		defConcept:  maps.Clone(m.defConcept),
		cash:        maps.Clone(m.cash),
		defCash:     maps.Clone(m.defCash),
		invoices:    maps.Clone(m.invoices),
		payments:    maps.Clone(m.payments),
		apps:        maps.Clone(m.apps),
		expenses:    maps.Clone(m.expenses),
		budgets:     maps.Clone(m.budgets),
		items:       maps.Clone(m.items),
		executions:  maps.Clone(m.executions),
		imports:     maps.Clone(m.imports),
		apartments:  maps.Clone(m.apartments),
		residents:   maps.Clone(m.residents),
		counters:    maps.Clone(m.counters),
		takenNumber: maps.Clone(m.takenNumber),
	}
}

func (m *memStore) restore(s *memStore) {
	*m = *s
}

func (m *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		Accounts:  memAccounts{m},
		Ledger:    memLedger{m},
		Mappings:  memMappings{m},
		Invoices:  memInvoices{m},
		Payments:  memPayments{m},
		Expenses:  memExpenses{m},
		Budgets:   memBudgets{m},
		Imports:   memImports{m},
		Directory: memDirectory{m},
		Sequences: memSequences{m},
	}
}

// memUoW rolls the store back to its state before fn when fn fails.
type memUoW struct {
	store *memStore
	runs  int
}

func (u *memUoW) Do(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	u.runs++
	snap := u.store.snapshot()
	if err := fn(ctx, u.store.repositories()); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := []V{}
	for _, id := range ids {
		if v := m[id]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func inRange(t time.Time, r domain.DateRange) bool {
	return (r.From.IsZero() || !t.Before(r.From)) && (r.To.IsZero() || !t.After(r.To))
}

// postedTotals sums the entries of posted transactions that pass keep.
func (m *memStore) postedTotals(period domain.DateRange, keep func(domain.Entry) bool) domain.Totals {
	var entries []domain.Entry
	for _, e := range m.entries {
		tx, ok := m.txs[e.TransactionID]
		if ok && tx.Status == domain.TransactionStatusPosted && inRange(tx.Date, period) && keep(e) {
			entries = append(entries, e)
		}
	}
	return domain.SumEntries(entries)
}

// ---- accounts ----

type memAccounts struct{ *memStore }

func (r memAccounts) Create(ctx context.Context, a *domain.Account) error {
	a.ID = r.nextID()
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	r.accounts[a.ID] = *a
	return nil
}

func (r memAccounts) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r memAccounts) GetByCode(ctx context.Context, scopeID int64, code string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.ScopeID == scopeID && a.Code == code {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memAccounts) ListByScope(ctx context.Context, scopeID int64) ([]domain.Account, error) {
	out := sortedValues(r.accounts, func(a domain.Account) bool { return a.ScopeID == scopeID })
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r memAccounts) Update(ctx context.Context, a *domain.Account) error {
	if _, ok := r.accounts[a.ID]; !ok {
		return domain.ErrNotFound
	}
	r.accounts[a.ID] = *a
	return nil
}

func (r memAccounts) HasEntries(ctx context.Context, id int64) (bool, error) {
	for _, e := range r.entries {
		if e.AccountID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r memAccounts) SumPosted(ctx context.Context, scopeID int64, codePrefix string, period domain.DateRange) (domain.Totals, error) {
	return r.postedTotals(period, func(e domain.Entry) bool {
		a := r.accounts[e.AccountID]
		return a.ScopeID == scopeID && strings.HasPrefix(a.Code, codePrefix)
	}), nil
}

// ---- ledger ----

type memLedger struct{ *memStore }

func (r memLedger) withEntries(tx domain.Transaction) *domain.Transaction {
	tx.Entries = sortedValues(r.entries, func(e domain.Entry) bool { return e.TransactionID == tx.ID })
	return &tx
}

func (r memLedger) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	tx.ID = r.nextID()
	tx.CreatedAt = now()
	tx.UpdatedAt = tx.CreatedAt
	stored := *tx
	stored.Entries = nil
	r.txs[tx.ID] = stored
	return nil
}

func (r memLedger) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	tx, ok := r.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.withEntries(tx), nil
}

func (r memLedger) GetTransactionForUpdate(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.GetTransaction(ctx, id)
}

func (r memLedger) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if _, ok := r.txs[tx.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := *tx
	stored.Entries = nil
	r.txs[tx.ID] = stored
	return nil
}

func (r memLedger) AddEntry(ctx context.Context, e *domain.Entry) error {
	e.ID = r.nextID()
	e.CreatedAt = now()
	r.entries[e.ID] = *e
	return nil
}

func (r memLedger) ListEntries(ctx context.Context, transactionID int64) ([]domain.Entry, error) {
	return sortedValues(r.entries, func(e domain.Entry) bool { return e.TransactionID == transactionID }), nil
}

func (r memLedger) ListByReference(ctx context.Context, scopeID int64, ref domain.Reference) ([]domain.Transaction, error) {
	matches := sortedValues(r.txs, func(tx domain.Transaction) bool {
		return tx.ScopeID == scopeID && tx.Reference.Kind() == ref.Kind() && tx.Reference.TargetID() == ref.TargetID()
	})
	out := make([]domain.Transaction, len(matches))
	for i, tx := range matches {
		out[i] = *r.withEntries(tx)
	}
	return out, nil
}

func (r memLedger) SumPostedByAccount(ctx context.Context, accountID int64, period domain.DateRange) (domain.Totals, error) {
	return r.postedTotals(period, func(e domain.Entry) bool { return e.AccountID == accountID }), nil
}

func periodKey(scopeID int64, year, month int) string {
	return fmt.Sprintf("%d/%04d-%02d", scopeID, year, month)
}

func (r memLedger) GetPeriod(ctx context.Context, scopeID int64, year, month int) (*domain.AccountingPeriod, error) {
	p, ok := r.periods[periodKey(scopeID, year, month)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r memLedger) SavePeriod(ctx context.Context, p *domain.AccountingPeriod) error {
	if p.ID == 0 {
		p.ID = r.nextID()
	}
	r.periods[periodKey(p.ScopeID, p.Year, p.Month)] = *p
	return nil
}

// ---- mappings ----

type memMappings struct{ *memStore }

func cashKey(scopeID int64, method domain.PaymentMethod) string {
	return fmt.Sprintf("%d/%s", scopeID, method)
}

func (r memMappings) ConceptAccounts(ctx context.Context, scopeID, conceptID int64) (*domain.ConceptAccounts, error) {
	if c, ok := r.concepts[[2]int64{scopeID, conceptID}]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r memMappings) DefaultConceptAccounts(ctx context.Context, scopeID int64) (*domain.ConceptAccounts, error) {
	if c, ok := r.defConcept[scopeID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r memMappings) CashAccountForMethod(ctx context.Context, scopeID int64, method domain.PaymentMethod) (*int64, error) {
	if id, ok := r.cash[cashKey(scopeID, method)]; ok {
		return &id, nil
	}
	return nil, nil
}

func (r memMappings) DefaultCashAccount(ctx context.Context, scopeID int64) (*int64, error) {
	if id, ok := r.defCash[scopeID]; ok {
		return &id, nil
	}
	return nil, nil
}

// ---- invoices ----

type memInvoices struct{ *memStore }

func (r memInvoices) Create(ctx context.Context, inv *domain.Invoice) error {
	inv.ID = r.nextID()
	inv.CreatedAt = now()
	inv.UpdatedAt = inv.CreatedAt
	for i := range inv.Items {
		inv.Items[i].ID = r.nextID()
		inv.Items[i].InvoiceID = inv.ID
	}
	stored := *inv
	stored.Items = slices.Clone(inv.Items)
	r.invoices[inv.ID] = stored
	return nil
}

func (r memInvoices) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	inv.Items = slices.Clone(inv.Items)
	return &inv, nil
}

func (r memInvoices) GetForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r memInvoices) Update(ctx context.Context, inv *domain.Invoice) error {
	stored, ok := r.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.PaidAmount = inv.PaidAmount
	stored.Status = inv.Status
	stored.LateFees = inv.LateFees
	stored.Total = inv.Total
	r.invoices[inv.ID] = stored
	return nil
}

func (r memInvoices) ListOutstandingForUpdate(ctx context.Context, apartmentID int64) ([]domain.Invoice, error) {
	out := sortedValues(r.invoices, func(inv domain.Invoice) bool {
		return inv.ApartmentID == apartmentID && slices.Contains(domain.OutstandingInvoiceStatuses, inv.Status)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].BillingDate.Before(out[j].BillingDate) })
	return out, nil
}

func (r memInvoices) ListPastDue(ctx context.Context, asOf string) ([]domain.Invoice, error) {
	day, err := time.Parse("2006-01-02", asOf)
	if err != nil {
		return nil, err
	}
	return sortedValues(r.invoices, func(inv domain.Invoice) bool {
		return (inv.Status == domain.InvoiceStatusPending || inv.Status == domain.InvoiceStatusPartial) && inv.DueDate.Before(day)
	}), nil
}

// ---- payments ----

type memPayments struct{ *memStore }

func (r memPayments) Create(ctx context.Context, p *domain.Payment) error {
	p.ID = r.nextID()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	r.payments[p.ID] = *p
	return nil
}

func (r memPayments) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r memPayments) GetForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r memPayments) Update(ctx context.Context, p *domain.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.payments[p.ID] = *p
	return nil
}

func (r memPayments) CreateApplication(ctx context.Context, app *domain.PaymentApplication) error {
	app.ID = r.nextID()
	r.apps[app.ID] = *app
	return nil
}

func (r memPayments) GetApplicationForUpdate(ctx context.Context, id int64) (*domain.PaymentApplication, error) {
	app, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &app, nil
}

func (r memPayments) UpdateApplication(ctx context.Context, app *domain.PaymentApplication) error {
	if _, ok := r.apps[app.ID]; !ok {
		return domain.ErrNotFound
	}
	r.apps[app.ID] = *app
	return nil
}

func (r memPayments) ListApplications(ctx context.Context, paymentID int64) ([]domain.PaymentApplication, error) {
	return sortedValues(r.apps, func(a domain.PaymentApplication) bool { return a.PaymentID == paymentID }), nil
}

func (r memPayments) FindApplication(ctx context.Context, paymentID, invoiceID int64) (*domain.PaymentApplication, error) {
	for _, a := range r.apps {
		if a.PaymentID == paymentID && a.InvoiceID == invoiceID {
			return &a, nil
		}
	}
	return nil, nil
}

// ---- expenses ----

type memExpenses struct{ *memStore }

func (r memExpenses) Create(ctx context.Context, e *domain.Expense) error {
	e.ID = r.nextID()
	e.CreatedAt = now()
	r.expenses[e.ID] = *e
	return nil
}

func (r memExpenses) GetForUpdate(ctx context.Context, id int64) (*domain.Expense, error) {
	e, ok := r.expenses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r memExpenses) Update(ctx context.Context, e *domain.Expense) error {
	if _, ok := r.expenses[e.ID]; !ok {
		return domain.ErrNotFound
	}
	r.expenses[e.ID] = *e
	return nil
}

// ---- budgets ----

type memBudgets struct{ *memStore }

func (r memBudgets) Create(ctx context.Context, b *domain.Budget) error {
	b.ID = r.nextID()
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	stored := *b
	stored.Items = nil
	r.budgets[b.ID] = stored
	return nil
}

func (r memBudgets) GetByID(ctx context.Context, id int64) (*domain.Budget, error) {
	b, ok := r.budgets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b.Items = sortedValues(r.items, func(i domain.BudgetItem) bool { return i.BudgetID == id })
	return &b, nil
}

func (r memBudgets) Update(ctx context.Context, b *domain.Budget) error {
	if _, ok := r.budgets[b.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := *b
	stored.Items = nil
	r.budgets[b.ID] = stored
	return nil
}

func (r memBudgets) ListActive(ctx context.Context) ([]domain.Budget, error) {
	return sortedValues(r.budgets, func(b domain.Budget) bool { return b.Status == domain.BudgetStatusActive }), nil
}

func (r memBudgets) ListActiveByYear(ctx context.Context, scopeID int64, year int) ([]domain.Budget, error) {
	return sortedValues(r.budgets, func(b domain.Budget) bool {
		return b.Status == domain.BudgetStatusActive && b.ScopeID == scopeID && b.FiscalYear == year
	}), nil
}

func (r memBudgets) CreateItem(ctx context.Context, item *domain.BudgetItem) error {
	item.ID = r.nextID()
	r.items[item.ID] = *item
	return nil
}

func (r memBudgets) CreateExecution(ctx context.Context, e *domain.BudgetExecution) error {
	for id, existing := range r.executions {
		if existing.BudgetItemID == e.BudgetItemID && existing.Month == e.Month && existing.Year == e.Year {
			e.ID = id
			r.executions[id] = *e
			return nil
		}
	}
	e.ID = r.nextID()
	r.executions[e.ID] = *e
	return nil
}

func (r memBudgets) UpdateExecution(ctx context.Context, e *domain.BudgetExecution) error {
	if _, ok := r.executions[e.ID]; !ok {
		return domain.ErrNotFound
	}
	r.executions[e.ID] = *e
	return nil
}

func (r memBudgets) GetExecution(ctx context.Context, id int64) (*domain.BudgetExecution, error) {
	e, ok := r.executions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r memBudgets) ListExecutions(ctx context.Context, budgetID int64, month, year int) ([]domain.BudgetExecution, error) {
	return sortedValues(r.executions, func(e domain.BudgetExecution) bool {
		return r.items[e.BudgetItemID].BudgetID == budgetID && e.Month == month && e.Year == year
	}), nil
}

func (r memBudgets) ListActiveExecutionsForAccount(ctx context.Context, accountID int64, month, year int) ([]domain.BudgetExecution, error) {
	return sortedValues(r.executions, func(e domain.BudgetExecution) bool {
		item := r.items[e.BudgetItemID]
		return item.AccountID == accountID && e.Month == month && e.Year == year &&
			r.budgets[item.BudgetID].Status == domain.BudgetStatusActive
	}), nil
}

// ---- imports ----

type memImports struct{ *memStore }

func (r memImports) Create(ctx context.Context, row *domain.ImportRow) error {
	row.ID = r.nextID()
	row.CreatedAt = now()
	r.imports[row.ID] = *row
	return nil
}

func (r memImports) GetByID(ctx context.Context, id int64) (*domain.ImportRow, error) {
	row, ok := r.imports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (r memImports) GetForUpdate(ctx context.Context, id int64) (*domain.ImportRow, error) {
	return r.GetByID(ctx, id)
}

func (r memImports) Update(ctx context.Context, row *domain.ImportRow) error {
	if _, ok := r.imports[row.ID]; !ok {
		return domain.ErrNotFound
	}
	r.imports[row.ID] = *row
	return nil
}

func (r memImports) ListByBatch(ctx context.Context, batchID string) ([]domain.ImportRow, error) {
	return sortedValues(r.imports, func(row domain.ImportRow) bool { return row.BatchID == batchID }), nil
}

func (r memImports) ListPending(ctx context.Context, limit int) ([]domain.ImportRow, error) {
	out := sortedValues(r.imports, func(row domain.ImportRow) bool { return row.Status == domain.ReconciliationPending })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- directory ----

type memDirectory struct{ *memStore }

func (r memDirectory) GetApartment(ctx context.Context, id int64) (*domain.Apartment, error) {
	a, ok := r.apartments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r memDirectory) ListApartmentsByNumber(ctx context.Context, scopeID int64, number string) ([]domain.Apartment, error) {
	return sortedValues(r.apartments, func(a domain.Apartment) bool {
		return a.ScopeID == scopeID && (a.Number == number || a.Tower+a.Number == number)
	}), nil
}

func (r memDirectory) FindActiveOwnerByDocument(ctx context.Context, scopeID int64, normalizedDocument string) (*domain.Resident, error) {
	found := sortedValues(r.residents, func(res domain.Resident) bool {
		return res.ScopeID == scopeID && res.Active && res.Type == domain.ResidentOwner &&
			domain.NormalizeTaxID(res.DocumentNumber) == normalizedDocument
	})
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return &found[0], nil
}

// ---- sequences ----

type memSequences struct{ *memStore }

func (r memSequences) Next(ctx context.Context, scopeID int64, key string) (int, error) {
	k := fmt.Sprintf("%d/%s", scopeID, key)
	r.counters[k]++
	return r.counters[k], nil
}

func (r memSequences) NumberExists(ctx context.Context, kind domain.DocumentKind, scopeID int64, number string) (bool, error) {
	if r.takenNumber[number] {
		return true, nil
	}
	switch kind {
	case domain.DocumentTransaction:
		for _, tx := range r.txs {
			if tx.ScopeID == scopeID && tx.Number == number {
				return true, nil
			}
		}
	case domain.DocumentInvoice:
		for _, inv := range r.invoices {
			if inv.ScopeID == scopeID && inv.Number == number {
				return true, nil
			}
		}
	case domain.DocumentPayment:
		for _, p := range r.payments {
			if p.ScopeID == scopeID && p.Number == number {
				return true, nil
			}
		}
	case domain.DocumentExpense:
		for _, e := range r.expenses {
			if e.ScopeID == scopeID && e.Number == number {
				return true, nil
			}
		}
	}
	return false, nil
}
