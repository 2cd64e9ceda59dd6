package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusDraft     TransactionStatus = "draft"
	TransactionStatusPosted    TransactionStatus = "posted"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Transaction is a batch of balanced entries. Once posted it is never edited;
// corrections are new transactions.
type Transaction struct {
	ID          int64             `json:"id"`
	ScopeID     int64             `json:"scope_id"`
	Number      string            `json:"number"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Reference   Reference         `json:"-"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Status      TransactionStatus `json:"status"`
	CreatedBy   int64             `json:"created_by"`
	PostedBy    *int64            `json:"posted_by,omitempty"`
	PostedAt    *time.Time        `json:"posted_at,omitempty"`
	CancelledBy *int64            `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Entries     []Entry           `json:"entries,omitempty"`
}

func (t *Transaction) IsBalanced() bool {
	return t.TotalDebit.Equal(t.TotalCredit)
}

// CanBePosted reports the structural preconditions of post, not the validator's.
func (t *Transaction) CanBePosted() bool {
	return t.Status == TransactionStatusDraft && t.IsBalanced() && t.TotalDebit.IsPositive() && len(t.Entries) > 0
}

// Recalculate resums the totals from the entries.
func (t *Transaction) Recalculate() {
	totals := SumEntries(t.Entries)
	t.TotalDebit = totals.Debit
	t.TotalCredit = totals.Credit
}

type ThirdPartyKind string

const (
	ThirdPartyApartment ThirdPartyKind = "apartment"
	ThirdPartySupplier  ThirdPartyKind = "supplier"
	ThirdPartyEmployee  ThirdPartyKind = "employee"
)

type ThirdParty struct {
	Kind ThirdPartyKind `json:"kind"`
	ID   int64          `json:"id"`
}

type Entry struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	Description   string          `json:"description"`
	DebitAmount   decimal.Decimal `json:"debit_amount"`
	CreditAmount  decimal.Decimal `json:"credit_amount"`
	ThirdParty    *ThirdParty     `json:"third_party,omitempty"`
	CostCenterID  *int64          `json:"cost_center_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate enforces that exactly one side of the entry is strictly positive.
func (e *Entry) Validate() error {
	debit := e.DebitAmount.IsPositive()
	credit := e.CreditAmount.IsPositive()
	if debit == credit {
		return NewValidationError("amount", "entry must have exactly one positive amount (debit %s, credit %s)",
			e.DebitAmount.StringFixed(2), e.CreditAmount.StringFixed(2))
	}
	if e.DebitAmount.IsNegative() || e.CreditAmount.IsNegative() {
		return NewValidationError("amount", "entry amounts cannot be negative")
	}
	if e.AccountID == 0 {
		return NewValidationError("account_id", "account is required")
	}
	return nil
}

// Swapped returns a copy with debit and credit exchanged, used for compensating postings.
func (e Entry) Swapped() Entry {
	return Entry{
		AccountID:    e.AccountID,
		Description:  e.Description,
		DebitAmount:  e.CreditAmount,
		CreditAmount: e.DebitAmount,
		ThirdParty:   e.ThirdParty,
		CostCenterID: e.CostCenterID,
	}
}

func DebitEntry(accountID int64, amount decimal.Decimal, description string) Entry {
	return Entry{AccountID: accountID, DebitAmount: amount, CreditAmount: decimal.Zero, Description: description}
}

func CreditEntry(accountID int64, amount decimal.Decimal, description string) Entry {
	return Entry{AccountID: accountID, DebitAmount: decimal.Zero, CreditAmount: amount, Description: description}
}

type Totals struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

func SumEntries(entries []Entry) Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, e := range entries {
		t.Debit = t.Debit.Add(e.DebitAmount)
		t.Credit = t.Credit.Add(e.CreditAmount)
	}
	return t
}

type ReferenceKind string

const (
	ReferenceInvoice            ReferenceKind = "invoice"
	ReferencePayment            ReferenceKind = "payment"
	ReferencePaymentApplication ReferenceKind = "payment_application"
	ReferenceExpense            ReferenceKind = "expense"
	ReferenceReversal           ReferenceKind = "reversal"
	ReferenceManual             ReferenceKind = "manual"
)

// Reference is the business event a transaction was posted for. The set of
// implementations is closed; switch on the concrete type.
type Reference interface {
	Kind() ReferenceKind
	// TargetID is the id of the referenced row, 0 for manual postings.
	TargetID() int64
	isReference()
}

type InvoiceRef struct{ InvoiceID int64 }
type PaymentRef struct{ PaymentID int64 }
type PaymentApplicationRef struct{ ApplicationID int64 }
type ExpenseRef struct{ ExpenseID int64 }
type ReversalRef struct{ OriginalTransactionID int64 }
type ManualRef struct{}

func (InvoiceRef) Kind() ReferenceKind            { return ReferenceInvoice }
func (PaymentRef) Kind() ReferenceKind            { return ReferencePayment }
func (PaymentApplicationRef) Kind() ReferenceKind { return ReferencePaymentApplication }
func (ExpenseRef) Kind() ReferenceKind            { return ReferenceExpense }
func (ReversalRef) Kind() ReferenceKind           { return ReferenceReversal }
func (ManualRef) Kind() ReferenceKind             { return ReferenceManual }

func (r InvoiceRef) TargetID() int64            { return r.InvoiceID }
func (r PaymentRef) TargetID() int64            { return r.PaymentID }
func (r PaymentApplicationRef) TargetID() int64 { return r.ApplicationID }
func (r ExpenseRef) TargetID() int64            { return r.ExpenseID }
func (r ReversalRef) TargetID() int64           { return r.OriginalTransactionID }
func (ManualRef) TargetID() int64               { return 0 }

func (InvoiceRef) isReference()            {}
func (PaymentRef) isReference()            {}
func (PaymentApplicationRef) isReference() {}
func (ExpenseRef) isReference()            {}
func (ReversalRef) isReference()           {}
func (ManualRef) isReference()             {}

// OwnerOperation names the operation that undoes transactions posted for ref.
// Manual postings belong to the ledger itself and yield "". A reversal is owned
// by whatever owns the transaction it reverses, which callers resolve.
func OwnerOperation(ref Reference) string {
	switch ref.(type) {
	case InvoiceRef:
		return "cancel the invoice"
	case PaymentRef:
		return "reverse the payment"
	case PaymentApplicationRef:
		return "reverse the payment application"
	case ExpenseRef:
		return "cancel the expense"
	}
	return ""
}

// ParseReference rebuilds a Reference from its stored columns.
func ParseReference(kind string, id int64) (Reference, error) {
	switch ReferenceKind(kind) {
	case ReferenceInvoice:
		return InvoiceRef{InvoiceID: id}, nil
	case ReferencePayment:
		return PaymentRef{PaymentID: id}, nil
	case ReferencePaymentApplication:
		return PaymentApplicationRef{ApplicationID: id}, nil
	case ReferenceExpense:
		return ExpenseRef{ExpenseID: id}, nil
	case ReferenceReversal:
		return ReversalRef{OriginalTransactionID: id}, nil
	case ReferenceManual, "":
		return ManualRef{}, nil
	}
	return nil, fmt.Errorf("unknown reference kind %q", kind)
}

type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "open"
	PeriodClosed PeriodStatus = "closed"
)

// AccountingPeriod is one (year, month) of a scope. Postings into a closed period are blocked.
type AccountingPeriod struct {
	ID       int64        `json:"id"`
	ScopeID  int64        `json:"scope_id"`
	Year     int          `json:"year"`
	Month    int          `json:"month"`
	Status   PeriodStatus `json:"status"`
	ClosedBy *int64       `json:"closed_by,omitempty"`
	ClosedAt *time.Time   `json:"closed_at,omitempty"`
}

// DateRange bounds balance queries. Zero values mean unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// MonthRange returns the first and last day of (year, month).
func MonthRange(year, month int) DateRange {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: from, To: from.AddDate(0, 1, -1)}
}
