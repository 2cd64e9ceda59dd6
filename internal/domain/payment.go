package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending          PaymentStatus = "pending"
	PaymentStatusPartiallyApplied PaymentStatus = "partially_applied"
	PaymentStatusApplied          PaymentStatus = "applied"
	PaymentStatusReversed         PaymentStatus = "reversed"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOnline       PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCheck, PaymentMethodOnline:
		return true
	}
	return false
}

type Payment struct {
	ID            int64           `json:"id"`
	ScopeID       int64           `json:"scope_id"`
	ApartmentID   int64           `json:"apartment_id"`
	Number        string          `json:"number"`
	Amount        decimal.Decimal `json:"total_amount"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	Method        PaymentMethod   `json:"method"`
	PaymentDate   time.Time       `json:"payment_date"`
	Reference     string          `json:"reference,omitempty"`
	Status        PaymentStatus   `json:"status"`
	AppliedBy     *int64          `json:"applied_by,omitempty"`
	AppliedAt     *time.Time      `json:"applied_at,omitempty"`
	ReversedBy    *int64          `json:"reversed_by,omitempty"`
	ReversedAt    *time.Time      `json:"reversed_at,omitempty"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RemainingAmount is derived, never stored.
func (p *Payment) RemainingAmount() decimal.Decimal {
	remaining := p.Amount.Sub(p.AppliedAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CanBeApplied reports whether apply-to-invoices may run.
func (p *Payment) CanBeApplied() bool {
	return (p.Status == PaymentStatusPending || p.Status == PaymentStatusPartiallyApplied) &&
		p.RemainingAmount().IsPositive()
}

// DeriveStatus maps applied amount to a status. Reversed is sticky.
func (p *Payment) DeriveStatus() PaymentStatus {
	switch {
	case p.Status == PaymentStatusReversed:
		return PaymentStatusReversed
	case !p.AppliedAmount.IsPositive():
		return PaymentStatusPending
	case p.AppliedAmount.GreaterThanOrEqual(p.Amount):
		return PaymentStatusApplied
	default:
		return PaymentStatusPartiallyApplied
	}
}

func (p *Payment) Validate() error {
	if p.ApartmentID == 0 {
		return NewValidationError("apartment_id", "apartment is required")
	}
	if !p.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be positive")
	}
	if !p.Method.Valid() {
		return NewValidationError("method", "unknown payment method %q", p.Method)
	}
	if p.PaymentDate.IsZero() {
		return NewValidationError("payment_date", "payment date is required")
	}
	return nil
}

type ApplicationStatus string

const (
	ApplicationStatusActive   ApplicationStatus = "active"
	ApplicationStatusReversed ApplicationStatus = "reversed"
)

// PaymentApplication allocates part of one payment to one invoice.
type PaymentApplication struct {
	ID            int64             `json:"id"`
	PaymentID     int64             `json:"payment_id"`
	InvoiceID     int64             `json:"invoice_id"`
	AmountApplied decimal.Decimal   `json:"amount_applied"`
	Status        ApplicationStatus `json:"status"`
	TransactionID *int64            `json:"transaction_id,omitempty"`
	AppliedBy     int64             `json:"applied_by"`
	AppliedAt     time.Time         `json:"applied_at"`
	ReversedBy    *int64            `json:"reversed_by,omitempty"`
	ReversedAt    *time.Time        `json:"reversed_at,omitempty"`
}
