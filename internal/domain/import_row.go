package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

type ReconciliationStatus string

const (
	ReconciliationPending      ReconciliationStatus = "pending"
	ReconciliationMatched      ReconciliationStatus = "matched"
	ReconciliationManualReview ReconciliationStatus = "manual_review"
	ReconciliationRejected     ReconciliationStatus = "rejected"
)

type MatchType string

const (
	MatchNone            MatchType = ""
	MatchApartmentNumber MatchType = "apartment_number"
	MatchOwnerTaxID      MatchType = "owner_tax_id"
	MatchManual          MatchType = "manual"
)

// ImportRow is one external bank record plus its reconciliation state.
type ImportRow struct {
	ID              int64                `json:"id"`
	ScopeID         int64                `json:"scope_id"`
	BatchID         string               `json:"batch_id"`
	PaymentType     string               `json:"payment_type"`
	ReferenceNumber string               `json:"reference_number"`
	TransactionAt   time.Time            `json:"transaction_at"`
	Amount          decimal.Decimal      `json:"amount"`
	ApprovalNumber  string               `json:"approval_number"`
	OriginatorTaxID string               `json:"originator_tax_id"`
	Detail          string               `json:"detail"`
	Status          ReconciliationStatus `json:"reconciliation_status"`
	ApartmentID     *int64               `json:"apartment_id,omitempty"`
	PaymentID       *int64               `json:"payment_id,omitempty"`
	MatchType       MatchType            `json:"match_type,omitempty"`
	MatchNotes      string               `json:"match_notes,omitempty"`
	ProcessedBy     *int64               `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time           `json:"processed_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

func (r *ImportRow) Validate() error {
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be positive")
	}
	if r.TransactionAt.IsZero() {
		return NewValidationError("transaction_at", "transaction date is required")
	}
	return nil
}

// CanCreatePayment reports whether the row is ready to become a payment.
func (r *ImportRow) CanCreatePayment() bool {
	return r.Status == ReconciliationMatched && r.ApartmentID != nil && r.PaymentID == nil
}

// NormalizeTaxID keeps only digits and drops leading zeros.
func NormalizeTaxID(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}

// ImportBatchSummary aggregates a batch for reporting.
type ImportBatchSummary struct {
	BatchID string                                   `json:"batch_id"`
	Counts  map[ReconciliationStatus]int             `json:"counts"`
	Amounts map[ReconciliationStatus]decimal.Decimal `json:"amounts"`
	Total   int                                      `json:"total"`
}
