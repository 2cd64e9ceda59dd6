package domain

import (
	"fmt"
	"time"
)

// DocumentKind identifies a family of human-facing sequential numbers.
type DocumentKind string

const (
	DocumentTransaction DocumentKind = "transaction"
	DocumentExpense     DocumentKind = "expense"
	DocumentPayment     DocumentKind = "payment"
	DocumentInvoice     DocumentKind = "invoice"
)

// ExpenseSubject replaces the apartment code in transaction numbers not tied to an apartment.
const ExpenseSubject = "EXP"

// NumberPrefix returns the counter key of a document number: everything before the sequence.
func NumberPrefix(kind DocumentKind, subject string, date time.Time) string {
	period := date.Format("200601")
	switch kind {
	case DocumentTransaction:
		return fmt.Sprintf("TXN-%s-%s-", subject, period)
	case DocumentExpense:
		return fmt.Sprintf("EGR-%s-", period)
	case DocumentPayment:
		return fmt.Sprintf("PAY-%s-%s-", period, subject)
	case DocumentInvoice:
		return fmt.Sprintf("FAC-%s-%s-", period, subject)
	}
	return string(kind) + "-" + period + "-"
}

// FormatNumber renders the full number for seq.
func FormatNumber(kind DocumentKind, subject string, date time.Time, seq int) string {
	prefix := NumberPrefix(kind, subject, date)
	switch kind {
	case DocumentPayment:
		return fmt.Sprintf("%s%02d", prefix, seq)
	case DocumentInvoice:
		return fmt.Sprintf("%s%03d", prefix, seq)
	default:
		return fmt.Sprintf("%s%04d", prefix, seq)
	}
}
