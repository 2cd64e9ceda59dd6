package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// OutstandingInvoiceStatuses are the statuses a payment can still be applied to.
var OutstandingInvoiceStatuses = []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusOverdue}

type Invoice struct {
	ID            int64           `json:"id"`
	ScopeID       int64           `json:"scope_id"`
	ApartmentID   int64           `json:"apartment_id"`
	Number        string          `json:"number"`
	BillingDate   time.Time       `json:"billing_date"`
	DueDate       time.Time       `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	EarlyDiscount decimal.Decimal `json:"early_discount"`
	LateFees      decimal.Decimal `json:"late_fees"`
	Total         decimal.Decimal `json:"total"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Status        InvoiceStatus   `json:"status"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []InvoiceItem   `json:"items,omitempty"`
}

type InvoiceItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	ConceptID   int64           `json:"concept_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (i InvoiceItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// BalanceDue is always total minus paid.
func (inv *Invoice) BalanceDue() decimal.Decimal {
	return inv.Total.Sub(inv.PaidAmount)
}

// CalculateTotals sets subtotal and total from the items and adjustments.
func (inv *Invoice) CalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range inv.Items {
		subtotal = subtotal.Add(item.Amount())
	}
	inv.Subtotal = subtotal
	inv.Total = subtotal.Sub(inv.EarlyDiscount).Add(inv.LateFees)
}

// DeriveStatus computes the status from balance and due date. Cancelled is sticky.
func (inv *Invoice) DeriveStatus(now time.Time) InvoiceStatus {
	if inv.Status == InvoiceStatusCancelled {
		return InvoiceStatusCancelled
	}
	if !inv.BalanceDue().IsPositive() {
		return InvoiceStatusPaid
	}
	if inv.PaidAmount.IsPositive() {
		return InvoiceStatusPartial
	}
	if !inv.DueDate.IsZero() && now.After(inv.DueDate) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusPending
}

func (inv *Invoice) RefreshStatus(now time.Time) {
	inv.Status = inv.DeriveStatus(now)
}

func (inv *Invoice) Validate() error {
	if inv.ApartmentID == 0 {
		return NewValidationError("apartment_id", "apartment is required")
	}
	if len(inv.Items) == 0 {
		return NewValidationError("items", "invoice needs at least one item")
	}
	for _, item := range inv.Items {
		if !item.Amount().IsPositive() {
			return NewValidationError("items", "item %q must have a positive amount", item.Description)
		}
	}
	if inv.EarlyDiscount.IsNegative() || inv.LateFees.IsNegative() {
		return NewValidationError("adjustments", "discount and late fees cannot be negative")
	}
	if !inv.DueDate.IsZero() && inv.DueDate.Before(inv.BillingDate) {
		return NewValidationError("due_date", "due date precedes billing date")
	}
	return nil
}

type Apartment struct {
	ID      int64  `json:"id"`
	ScopeID int64  `json:"scope_id"`
	Number  string `json:"number"`
	Tower   string `json:"tower,omitempty"`
}

// Code is the apartment part of human-facing document numbers.
func (a *Apartment) Code() string {
	if a.Tower == "" {
		return a.Number
	}
	return a.Tower + a.Number
}

// MatchApartmentReference picks the apartment a bank reference names among the
// candidates sharing its number. A tower-prefixed code beats a bare number;
// more than one candidate at the winning tier is ErrAmbiguousApartment.
func MatchApartmentReference(candidates []Apartment, reference string) (*Apartment, error) {
	var exact, bare []Apartment
	for _, a := range candidates {
		switch {
		case a.Tower != "" && a.Code() == reference:
			exact = append(exact, a)
		case a.Number == reference:
			bare = append(bare, a)
		}
	}
	tier := exact
	if len(tier) == 0 {
		tier = bare
	}
	switch len(tier) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &tier[0], nil
	default:
		return nil, ErrAmbiguousApartment
	}
}

type ResidentType string

const (
	ResidentOwner  ResidentType = "owner"
	ResidentTenant ResidentType = "tenant"
)

type Resident struct {
	ID             int64        `json:"id"`
	ScopeID        int64        `json:"scope_id"`
	ApartmentID    int64        `json:"apartment_id"`
	Name           string       `json:"name"`
	DocumentNumber string       `json:"document_number"`
	Type           ResidentType `json:"type"`
	Active         bool         `json:"active"`
}
