// Package bankimport reads bank export files into import rows ready for
// reconciliation.
package bankimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"

	"github.com/shopspring/decimal"
)

// Column names recognised in the header row. Matching ignores case, spaces
// and underscores.
var columnAliases = map[string][]string{
	"payment_type":      {"paymenttype", "type", "transactiontype"},
	"reference_number":  {"referencenumber", "reference", "ref"},
	"transaction_at":    {"transactiondate", "date", "transactionat", "datetime"},
	"amount":            {"amount", "value", "credit"},
	"approval_number":   {"approvalnumber", "approval", "authorization"},
	"originator_tax_id": {"originatortaxid", "taxid", "nit", "document", "documentnumber"},
	"detail":            {"detail", "description", "memo"},
}

var requiredColumns = []string{"transaction_at", "amount"}

// DefaultDateLayouts are tried in order for the transaction date column.
var DefaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

var ErrMissingHeader = errors.New("bank file has no header row")

// RowError describes a data row that was skipped.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result holds the parsed rows and the ones that were skipped.
type Result struct {
	Rows    []domain.ImportRow
	Skipped []RowError
}

// Parser reads delimited bank exports.
type Parser struct {
	Comma       rune
	DateLayouts []string
	Location    *time.Location
}

func NewParser() *Parser {
	return &Parser{Comma: ',', DateLayouts: DefaultDateLayouts, Location: time.UTC}
}

// Parse reads every data row. Malformed rows are logged and skipped; only an
// unreadable file or header is an error.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.Comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				p.skip(result, line, parseErr.Err.Error())
				continue
			}
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		row, err := p.parseRecord(record, columns)
		if err != nil {
			p.skip(result, line, err.Error())
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	logger.Info("Bank file parsed", "rows", len(result.Rows), "skipped", len(result.Skipped))
	return result, nil
}

func (p *Parser) skip(result *Result, line int, reason string) {
	logger.Warn("Skipping bank file row", "line", line, "reason", reason)
	result.Skipped = append(result.Skipped, RowError{Line: line, Reason: reason})
}

func (p *Parser) parseRecord(record []string, columns map[string]int) (domain.ImportRow, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	at, err := p.ParseDate(field("transaction_at"))
	if err != nil {
		return domain.ImportRow{}, err
	}
	amount, err := ParseAmount(field("amount"))
	if err != nil {
		return domain.ImportRow{}, err
	}

	row := domain.ImportRow{
		PaymentType:     field("payment_type"),
		ReferenceNumber: field("reference_number"),
		TransactionAt:   at,
		Amount:          amount,
		ApprovalNumber:  field("approval_number"),
		OriginatorTaxID: field("originator_tax_id"),
		Detail:          field("detail"),
	}
	if err := row.Validate(); err != nil {
		return domain.ImportRow{}, err
	}
	return row, nil
}

// ParseDate tries every configured layout in order.
func (p *Parser) ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("transaction date is empty")
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range p.DateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ParseAmount accepts both 1,234.56 and 1.234,56 styles plus a leading
// currency symbol. The last separator followed by one or two digits is the
// decimal point.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "$€£ ")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, errors.New("amount is empty")
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	sep := max(lastDot, lastComma)
	if sep >= 0 {
		if digits := len(s) - sep - 1; digits == 1 || digits == 2 {
			s = strings.NewReplacer(".", "", ",", "").Replace(s[:sep]) + "." + s[sep+1:]
		} else {
			s = strings.NewReplacer(".", "", ",", "").Replace(s)
		}
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func mapColumns(header []string) (map[string]int, error) {
	lookup := make(map[string]string)
	for name, aliases := range columnAliases {
		for _, alias := range aliases {
			lookup[alias] = name
		}
	}

	columns := make(map[string]int)
	for i, h := range header {
		key := normalizeHeader(h)
		if name, ok := lookup[key]; ok {
			if _, dup := columns[name]; !dup {
				columns[name] = i
			}
		}
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("bank file header is missing the %s column", name)
		}
	}
	return columns, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
