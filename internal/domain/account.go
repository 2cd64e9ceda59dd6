package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// AccountNature tells which side increases the account balance.
type AccountNature string

const (
	NatureDebit  AccountNature = "debit"
	NatureCredit AccountNature = "credit"
)

func (n AccountNature) Valid() bool {
	return n == NatureDebit || n == NatureCredit
}

// MaxAccountLevel is the deepest level of the chart (6-digit codes).
const MaxAccountLevel = 4

var codeLengthByLevel = map[int]int{1: 1, 2: 2, 3: 4, 4: 6}

// CodeLengthForLevel returns the digit count required at level, or 0 for an unknown level.
func CodeLengthForLevel(level int) int {
	return codeLengthByLevel[level]
}

type Account struct {
	ID                 int64         `json:"id"`
	ScopeID            int64         `json:"scope_id"`
	Code               string        `json:"code"`
	Name               string        `json:"name"`
	Type               AccountType   `json:"type"`
	Nature             AccountNature `json:"nature"`
	ParentID           *int64        `json:"parent_id,omitempty"`
	Level              int           `json:"level"`
	Postable           bool          `json:"postable"`
	Active             bool          `json:"active"`
	RequiresThirdParty bool          `json:"requires_third_party"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ValidateCode checks that code is purely numeric and has the length its level demands.
func ValidateCode(code string, level int) error {
	want := CodeLengthForLevel(level)
	if want == 0 {
		return NewValidationError("level", "level %d is outside 1..%d", level, MaxAccountLevel)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return NewValidationError("code", "code %q must contain only digits", code)
		}
	}
	if len(code) != want {
		return NewValidationError("code", "code %q must have %d digits at level %d", code, want, level)
	}
	return nil
}

// LevelForCode derives the level from a code length, 0 if the length matches no level.
func LevelForCode(code string) int {
	for level, n := range codeLengthByLevel {
		if len(code) == n {
			return level
		}
	}
	return 0
}

// Validate checks the account against its (optional) parent.
func (a *Account) Validate(parent *Account) error {
	if a.Name == "" {
		return NewValidationError("name", "name is required")
	}
	if !a.Type.Valid() {
		return NewValidationError("type", "unknown account type %q", a.Type)
	}
	if !a.Nature.Valid() {
		return NewValidationError("nature", "unknown account nature %q", a.Nature)
	}
	level := 1
	if parent != nil {
		level = parent.Level + 1
		if parent.ScopeID != a.ScopeID {
			return NewValidationError("parent_id", "parent belongs to another scope")
		}
	}
	if err := ValidateCode(a.Code, level); err != nil {
		return err
	}
	if parent != nil && !strings.HasPrefix(a.Code, parent.Code) {
		return NewValidationError("code", "code %q must start with parent code %q", a.Code, parent.Code)
	}
	a.Level = level
	return nil
}

// NetBalance nets debits and credits according to the account nature.
func (a *Account) NetBalance(t Totals) decimal.Decimal {
	if a.Nature == NatureCredit {
		return t.Credit.Sub(t.Debit)
	}
	return t.Debit.Sub(t.Credit)
}

// Chart is an arena of accounts indexed by id. Hierarchy walks follow parent ids.
type Chart struct {
	byID     map[int64]*Account
	children map[int64][]int64
}

func NewChart(accounts []Account) *Chart {
	c := &Chart{
		byID:     make(map[int64]*Account, len(accounts)),
		children: make(map[int64][]int64),
	}
	for i := range accounts {
		a := &accounts[i]
		c.byID[a.ID] = a
	}
	for _, a := range c.byID {
		if a.ParentID != nil {
			c.children[*a.ParentID] = append(c.children[*a.ParentID], a.ID)
		}
	}
	for parentID, ids := range c.children {
		sort.Slice(ids, func(i, j int) bool { return c.byID[ids[i]].Code < c.byID[ids[j]].Code })
		c.children[parentID] = ids
	}
	return c
}

func (c *Chart) Get(id int64) (*Account, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Ancestors returns the parents of id, nearest first.
func (c *Chart) Ancestors(id int64) []*Account {
	var out []*Account
	a, ok := c.byID[id]
	for ok && a.ParentID != nil {
		a, ok = c.byID[*a.ParentID]
		if ok {
			out = append(out, a)
		}
	}
	return out
}

// Descendants returns every account below id, depth first.
func (c *Chart) Descendants(id int64) []*Account {
	var out []*Account
	for _, childID := range c.children[id] {
		out = append(out, c.byID[childID])
		out = append(out, c.Descendants(childID)...)
	}
	return out
}

// WouldCycle reports whether making newParentID the parent of id creates a cycle.
func (c *Chart) WouldCycle(id, newParentID int64) bool {
	if id == newParentID {
		return true
	}
	for _, d := range c.Descendants(id) {
		if d.ID == newParentID {
			return true
		}
	}
	return false
}
