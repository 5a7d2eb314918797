package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultCategory is assigned when no categorize rule matches and no
// fallback category is supplied.
const DefaultCategory = "Uncategorized"

// DateFormat identifies one of the supported date layouts for a bank export.
// Use ValidateDateFormat to ensure validity before use.
type DateFormat string

const (
	DateFormatAuto   DateFormat = "auto"
	DateFormatISO    DateFormat = "YYYY-MM-DD"
	DateFormatDMYS   DateFormat = "DD/MM/YYYY"
	DateFormatMDYS   DateFormat = "MM/DD/YYYY"
	DateFormatDMYD   DateFormat = "DD-MM-YYYY"
	DateFormatMDYD   DateFormat = "MM-DD-YYYY"
	DateFormatDMY2   DateFormat = "DD/MM/YY"
	DateFormatMDY2   DateFormat = "MM/DD/YY"
	DateFormatDMonY2 DateFormat = "DD-Mon-YY"
	DateFormatDMonY4 DateFormat = "DD-Mon-YYYY"
)

var validDateFormats = map[DateFormat]struct{}{
	DateFormatAuto: {}, DateFormatISO: {}, DateFormatDMYS: {},
	DateFormatMDYS: {}, DateFormatDMYD: {}, DateFormatMDYD: {},
	DateFormatDMY2: {}, DateFormatMDY2: {}, DateFormatDMonY2: {},
	DateFormatDMonY4: {},
}

// ValidateDateFormat checks if the date format is one of the supported layouts
func ValidateDateFormat(f DateFormat) bool {
	_, ok := validDateFormats[f]
	return ok
}

// DateFormats returns the supported format vocabulary in stable order,
// for error messages and CLI help text.
func DateFormats() []DateFormat {
	return []DateFormat{
		DateFormatAuto, DateFormatISO, DateFormatDMYS, DateFormatMDYS,
		DateFormatDMYD, DateFormatMDYD, DateFormatDMY2, DateFormatMDY2,
		DateFormatDMonY2, DateFormatDMonY4,
	}
}

// BankProfile describes how one bank's CSV export layout maps to
// transaction fields. Profiles are plain immutable values: the pipeline
// reads them but never stores or mutates them.
//
// Column references are header names when HasHeader is true, and decimal
// string indices (zero-based) when it is false. DescriptionColumn may hold
// several comma-separated references whose values are joined with a space.
//
// Amount resolution is either AmountColumn (signed, positive=credit) or the
// CreditColumn/DebitColumn pair (amount = credit - debit). When both are
// configured the pair takes precedence. A profile with neither is invalid.
type BankProfile struct {
	Name              string     `yaml:"name"`
	HasHeader         bool       `yaml:"hasHeader"`
	SkipRows          int        `yaml:"skipRows"`
	DateColumn        string     `yaml:"dateColumn"`
	DescriptionColumn string     `yaml:"descriptionColumn"`
	AmountColumn      string     `yaml:"amountColumn"`
	CreditColumn      string     `yaml:"creditColumn"`
	DebitColumn       string     `yaml:"debitColumn"`
	DateFormat        DateFormat `yaml:"dateFormat"`
}

// HasSplitAmount reports whether the profile uses the credit/debit column pair.
func (p *BankProfile) HasSplitAmount() bool {
	return p.CreditColumn != "" && p.DebitColumn != ""
}

// Validate checks the profile invariants that must hold before any row is
// processed: a resolvable amount mode and a known date format.
func (p *BankProfile) Validate() error {
	if p.SkipRows < 0 {
		return fmt.Errorf("skipRows must be >= 0, got %d", p.SkipRows)
	}
	if p.DateColumn == "" {
		return fmt.Errorf("dateColumn cannot be empty")
	}
	if p.AmountColumn == "" && !p.HasSplitAmount() {
		return fmt.Errorf("profile must configure either amountColumn or both creditColumn and debitColumn")
	}
	if !ValidateDateFormat(p.DateFormat) {
		return fmt.Errorf("unknown dateFormat %q (supported: %s)", p.DateFormat, formatList())
	}
	return nil
}

func formatList() string {
	formats := DateFormats()
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

// RawRow is one parsed CSV row, either keyed by header name or addressed by
// position. The two shapes are a tagged union: exactly one of the backing
// stores is populated, and Lookup branches once on the tag.
type RawRow struct {
	headered bool
	byName   map[string]string
	cells    []string
}

// NewHeaderedRow creates a row addressed by column name.
func NewHeaderedRow(values map[string]string) RawRow {
	return RawRow{headered: true, byName: values}
}

// NewHeaderlessRow creates a row addressed by zero-based position.
func NewHeaderlessRow(cells []string) RawRow {
	return RawRow{cells: cells}
}

// Headered reports whether the row is addressed by column name.
func (r *RawRow) Headered() bool { return r.headered }

// Lookup resolves a single column reference against the row. In headered
// mode the reference is a column name; otherwise it must parse as a decimal
// index. An unresolvable reference yields ("", false), never an error.
func (r *RawRow) Lookup(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if r.headered {
		v, ok := r.byName[ref]
		return v, ok
	}
	idx, err := strconv.Atoi(ref)
	if err != nil || idx < 0 || idx >= len(r.cells) {
		return "", false
	}
	return r.cells[idx], true
}

// RuleAction is the directive a rule applies to a matching transaction.
type RuleAction string

const (
	// RuleActionIgnore hides the transaction from reports.
	RuleActionIgnore RuleAction = "ignore"
	// RuleActionCategorize assigns the rule's category.
	RuleActionCategorize RuleAction = "categorize"
)

// ValidateRuleAction checks if the action is a known directive
func ValidateRuleAction(a RuleAction) bool {
	return a == RuleActionIgnore || a == RuleActionCategorize
}

// Rule is a keyword-triggered categorization directive. Rules are immutable
// during matching; the engine treats the slice it receives as a snapshot.
type Rule struct {
	ID            int        `yaml:"id"`
	Keyword       string     `yaml:"keyword"`
	Action        RuleAction `yaml:"action"`
	Category      string     `yaml:"category"`
	CaseSensitive bool       `yaml:"caseSensitive"`
	Priority      int        `yaml:"priority"`
	Enabled       bool       `yaml:"enabled"`
}

// Validate checks the rule invariants enforced at load time.
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return fmt.Errorf("keyword cannot be empty")
	}
	if !ValidateRuleAction(r.Action) {
		return fmt.Errorf("invalid action %q (must be 'ignore' or 'categorize')", r.Action)
	}
	if r.Action == RuleActionCategorize && strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("categorize rule must name a category")
	}
	return nil
}

// Transaction is a fully resolved, storable record. ID is assigned by the
// storage collaborator; the import pipeline always hands off transactions
// with an empty ID and ManualOverride=false.
type Transaction struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"` // canonical YYYY-MM-DD
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"` // signed: positive=credit, negative=debit
	Category       string  `json:"category"`
	Ignored        bool    `json:"ignored"`
	ManualOverride bool    `json:"manualOverride"`
}
