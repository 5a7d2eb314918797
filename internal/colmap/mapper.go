// Package colmap extracts the raw date, description, and signed amount
// fields from a parsed CSV row according to a bank profile.
package colmap

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// ErrNoAmount is returned when no configured amount column yields a value.
// A blank amount cell must reject the row rather than map to zero, so blank
// trailing lines cannot become spurious zero-amount transactions.
var ErrNoAmount = errors.New("no amount value in row")

// Mapped holds the raw fields extracted from one row, before date
// normalization and rule resolution. It has no identity and is discarded
// once converted to a transaction or rejected.
type Mapped struct {
	RawDate     string
	DateFound   bool
	Description string
	Amount      float64
}

// Map resolves the profile's column references against a row. An
// unresolvable reference yields a missing value for that field, not an
// error; only a missing amount rejects the row here. A missing date is
// checked by the orchestrator after mapping.
func Map(row domain.RawRow, profile domain.BankProfile) (*Mapped, error) {
	m := &Mapped{}

	m.RawDate, m.DateFound = row.Lookup(profile.DateColumn)
	m.Description = mapDescription(row, profile.DescriptionColumn)

	amount, ok := mapAmount(row, profile)
	if !ok {
		return nil, ErrNoAmount
	}
	m.Amount = amount

	return m, nil
}

// mapDescription splits the reference list on commas, looks up each
// reference, drops empty results, and joins the survivors with a single
// space. Order is preserved as configured.
func mapDescription(row domain.RawRow, refs string) string {
	var parts []string
	for _, ref := range strings.Split(refs, ",") {
		v, ok := row.Lookup(strings.TrimSpace(ref))
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

// mapAmount resolves the amount using the profile's configured mode. The
// credit/debit pair takes precedence over a single amount column when both
// columns are present and at least one is non-empty.
func mapAmount(row domain.RawRow, profile domain.BankProfile) (float64, bool) {
	if profile.HasSplitAmount() {
		credit, creditOK := row.Lookup(profile.CreditColumn)
		debit, debitOK := row.Lookup(profile.DebitColumn)
		credit = strings.TrimSpace(credit)
		debit = strings.TrimSpace(debit)

		if creditOK && debitOK && (credit != "" || debit != "") {
			// Both columns read as unsigned magnitudes before subtraction.
			return ParseAmount(credit) - ParseAmount(debit), true
		}
		// Fall through to the single column when the pair yields nothing.
	}

	if profile.AmountColumn == "" {
		return 0, false
	}

	raw, ok := row.Lookup(profile.AmountColumn)
	if !ok {
		return 0, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	return ParseAmount(raw), true
}

// ParseAmount strips thousands-separator commas and parses the result as a
// decimal number. Unparseable input yields zero: a malformed cell must not
// abort the whole import.
func ParseAmount(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
