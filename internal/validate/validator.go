package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// ValidationResult contains all validation errors and warnings for a
// profile catalog.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a configuration error that would fail an
// import call up front.
type ValidationError struct {
	Profile string
	Field   string
	Value   string
	Message string
}

// ValidationWarning represents a non-critical configuration issue.
type ValidationWarning struct {
	Profile string
	Field   string
	Value   string
	Message string
}

// ValidateCatalog performs comprehensive validation of a profile catalog,
// checking each profile's individual constraints plus the cross-field
// conditions a single-profile Validate call cannot see.
func ValidateCatalog(c []domain.BankProfile) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	names := make(map[string]bool)

	for _, p := range c {
		if p.Name == "" {
			result.Errors = append(result.Errors, ValidationError{
				Profile: p.Name,
				Field:   "name",
				Value:   "",
				Message: "profile name cannot be empty",
			})
		} else {
			if names[p.Name] {
				result.Errors = append(result.Errors, ValidationError{
					Profile: p.Name,
					Field:   "name",
					Value:   p.Name,
					Message: "duplicate profile name",
				})
			}
			names[p.Name] = true
		}

		if p.SkipRows < 0 {
			result.Errors = append(result.Errors, ValidationError{
				Profile: p.Name,
				Field:   "skipRows",
				Value:   strconv.Itoa(p.SkipRows),
				Message: "skipRows must be >= 0",
			})
		}

		if p.DateColumn == "" {
			result.Errors = append(result.Errors, ValidationError{
				Profile: p.Name,
				Field:   "dateColumn",
				Value:   "",
				Message: "dateColumn cannot be empty",
			})
		}

		if p.AmountColumn == "" && !p.HasSplitAmount() {
			result.Errors = append(result.Errors, ValidationError{
				Profile: p.Name,
				Field:   "amountColumn",
				Value:   "",
				Message: "profile must configure either amountColumn or both creditColumn and debitColumn",
			})
		}

		// Half-configured pair: the profile may still work through its
		// single amount column, but the lone column is dead configuration.
		if (p.CreditColumn == "") != (p.DebitColumn == "") {
			field, value := "creditColumn", p.CreditColumn
			if p.CreditColumn == "" {
				field, value = "debitColumn", p.DebitColumn
			}
			result.Warnings = append(result.Warnings, ValidationWarning{
				Profile: p.Name,
				Field:   field,
				Value:   value,
				Message: "creditColumn and debitColumn must be configured together; the lone column is never read",
			})
		}

		if p.AmountColumn != "" && p.HasSplitAmount() {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Profile: p.Name,
				Field:   "amountColumn",
				Value:   p.AmountColumn,
				Message: "both single and paired amount columns configured; the credit/debit pair takes precedence",
			})
		}

		if !domain.ValidateDateFormat(p.DateFormat) {
			result.Errors = append(result.Errors, ValidationError{
				Profile: p.Name,
				Field:   "dateFormat",
				Value:   string(p.DateFormat),
				Message: fmt.Sprintf("unknown dateFormat: %s", p.DateFormat),
			})
		}

		if !p.HasHeader {
			for _, ref := range indexRefs(p) {
				if _, err := strconv.Atoi(ref); err != nil {
					result.Errors = append(result.Errors, ValidationError{
						Profile: p.Name,
						Field:   "columns",
						Value:   ref,
						Message: "headerless profiles must use decimal column indices",
					})
				}
			}
		}
	}

	return result
}

// indexRefs collects every configured column reference of a profile.
func indexRefs(p domain.BankProfile) []string {
	refs := []string{}
	if p.DateColumn != "" {
		refs = append(refs, p.DateColumn)
	}
	for _, ref := range splitRefs(p.DescriptionColumn) {
		refs = append(refs, ref)
	}
	for _, ref := range []string{p.AmountColumn, p.CreditColumn, p.DebitColumn} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func splitRefs(refs string) []string {
	var out []string
	for _, ref := range strings.Split(refs, ",") {
		ref = strings.TrimSpace(ref)
		if ref != "" {
			out = append(out, ref)
		}
	}
	return out
}
