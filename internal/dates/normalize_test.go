package dates

import (
	"testing"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

func TestNormalize_ExplicitFormats(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		format domain.DateFormat
		want   string
	}{
		{"ISO", "2024-01-15", domain.DateFormatISO, "2024-01-15"},
		{"DD/MM/YYYY", "15/01/2024", domain.DateFormatDMYS, "2024-01-15"},
		{"MM/DD/YYYY", "01/15/2024", domain.DateFormatMDYS, "2024-01-15"},
		{"DD-MM-YYYY", "15-01-2024", domain.DateFormatDMYD, "2024-01-15"},
		{"MM-DD-YYYY", "01-15-2024", domain.DateFormatMDYD, "2024-01-15"},
		{"DD/MM/YY", "15/01/24", domain.DateFormatDMY2, "2024-01-15"},
		{"MM/DD/YY", "01/15/24", domain.DateFormatMDY2, "2024-01-15"},
		{"DD-Mon-YY", "16-Feb-26", domain.DateFormatDMonY2, "2026-02-16"},
		{"DD-Mon-YYYY", "16-Feb-2026", domain.DateFormatDMonY4, "2026-02-16"},
		{"lowercase month", "16-feb-26", domain.DateFormatDMonY2, "2026-02-16"},
		{"uppercase month", "16-FEB-26", domain.DateFormatDMonY2, "2026-02-16"},
		{"single digit day and month", "5/3/2024", domain.DateFormatDMYS, "2024-03-05"},
		{"surrounding whitespace", "  15/01/2024  ", domain.DateFormatDMYS, "2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.format)
			if got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.raw, tt.format, got, tt.want)
			}
		})
	}
}

func TestNormalize_TwoDigitYearPivot(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"01/01/50", "1950-01-01"},
		{"01/01/49", "2049-01-01"},
		{"01/01/00", "2000-01-01"},
		{"01/01/99", "1999-01-01"},
	}

	for _, tt := range tests {
		got := Normalize(tt.raw, domain.DateFormatMDY2)
		if got != tt.want {
			t.Errorf("Normalize(%q, MM/DD/YY) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		format domain.DateFormat
	}{
		{"empty input", "", domain.DateFormatISO},
		{"whitespace only", "   ", domain.DateFormatISO},
		{"not a date", "not-a-date", domain.DateFormatISO},
		{"wrong separator", "15-01-2024", domain.DateFormatDMYS},
		{"token count mismatch", "15/01", domain.DateFormatDMYS},
		{"non-numeric token", "aa/01/2024", domain.DateFormatDMYS},
		{"impossible day", "31/02/2024", domain.DateFormatDMYS},
		{"impossible month", "15/13/2024", domain.DateFormatDMYS},
		{"two-digit year in YYYY slot", "15/01/24", domain.DateFormatDMYS},
		{"four-digit year in YY slot", "15/01/2024", domain.DateFormatDMY2},
		{"unknown month abbreviation", "16-Xyz-26", domain.DateFormatDMonY2},
		{"negative day", "-5/01/2024", domain.DateFormatDMYS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw, tt.format); got != "" {
				t.Errorf("Normalize(%q, %q) = %q, want empty", tt.raw, tt.format, got)
			}
		})
	}
}

func TestNormalize_AutoDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain ISO", "2024-01-15", "2024-01-15"},
		{"ISO prefix with embedded time", "2024-01-15T00:00:00Z", "2024-01-15"},
		{"ISO prefix with offset near midnight", "2024-01-15T23:59:00-08:00", "2024-01-15"},
		{"month abbreviation short year", "16-Feb-26", "2026-02-16"},
		{"month abbreviation full year", "16-Feb-2026", "2026-02-16"},
		{"long month name", "January 15, 2024", "2024-01-15"},
		{"short month name", "Jan 15, 2024", "2024-01-15"},
		{"day first long month", "15 January 2024", "2024-01-15"},
		{"rfc1123", "Mon, 15 Jan 2024 10:00:00 UTC", "2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, domain.DateFormatAuto)
			if got != tt.want {
				t.Errorf("Normalize(%q, auto) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_AutoFailsClosed(t *testing.T) {
	// Ambiguous numeric forms must not be guessed between DD/MM and MM/DD.
	tests := []string{
		"15/01/2024",
		"01/15/2024",
		"garbage",
		"2024/01/15",
	}

	for _, raw := range tests {
		if got := Normalize(raw, domain.DateFormatAuto); got != "" {
			t.Errorf("Normalize(%q, auto) = %q, want empty", raw, got)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	// Renormalizing a canonical date as YYYY-MM-DD is the identity.
	inputs := []struct {
		raw    string
		format domain.DateFormat
	}{
		{"15/01/2024", domain.DateFormatDMYS},
		{"01/15/24", domain.DateFormatMDY2},
		{"16-Feb-26", domain.DateFormatDMonY2},
		{"2024-01-15", domain.DateFormatISO},
	}

	for _, in := range inputs {
		first := Normalize(in.raw, in.format)
		if first == "" {
			t.Fatalf("Normalize(%q, %q) unexpectedly empty", in.raw, in.format)
		}
		second := Normalize(first, domain.DateFormatISO)
		if second != first {
			t.Errorf("Normalize(%q, YYYY-MM-DD) = %q, want %q", first, second, first)
		}
	}
}
