package importer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SlugifyFileName converts an export file name to a readable slug used in
// batch identifiers. Examples: "Extrato Conta Março.csv" → "extrato-conta-marco",
// "checking_2024-01.csv" → "checking-2024-01".
func SlugifyFileName(name string) string {
	name = strings.TrimSuffix(name, ".csv")
	name = strings.TrimSuffix(name, ".CSV")

	// Normalize unicode (e.g. accented characters in bank export names).
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, name)
	if err != nil {
		normalized = name
	}

	slug := strings.ToLower(normalized)
	slug = nonAlnum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return "import"
	}
	return slug
}

// NewBatchID creates a batch identifier from the file name plus a random
// suffix. The slug keeps batches human-scannable in storage; the uuid
// suffix keeps re-imports of the same file distinct.
func NewBatchID(fileName string) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("batch-%s-%s", SlugifyFileName(fileName), suffix)
}
