// Package csvfile reads RFC-4180 bank export content into raw rows
// addressed the way the bank profile expects.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// Read parses delimited UTF-8 content into raw rows. SkipRows leading
// lines are stripped before parsing (bank letterhead), then, when the
// profile declares a header, the next record names the columns and every
// remaining record becomes a headered row. Headerless profiles get
// position-addressed rows.
//
// Records with blank cells are kept: the column mapper's rejection rules
// decide their fate, so the rejection count stays meaningful against file
// line numbers. Only lines with no cells at all are skipped by the reader.
func Read(r io.Reader, profile domain.BankProfile) ([]domain.RawRow, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	lines := strings.Split(string(content), "\n")
	if profile.SkipRows > 0 {
		if profile.SkipRows >= len(lines) {
			return nil, nil
		}
		lines = lines[profile.SkipRows:]
	}

	csvReader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV content: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var header []string
	if profile.HasHeader {
		header = trimAll(records[0])
		records = records[1:]
	}

	rows := make([]domain.RawRow, 0, len(records))
	for _, record := range records {
		if profile.HasHeader {
			rows = append(rows, headeredRow(header, record))
		} else {
			rows = append(rows, domain.NewHeaderlessRow(record))
		}
	}

	return rows, nil
}

// headeredRow zips header names with cell values. Extra cells beyond the
// header are dropped; missing trailing cells stay absent so lookups on
// them fail cleanly.
func headeredRow(header, record []string) domain.RawRow {
	values := make(map[string]string, len(header))
	for i, name := range header {
		if name == "" || i >= len(record) {
			continue
		}
		values[name] = record[i]
	}
	return domain.NewHeaderedRow(values)
}

func trimAll(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
