package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// Export is the JSON document produced after an import run.
type Export struct {
	Imported     int                  `json:"imported"`
	Rejected     int                  `json:"rejected"`
	Transactions []domain.Transaction `json:"transactions"`
}

// WriteOptions configures where the export is written.
type WriteOptions struct {
	FilePath string // Output path (empty = stdout)
}

// NewExport builds an export document from accepted transactions and the
// aggregate rejection count. The transaction slice keeps its input order;
// consumers rely on stable ordering for display.
func NewExport(txns []domain.Transaction, rejected int) *Export {
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return &Export{
		Imported:     len(txns),
		Rejected:     rejected,
		Transactions: txns,
	}
}

// WriteExport serializes the export to JSON with 2-space indentation.
func WriteExport(export *Export, w io.Writer) error {
	if export == nil {
		return fmt.Errorf("export cannot be nil")
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode export as JSON: %w", err)
	}

	return nil
}

// WriteExportToFile writes the export to a file or stdout based on options.
func WriteExportToFile(export *Export, opts WriteOptions) (err error) {
	if export == nil {
		return fmt.Errorf("export cannot be nil")
	}

	if opts.FilePath == "" {
		return WriteExport(export, os.Stdout)
	}

	f, err := os.Create(opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", opts.FilePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file %s: %w", opts.FilePath, closeErr)
		}
	}()

	if err = WriteExport(export, f); err != nil {
		return fmt.Errorf("failed to write export to %s: %w", opts.FilePath, err)
	}

	return nil
}
