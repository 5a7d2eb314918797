// Package importer orchestrates the import pipeline: raw rows are mapped
// through the bank profile, dates normalized, rules resolved, and finished
// records handed to the storage collaborator.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rumor-ml/commons.systems/bankimport/internal/colmap"
	"github.com/rumor-ml/commons.systems/bankimport/internal/csvfile"
	"github.com/rumor-ml/commons.systems/bankimport/internal/dates"
	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
)

// Result contains the outcome of importing one file's rows. Accepted
// preserves input row order; Rejected counts rows skipped for a missing
// amount, a missing date reference, or an unparseable date.
type Result struct {
	Accepted []domain.Transaction
	Rejected int
}

// Batch describes one imported file for the storage collaborator.
type Batch struct {
	ID         string
	FileName   string
	ImportedAt time.Time
	Accepted   int
	Rejected   int
}

// Store is the storage collaborator. It owns resolved transactions after
// handoff and is responsible for assigning persistent identity.
type Store interface {
	SaveBatch(ctx context.Context, batch Batch, txns []domain.Transaction) error
}

// ImportRows converts raw rows into resolved transactions. Configuration
// errors (invalid profile, unknown format override) fail the whole call
// before any row is processed; row-level problems reject the row and
// continue. Processing is strictly sequential so the accepted ordering and
// the rejection count line up with file line numbers.
func ImportRows(rows []domain.RawRow, profile domain.BankProfile, formatOverride domain.DateFormat, engine *rules.Engine) (*Result, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %q: %w", profile.Name, err)
	}

	format := profile.DateFormat
	if formatOverride != "" {
		if !domain.ValidateDateFormat(formatOverride) {
			return nil, fmt.Errorf("unknown date format override %q", formatOverride)
		}
		format = formatOverride
	}

	result := &Result{Accepted: []domain.Transaction{}}

	for _, row := range rows {
		mapped, err := colmap.Map(row, profile)
		if err != nil {
			if errors.Is(err, colmap.ErrNoAmount) {
				result.Rejected++
				continue
			}
			return nil, fmt.Errorf("column mapping failed: %w", err)
		}

		// The date reference is checked after mapping, before normalization.
		if !mapped.DateFound {
			result.Rejected++
			continue
		}

		date := dates.Normalize(mapped.RawDate, format)
		if date == "" {
			// A transaction without a valid date is not storable.
			result.Rejected++
			continue
		}

		// Fresh imports never inherit a pre-existing category.
		res := engine.Resolve(mapped.Description, "")

		result.Accepted = append(result.Accepted, domain.Transaction{
			Date:           date,
			Description:    mapped.Description,
			Amount:         mapped.Amount,
			Category:       res.Category,
			Ignored:        res.Ignore,
			ManualOverride: false,
		})
	}

	return result, nil
}

// FileResult pairs a file with its import outcome for reporting.
type FileResult struct {
	Path     string
	Batch    Batch
	Accepted int
	Rejected int
}

// Importer runs file imports against a store with an immutable rule
// snapshot. Callers must snapshot configuration before constructing one; a
// rule change concurrent with an in-flight import is never observed.
type Importer struct {
	store  Store
	engine *rules.Engine
}

// New creates an importer bound to a store and rule engine.
func New(store Store, engine *rules.Engine) *Importer {
	return &Importer{store: store, engine: engine}
}

// ImportFiles processes files strictly sequentially: each file completes,
// including handoff to storage, before the next begins. That bounds peak
// memory to one file's rows and gives a total ordering of import records.
// Cancellation is honored between files only, never mid-file, to keep
// row-rejection accounting consistent.
func (imp *Importer) ImportFiles(ctx context.Context, paths []string, profile domain.BankProfile, formatOverride domain.DateFormat) ([]FileResult, error) {
	results := make([]FileResult, 0, len(paths))

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result, err := imp.importFile(ctx, path, profile, formatOverride)
		if err != nil {
			return results, fmt.Errorf("import failed for %s: %w", path, err)
		}
		results = append(results, *result)
	}

	return results, nil
}

func (imp *Importer) importFile(ctx context.Context, path string, profile domain.BankProfile, formatOverride domain.DateFormat) (*FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	rows, err := csvfile.Read(f, profile)

	// Close immediately instead of deferring to avoid descriptor
	// accumulation across a long batch.
	if closeErr := f.Close(); closeErr != nil {
		return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	if err != nil {
		return nil, err
	}

	result, err := ImportRows(rows, profile, formatOverride, imp.engine)
	if err != nil {
		return nil, err
	}

	fileName := filepath.Base(path)
	batch := Batch{
		ID:         NewBatchID(fileName),
		FileName:   fileName,
		ImportedAt: time.Now(),
		Accepted:   len(result.Accepted),
		Rejected:   result.Rejected,
	}

	if err := imp.store.SaveBatch(ctx, batch, result.Accepted); err != nil {
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}

	return &FileResult{
		Path:     path,
		Batch:    batch,
		Accepted: len(result.Accepted),
		Rejected: result.Rejected,
	}, nil
}

// Reapply runs the current rule set over already-stored transactions and
// returns the ones whose resolution changed. Transactions carrying
// ManualOverride are never re-resolved; the flag marks a user-set category
// and skipping them is a hard invariant, not a default.
func Reapply(txns []domain.Transaction, engine *rules.Engine) []domain.Transaction {
	var updated []domain.Transaction
	for _, txn := range txns {
		if txn.ManualOverride {
			continue
		}
		res := engine.Resolve(txn.Description, "")
		if res.Category == txn.Category && res.Ignore == txn.Ignored {
			continue
		}
		txn.Category = res.Category
		txn.Ignored = res.Ignore
		updated = append(updated, txn)
	}
	return updated
}
