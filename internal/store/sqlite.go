// Package store persists resolved transactions and their import batches in
// SQLite. It is the storage collaborator of the import pipeline: it assigns
// persistent identity and groups transactions under a batch record, and the
// pipeline never touches a transaction after handoff except through the
// explicit bulk re-apply path.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id              TEXT PRIMARY KEY,
	file_name       TEXT NOT NULL,
	imported_at     TEXT NOT NULL,
	accepted_count  INTEGER NOT NULL,
	rejected_count  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id              TEXT PRIMARY KEY,
	batch_id        TEXT NOT NULL REFERENCES batches(id),
	seq             INTEGER NOT NULL,
	date            TEXT NOT NULL,
	description     TEXT NOT NULL,
	amount          REAL NOT NULL,
	category        TEXT NOT NULL,
	ignored         INTEGER NOT NULL DEFAULT 0,
	manual_override INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_transactions_batch ON transactions(batch_id, seq);
`

// SQLiteStore implements the importer.Store collaborator on a local SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. WAL mode and a busy timeout keep concurrent CLI
// invocations from tripping over SQLite's file locking.
func Open(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	// Limit open connections to 1 for SQLite to avoid locking issues.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBatch persists one batch record plus its transactions in a single
// database transaction. IDs are assigned here; the pipeline hands off
// records without identity. Insertion order preserves the file's row order
// through the seq column.
func (s *SQLiteStore) SaveBatch(ctx context.Context, batch importer.Batch, txns []domain.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, file_name, imported_at, accepted_count, rejected_count)
		 VALUES (?, ?, ?, ?, ?)`,
		batch.ID, batch.FileName, batch.ImportedAt.UTC().Format("2006-01-02T15:04:05Z"),
		batch.Accepted, batch.Rejected)
	if err != nil {
		return fmt.Errorf("failed to insert batch %s: %w", batch.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (id, batch_id, seq, date, description, amount, category, ignored, manual_override)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, txn := range txns {
		id := txn.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := stmt.ExecContext(ctx, id, batch.ID, i, txn.Date, txn.Description,
			txn.Amount, txn.Category, boolInt(txn.Ignored), boolInt(txn.ManualOverride))
		if err != nil {
			return fmt.Errorf("failed to insert transaction %d of batch %s: %w", i, batch.ID, err)
		}
	}

	return tx.Commit()
}

// ListTransactions returns all stored transactions ordered by batch import
// time, then by row order within each batch.
func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.date, t.description, t.amount, t.category, t.ignored, t.manual_override
		 FROM transactions t
		 JOIN batches b ON b.id = t.batch_id
		 ORDER BY b.imported_at, t.seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		var ignored, manual int
		if err := rows.Scan(&txn.ID, &txn.Date, &txn.Description, &txn.Amount,
			&txn.Category, &ignored, &manual); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Ignored = ignored != 0
		txn.ManualOverride = manual != 0
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// ListBatches returns all batch records in import order.
func (s *SQLiteStore) ListBatches(ctx context.Context) ([]importer.Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, accepted_count, rejected_count FROM batches ORDER BY imported_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []importer.Batch
	for rows.Next() {
		var b importer.Batch
		if err := rows.Scan(&b.ID, &b.FileName, &b.Accepted, &b.Rejected); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// UpdateResolution rewrites category and ignored for the given
// transactions. Used by bulk re-apply; it refuses to touch rows whose
// stored manual_override flag is set, even if the caller passed them.
func (s *SQLiteStore) UpdateResolution(ctx context.Context, txns []domain.Transaction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE transactions SET category = ?, ignored = ?
		 WHERE id = ? AND manual_override = 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for _, txn := range txns {
		res, err := stmt.ExecContext(ctx, txn.Category, boolInt(txn.Ignored), txn.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read update result for %s: %w", txn.ID, err)
		}
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

// SetManualCategory records a user edit: the category is replaced and the
// manual override flag is set so bulk re-apply skips the transaction from
// then on.
func (s *SQLiteStore) SetManualCategory(ctx context.Context, id, category string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ?, manual_override = 1 WHERE id = ?`,
		category, id)
	if err != nil {
		return fmt.Errorf("failed to set manual category for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
