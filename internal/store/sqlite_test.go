package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testBatch(id string, at time.Time) importer.Batch {
	return importer.Batch{
		ID:         id,
		FileName:   id + ".csv",
		ImportedAt: at,
		Accepted:   2,
		Rejected:   1,
	}
}

func TestSaveBatchAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txns := []domain.Transaction{
		{Date: "2024-01-15", Description: "GROCERY MART", Amount: -45.20, Category: "Groceries"},
		{Date: "2024-01-16", Description: "SALARY", Amount: 2000.00, Category: domain.DefaultCategory, Ignored: true},
	}

	err := s.SaveBatch(ctx, testBatch("batch-jan", time.Now()), txns)
	require.NoError(t, err)

	stored, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.NotEmpty(t, stored[0].ID, "store assigns identity")
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.Equal(t, "GROCERY MART", stored[0].Description)
	assert.Equal(t, -45.20, stored[0].Amount)
	assert.Equal(t, "Groceries", stored[0].Category)
	assert.False(t, stored[0].Ignored)
	assert.True(t, stored[1].Ignored)
	assert.False(t, stored[0].ManualOverride)

	batches, err := s.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "batch-jan", batches[0].ID)
	assert.Equal(t, "batch-jan.csv", batches[0].FileName)
	assert.Equal(t, 2, batches[0].Accepted)
	assert.Equal(t, 1, batches[0].Rejected)
}

func TestListTransactions_Order(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBatch(ctx, testBatch("batch-b", base.Add(time.Hour)), []domain.Transaction{
		{Date: "2024-02-01", Description: "THIRD", Amount: 3, Category: "X"},
	}))
	require.NoError(t, s.SaveBatch(ctx, testBatch("batch-a", base), []domain.Transaction{
		{Date: "2024-01-15", Description: "FIRST", Amount: 1, Category: "X"},
		{Date: "2024-01-16", Description: "SECOND", Amount: 2, Category: "X"},
	}))

	stored, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	// Batch import time first, then row order within each batch.
	assert.Equal(t, "FIRST", stored[0].Description)
	assert.Equal(t, "SECOND", stored[1].Description)
	assert.Equal(t, "THIRD", stored[2].Description)
}

func TestSaveBatch_PreservesCallerID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBatch(ctx, testBatch("batch-x", time.Now()), []domain.Transaction{
		{ID: "fixed-id", Date: "2024-01-15", Description: "SHOP", Amount: 1, Category: "X"},
	}))

	stored, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "fixed-id", stored[0].ID)
}

func TestSaveBatch_DuplicateBatchIDFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBatch(ctx, testBatch("batch-dup", time.Now()), nil))
	err := s.SaveBatch(ctx, testBatch("batch-dup", time.Now()), nil)
	assert.Error(t, err)
}

func TestUpdateResolution_RespectsManualOverride(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBatch(ctx, testBatch("batch-1", time.Now()), []domain.Transaction{
		{ID: "t1", Date: "2024-01-15", Description: "GROCERY MART", Amount: -45.20, Category: domain.DefaultCategory},
		{ID: "t2", Date: "2024-01-16", Description: "GROCERY MART", Amount: -12.00, Category: domain.DefaultCategory},
	}))

	require.NoError(t, s.SetManualCategory(ctx, "t2", "Dining"))

	// The caller passes both; the store only touches the unprotected row.
	updated, err := s.UpdateResolution(ctx, []domain.Transaction{
		{ID: "t1", Category: "Groceries", Ignored: false},
		{ID: "t2", Category: "Groceries", Ignored: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stored, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	byID := map[string]domain.Transaction{}
	for _, txn := range stored {
		byID[txn.ID] = txn
	}
	assert.Equal(t, "Groceries", byID["t1"].Category)
	assert.Equal(t, "Dining", byID["t2"].Category)
	assert.True(t, byID["t2"].ManualOverride)
}

func TestSetManualCategory_NotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.SetManualCategory(context.Background(), "missing", "X")
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveBatch(context.Background(), testBatch("batch-1", time.Now()), []domain.Transaction{
		{Date: "2024-01-15", Description: "SHOP", Amount: 1, Category: "X"},
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	stored, err := s.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
