package etl

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldoapp/saldo/internal/common"
	"github.com/saldoapp/saldo/internal/ledger"
	"github.com/saldoapp/saldo/internal/model"
)

func testLedger(t *testing.T) *ledger.Store {
	t.Helper()
	return ledger.NewStore(filepath.Join(t.TempDir(), "transactions.csv"), testLogger())
}

func row(accountID, day int, description string) model.Transaction {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	txn := model.Transaction{
		Date:        time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      decimal.NewFromInt(-10),
		Type:        "debit",
		AccountID:   accountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	txn.ID = txn.GenerateID()
	return txn
}

func seed(t *testing.T, store *ledger.Store, rows []model.Transaction) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(),
		func(_ []model.Transaction) ([]model.Transaction, error) {
			return rows, nil
		}))
}

func TestMerge_WindowReplacement(t *testing.T) {
	store := testLedger(t)
	meta := newFakeMeta()
	merger := NewMerger(store, meta, testLogger())
	ctx := context.Background()

	// Existing ledger: account 16 covering days 1-10.
	var existing []model.Transaction
	for day := 1; day <= 10; day++ {
		existing = append(existing, row(16, day, "OLD"))
	}
	seed(t, store, existing)

	// Reimport covering days 5-7.
	newRows := []model.Transaction{
		row(16, 5, "NEW"),
		row(16, 6, "NEW"),
		row(16, 7, "NEW"),
	}
	require.NoError(t, merger.Merge(ctx, newRows, "7729"))

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	for _, r := range rows {
		day := r.Date.Day()
		if day >= 5 && day <= 7 {
			assert.Equal(t, "NEW", r.Description, "day %d", day)
		} else {
			assert.Equal(t, "OLD", r.Description, "day %d", day)
		}
	}
}

func TestMerge_OtherAccountsUntouched(t *testing.T) {
	store := testLedger(t)
	meta := newFakeMeta()
	merger := NewMerger(store, meta, testLogger())
	ctx := context.Background()

	seed(t, store, []model.Transaction{
		row(16, 5, "MINE OLD"),
		row(99, 5, "THEIRS"),
	})

	require.NoError(t, merger.Merge(ctx, []model.Transaction{row(16, 5, "MINE NEW")}, "7729"))

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byAccount := map[int]string{}
	for _, r := range rows {
		byAccount[r.AccountID] = r.Description
	}
	assert.Equal(t, "MINE NEW", byAccount[16])
	assert.Equal(t, "THEIRS", byAccount[99])
}

func TestMerge_OmittedRowsInWindowAreDropped(t *testing.T) {
	// Window replacement, not upsert: a reimport that omits transactions
	// inside its own window silently drops them.
	store := testLedger(t)
	meta := newFakeMeta()
	merger := NewMerger(store, meta, testLogger())
	ctx := context.Background()

	seed(t, store, []model.Transaction{
		row(16, 5, "A"),
		row(16, 5, "B"),
		row(16, 6, "C"),
	})

	require.NoError(t, merger.Merge(ctx, []model.Transaction{
		row(16, 5, "A"),
		row(16, 6, "C"),
	}, "7729"))

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMerge_DuplicatesWithinBatchCollapse(t *testing.T) {
	// The same logical transaction appearing twice in one import batch, for
	// example in two overlapping raw files, must land as a single ledger row.
	store := testLedger(t)
	meta := newFakeMeta()
	merger := NewMerger(store, meta, testLogger())
	ctx := context.Background()

	dup := row(16, 10, "TRANSFER")
	require.NoError(t, merger.Merge(ctx, []model.Transaction{dup, dup, row(16, 11, "RENT")}, "7729"))

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ids := map[string]int{}
	for _, r := range rows {
		ids[r.ID]++
	}
	for id, count := range ids {
		assert.Equal(t, 1, count, "id %s", id)
	}
}

func TestMerge_SortedByAccountThenDate(t *testing.T) {
	store := testLedger(t)
	meta := newFakeMeta()
	meta.accounts["5440"] = model.Account{ID: 17, Name: "Capital 5440", Number: "5440"}
	merger := NewMerger(store, meta, testLogger())
	ctx := context.Background()

	require.NoError(t, merger.Merge(ctx, []model.Transaction{
		row(17, 3, "X"),
		row(17, 1, "Y"),
	}, "5440"))
	require.NoError(t, merger.Merge(ctx, []model.Transaction{
		row(16, 2, "Z"),
	}, "7729"))

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 16, rows[0].AccountID)
	assert.Equal(t, 17, rows[1].AccountID)
	assert.Equal(t, 1, rows[1].Date.Day())
	assert.Equal(t, 3, rows[2].Date.Day())
}

func TestMerge_UnknownAccountLeavesLedgerUnchanged(t *testing.T) {
	store := testLedger(t)
	meta := newFakeMeta()
	merger := NewMerger(store, meta, testLogger())
	ctx := context.Background()

	seed(t, store, []model.Transaction{row(16, 1, "KEEP")})

	err := merger.Merge(ctx, []model.Transaction{row(16, 1, "NEW")}, "0000")
	require.ErrorIs(t, err, common.ErrUnknownAccount)

	rows, loadErr := store.Load(ctx)
	require.NoError(t, loadErr)
	require.Len(t, rows, 1)
	assert.Equal(t, "KEEP", rows[0].Description)
}

func TestMerge_NoRowsLeavesLedgerUnchanged(t *testing.T) {
	store := testLedger(t)
	meta := newFakeMeta()
	merger := NewMerger(store, meta, testLogger())
	ctx := context.Background()

	seed(t, store, []model.Transaction{row(16, 1, "KEEP")})

	err := merger.Merge(ctx, nil, "7729")
	require.ErrorIs(t, err, common.ErrNoValidDates)

	rows, loadErr := store.Load(ctx)
	require.NoError(t, loadErr)
	assert.Len(t, rows, 1)
}
