package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldoapp/saldo/internal/common"
	"github.com/saldoapp/saldo/internal/config"
	"github.com/saldoapp/saldo/internal/ledger"
	"github.com/saldoapp/saldo/internal/metadata"
)

// writeDataDir lays out a full data directory: metadata tables plus raw
// export files keyed by "<account-number>/<file-name>".
func writeDataDir(t *testing.T, meta map[string]string, raw map[string]string) config.Paths {
	t.Helper()
	paths := config.NewPaths(t.TempDir())

	require.NoError(t, os.MkdirAll(paths.MetadataDir(), 0o750))
	for name, content := range meta {
		require.NoError(t, os.WriteFile(filepath.Join(paths.MetadataDir(), name), []byte(content), 0o600))
	}
	for rel, content := range raw {
		path := filepath.Join(paths.RawDir(), rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return paths
}

func defaultMetadata() map[string]string {
	return map[string]string{
		"accounts.csv": "id,name,number,account_type,default_import_preset_id,is_active\n" +
			"16,Capital 7729,7729,CHECKING,2,true\n" +
			"17,Capital 5440,5440,CHECKING,,true\n",
		"categories.csv": "id,name,group_id,is_active\n100,Groceries,41,true\n",
		"category_groups.csv": "id,name,is_active\n41,Housing,true\n",
		"presets.csv": "id,name,date_column,date_format,description_column,transaction_type_column,category_column,amount_processing,delimiter,has_header,skip_rows\n" +
			`2,Capital CSV,Posted,01/02/2006,Details,,,"{""debit_column"": ""Debit"", ""credit_column"": ""Credit"", ""debit_multiplier"": -1, ""credit_multiplier"": 1}",,true,0` + "\n",
	}
}

func newTestPipeline(t *testing.T, paths config.Paths) (*Pipeline, *ledger.Store) {
	t.Helper()
	logger := testLogger()
	meta, err := metadata.Load(paths.MetadataDir(), logger)
	require.NoError(t, err)
	store := ledger.NewStore(paths.LedgerFile(), logger)
	return NewPipeline(meta, store, paths, logger), store
}

func TestPipeline_Run(t *testing.T) {
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"7729/january.csv": "Posted,Details,Debit,Credit\n" +
			"01/15/2024,WALMART,52.30,0\n" +
			"01/16/2024,PAYCHECK,0,2000\n",
		"5440/export.csv": "date,description,amount\n" +
			"2024-01-10,TRANSFER,-100\n",
	})
	pipeline, store := newTestPipeline(t, paths)

	results, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err, "account %s", r.Number)
	}

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Sorted by (account_id, date).
	assert.Equal(t, 16, rows[0].AccountID)
	assert.Equal(t, "WALMART", rows[0].Description)
	assert.True(t, rows[0].Amount.IsNegative())
	assert.Equal(t, 16, rows[1].AccountID)
	assert.Equal(t, 17, rows[2].AccountID)
}

func TestPipeline_RunIsIdempotent(t *testing.T) {
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"7729/january.csv": "Posted,Details,Debit,Credit\n" +
			"01/15/2024,WALMART,52.30,0\n" +
			"01/16/2024,PAYCHECK,0,2000\n",
	})
	pipeline, store := newTestPipeline(t, paths)
	ctx := context.Background()

	_, err := pipeline.Run(ctx, nil)
	require.NoError(t, err)
	first, err := store.Load(ctx)
	require.NoError(t, err)

	_, err = pipeline.Run(ctx, nil)
	require.NoError(t, err)
	second, err := store.Load(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Date, second[i].Date)
		assert.Equal(t, first[i].Description, second[i].Description)
		assert.True(t, first[i].Amount.Equal(second[i].Amount))
	}
}

func TestPipeline_OverlappingRawFilesYieldOneRow(t *testing.T) {
	// Two exports for the same account covering the same transaction must not
	// duplicate it in the ledger.
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"5440/jan_a.csv": "date,description,amount\n2024-01-10,TRANSFER,-100\n",
		"5440/jan_b.csv": "date,description,amount\n2024-01-10,TRANSFER,-100\n",
	})
	pipeline, store := newTestPipeline(t, paths)

	results, err := pipeline.Run(context.Background(), []string{"5440"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 2, results[0].FilesRead)
	assert.Equal(t, 1, results[0].RowsMerged)

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TRANSFER", rows[0].Description)
}

func TestPipeline_UnknownAccountDirSkipped(t *testing.T) {
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"9999/export.csv": "date,amount\n2024-01-01,-1\n",
		"5440/export.csv": "date,description,amount\n2024-01-10,OK,-100\n",
	})
	pipeline, store := newTestPipeline(t, paths)

	results, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byNumber := map[string]AccountResult{}
	for _, r := range results {
		byNumber[r.Number] = r
	}
	require.ErrorIs(t, byNumber["9999"].Err, common.ErrUnknownAccount)
	require.NoError(t, byNumber["5440"].Err)

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPipeline_BadFileDoesNotAbortAccount(t *testing.T) {
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"5440/bad.csv":  "date,amount\n\"unterminated,-1\n",
		"5440/good.csv": "date,description,amount\n2024-01-10,OK,-100\n",
	})
	pipeline, store := newTestPipeline(t, paths)

	results, err := pipeline.Run(context.Background(), []string{"5440"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].FilesRead)

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "OK", rows[0].Description)
}

func TestPipeline_NoRawFiles(t *testing.T) {
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"5440/notes.txt": "not a csv\n",
	})
	pipeline, _ := newTestPipeline(t, paths)

	results, err := pipeline.Run(context.Background(), []string{"5440"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.ErrorIs(t, results[0].Err, common.ErrNoRawFiles)
}

func TestPipeline_DiscoverAccounts(t *testing.T) {
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"7729/a.csv": "date,amount\n",
		"5440/b.csv": "date,amount\n",
	})
	pipeline, _ := newTestPipeline(t, paths)

	numbers, err := pipeline.DiscoverAccounts()
	require.NoError(t, err)
	assert.Equal(t, []string{"5440", "7729"}, numbers)
}

func TestPipeline_NarrowReimportKeepsRowsOutsideWindow(t *testing.T) {
	paths := writeDataDir(t, defaultMetadata(), map[string]string{
		"5440/full.csv": "date,description,amount\n" +
			"2024-01-01,DAY1,-1\n" +
			"2024-01-05,DAY5,-5\n" +
			"2024-01-10,DAY10,-10\n",
	})
	pipeline, store := newTestPipeline(t, paths)
	ctx := context.Background()

	_, err := pipeline.Run(ctx, []string{"5440"})
	require.NoError(t, err)

	// Replace the raw file with a narrower window; rows outside it survive.
	require.NoError(t, os.Remove(filepath.Join(paths.AccountRawDir("5440"), "full.csv")))
	require.NoError(t, os.WriteFile(
		filepath.Join(paths.AccountRawDir("5440"), "partial.csv"),
		[]byte("date,description,amount\n2024-01-05,DAY5 NEW,-5\n"), 0o600))

	_, err = pipeline.Run(ctx, []string{"5440"})
	require.NoError(t, err)

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	descriptions := make([]string, 0, len(rows))
	for _, r := range rows {
		descriptions = append(descriptions, r.Description)
	}
	assert.Equal(t, []string{"DAY1", "DAY5 NEW", "DAY10"}, descriptions)
}
