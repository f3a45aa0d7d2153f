package etl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/saldoapp/saldo/internal/common"
	"github.com/saldoapp/saldo/internal/config"
	"github.com/saldoapp/saldo/internal/model"
	"github.com/saldoapp/saldo/internal/rawtable"
	"github.com/saldoapp/saldo/internal/service"
)

// Pipeline runs the full import for account directories: resolve preset,
// normalize every raw file, and delta-merge the result into the ledger.
// Accounts are processed sequentially and independently; one account's
// failure never aborts its siblings.
type Pipeline struct {
	meta       service.MetadataLookup
	normalizer *Normalizer
	merger     *Merger
	logger     *slog.Logger
	paths      config.Paths
}

// NewPipeline wires a pipeline over the given stores.
func NewPipeline(meta service.MetadataLookup, ledger service.LedgerStore, paths config.Paths, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		meta:       meta,
		normalizer: NewNormalizer(logger),
		merger:     NewMerger(ledger, meta, logger),
		logger:     logger,
		paths:      paths,
	}
}

// AccountResult summarizes one account's import for CLI reporting.
type AccountResult struct {
	Err        error
	Number     string
	Name       string
	FilesRead  int
	RowsMerged int
}

// DiscoverAccounts lists the external account numbers that have a raw
// export directory.
func (p *Pipeline) DiscoverAccounts() ([]string, error) {
	entries, err := os.ReadDir(p.paths.RawDir())
	if err != nil {
		return nil, fmt.Errorf("failed to read raw directory: %w", err)
	}
	var numbers []string
	for _, entry := range entries {
		if entry.IsDir() {
			numbers = append(numbers, entry.Name())
		}
	}
	sort.Strings(numbers)
	return numbers, nil
}

// Run imports the given external account numbers, or every discovered raw
// directory when none are given. All failures are absorbed into the
// per-account results; Run itself only errors when account discovery fails.
func (p *Pipeline) Run(ctx context.Context, accountNumbers []string) ([]AccountResult, error) {
	if len(accountNumbers) == 0 {
		discovered, err := p.DiscoverAccounts()
		if err != nil {
			return nil, err
		}
		accountNumbers = discovered
	}

	results := make([]AccountResult, 0, len(accountNumbers))
	for _, number := range accountNumbers {
		results = append(results, p.runAccount(ctx, number))
	}
	return results, nil
}

func (p *Pipeline) runAccount(ctx context.Context, number string) AccountResult {
	result := AccountResult{Number: number}

	account, ok := p.meta.AccountByNumber(number)
	if !ok {
		result.Err = fmt.Errorf("account %s: %w", number, common.ErrUnknownAccount)
		p.logger.Error("skipping unknown account", "account", number)
		return result
	}
	result.Name = account.Name

	preset := p.meta.ResolvePreset(account)
	if preset != nil {
		p.logger.Info("processing account",
			"account", number, "name", account.Name, "preset", preset.Name)
	} else {
		p.logger.Info("processing account without preset, using schema inference",
			"account", number, "name", account.Name)
	}

	files, err := p.rawFiles(number)
	if err != nil {
		result.Err = err
		p.logger.Error("no raw files for account", "account", number, "error", err)
		return result
	}

	var rows []model.Transaction
	for _, file := range files {
		table, loadErr := rawtable.Load(file, tableOptions(preset))
		if loadErr != nil {
			p.logger.Error("failed to read raw file",
				"account", number, "file", filepath.Base(file), "error", loadErr)
			continue
		}
		if table.Len() == 0 {
			p.logger.Info("skipping empty raw file",
				"account", number, "file", filepath.Base(file))
			continue
		}

		fileRows, normErr := p.normalizer.Normalize(table, account, preset, p.meta)
		if normErr != nil {
			p.logger.Error("failed to normalize raw file",
				"account", number, "file", filepath.Base(file), "error", normErr)
			continue
		}
		p.logger.Debug("normalized raw file",
			"account", number,
			"file", filepath.Base(file),
			"rows", len(fileRows))

		result.FilesRead++
		rows = append(rows, fileRows...)
	}

	if len(rows) == 0 {
		result.Err = common.ErrNoValidDates
		p.logger.Warn("no usable data for account", "account", number)
		return result
	}

	// Overlapping raw files may carry the same transaction; collapse before
	// merging so the summary counts rows actually landed.
	rows = dedupeByID(rows)

	if err := p.merger.Merge(ctx, rows, number); err != nil {
		result.Err = err
		p.logger.Error("merge failed, ledger untouched",
			"account", number, "error", err)
		return result
	}

	result.RowsMerged = len(rows)
	return result
}

func (p *Pipeline) rawFiles(number string) ([]string, error) {
	dir := p.paths.AccountRawDir(number)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", number, common.ErrNoRawFiles)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("account %s: %w", number, common.ErrNoRawFiles)
	}
	sort.Strings(files)
	return files, nil
}

func tableOptions(preset *model.Preset) rawtable.Options {
	if preset == nil {
		return rawtable.DefaultOptions()
	}
	return rawtable.Options{
		Delimiter: preset.Delimiter,
		HasHeader: preset.HasHeader,
		SkipRows:  preset.SkipRows,
	}
}
