package etl

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/saldoapp/saldo/internal/common"
	"github.com/saldoapp/saldo/internal/model"
	"github.com/saldoapp/saldo/internal/service"
)

// Merger reconciles newly normalized rows with the persisted ledger using
// window replacement: a reimport of a date range supersedes everything
// previously known for that account in that range. Removal is over the date
// window, not keyed by transaction id, so a reimport that omits transactions
// inside its own window drops them.
type Merger struct {
	ledger service.LedgerStore
	meta   service.MetadataLookup
	logger *slog.Logger
}

// NewMerger creates a Merger writing through the given ledger store.
func NewMerger(ledger service.LedgerStore, meta service.MetadataLookup, logger *slog.Logger) *Merger {
	return &Merger{ledger: ledger, meta: meta, logger: logger}
}

// Merge replaces the account's rows inside newRows' date window with newRows
// and persists the result atomically. Rows sharing an id within the batch
// collapse to one before merging, so overlapping raw files cannot duplicate a
// transaction. The accountNumber is the external number; it must resolve to a
// known account. On any precondition failure the ledger is left untouched and
// an error is returned for the caller to log and absorb.
func (m *Merger) Merge(ctx context.Context, newRows []model.Transaction, accountNumber string) error {
	account, ok := m.meta.AccountByNumber(accountNumber)
	if !ok {
		return fmt.Errorf("account %s: %w", accountNumber, common.ErrUnknownAccount)
	}

	deduped := dedupeByID(newRows)
	if len(deduped) < len(newRows) {
		m.logger.Debug("collapsed duplicate transactions in import batch",
			"account", accountNumber,
			"collapsed", len(newRows)-len(deduped))
	}
	newRows = deduped

	minDate, maxDate, ok := dateWindow(newRows)
	if !ok {
		return common.ErrNoValidDates
	}

	return m.ledger.Update(ctx, func(existing []model.Transaction) ([]model.Transaction, error) {
		kept := make([]model.Transaction, 0, len(existing)+len(newRows))
		removed := 0
		for _, row := range existing {
			if row.AccountID == account.ID && inWindow(row.Date, minDate, maxDate) {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		kept = append(kept, newRows...)

		sort.SliceStable(kept, func(i, j int) bool {
			if kept[i].AccountID != kept[j].AccountID {
				return kept[i].AccountID < kept[j].AccountID
			}
			return kept[i].Date.Before(kept[j].Date)
		})

		m.logger.Info("merged import into ledger",
			"account", accountNumber,
			"window_start", minDate.Format("2006-01-02"),
			"window_end", maxDate.Format("2006-01-02"),
			"replaced", removed,
			"added", len(newRows),
			"total", len(kept))

		return kept, nil
	})
}

// dedupeByID keeps the first occurrence of each transaction id, preserving
// order.
func dedupeByID(rows []model.Transaction) []model.Transaction {
	seen := make(map[string]struct{}, len(rows))
	out := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup {
			continue
		}
		seen[row.ID] = struct{}{}
		out = append(out, row)
	}
	return out
}

// dateWindow returns the inclusive [min, max] day span of rows.
func dateWindow(rows []model.Transaction) (minDate, maxDate time.Time, ok bool) {
	for i, row := range rows {
		day := model.Day(row.Date)
		if i == 0 || day.Before(minDate) {
			minDate = day
		}
		if i == 0 || day.After(maxDate) {
			maxDate = day
		}
	}
	return minDate, maxDate, len(rows) > 0
}

func inWindow(date, minDate, maxDate time.Time) bool {
	day := model.Day(date)
	return !day.Before(minDate) && !day.After(maxDate)
}
