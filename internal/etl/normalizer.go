// Package etl implements the import pipeline: normalizing raw bank exports
// into canonical transactions and delta-merging them into the ledger.
package etl

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldoapp/saldo/internal/common"
	"github.com/saldoapp/saldo/internal/model"
	"github.com/saldoapp/saldo/internal/rawtable"
	"github.com/saldoapp/saldo/internal/service"
)

// bestEffortLayouts are tried in order when a preset has no date format and
// for the no-preset fallback.
var bestEffortLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// Normalizer converts raw tables into canonical transactions. It is pure
// apart from the category-name lookup and the clock; it never touches the
// ledger.
type Normalizer struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer logging through the given logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger, now: time.Now}
}

// Normalize converts one raw table into canonical transactions for the given
// account, using the preset when present and literal-column fallbacks when
// not. Rows whose date cannot be parsed are dropped; a missing date column
// fails the whole file with ErrMissingDateColumn.
func (n *Normalizer) Normalize(t *rawtable.Table, account model.Account, preset *model.Preset, categories service.MetadataLookup) ([]model.Transaction, error) {
	dateColumn, dateFormat, err := n.dateColumn(t, account, preset)
	if err != nil {
		return nil, err
	}

	now := n.now()
	dropped := 0
	out := make([]model.Transaction, 0, t.Len())

	for i := 0; i < t.Len(); i++ {
		date, parsed := parseDate(t.Cell(i, dateColumn), dateFormat)
		if !parsed {
			dropped++
			continue
		}

		txn := model.Transaction{
			Date:        model.Day(date),
			Description: description(t, i, preset),
			Amount:      amount(t, i, preset),
			AccountID:   account.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		txn.Type = transactionType(t, i, preset, txn)
		txn.CategoryID = categoryID(t, i, preset, categories)
		txn.ID = txn.GenerateID()

		out = append(out, txn)
	}

	if dropped > 0 {
		n.logger.Warn("dropped rows with unparseable dates",
			"account", account.Number,
			"dropped", dropped,
			"kept", len(out))
	}

	return out, nil
}

// dateColumn picks the date column and format. With a preset the preset's
// column is mandatory; without one a literal "date" column must exist.
func (n *Normalizer) dateColumn(t *rawtable.Table, account model.Account, preset *model.Preset) (column, format string, err error) {
	if preset != nil && preset.DateColumn != "" {
		if !t.HasColumn(preset.DateColumn) {
			return "", "", fmt.Errorf("account %s: preset %s column %q: %w",
				account.Number, preset.Name, preset.DateColumn, common.ErrMissingDateColumn)
		}
		return preset.DateColumn, preset.DateFormat, nil
	}
	if t.HasColumn("date") {
		return "date", "", nil
	}
	return "", "", fmt.Errorf("account %s has no preset and no date column: %w",
		account.Number, common.ErrMissingDateColumn)
}

func parseDate(raw, format string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if format != "" {
		d, err := time.Parse(format, raw)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	for _, layout := range bestEffortLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func description(t *rawtable.Table, row int, preset *model.Preset) string {
	if preset != nil && preset.DescriptionColumn != "" {
		return t.Cell(row, preset.DescriptionColumn)
	}
	return t.Cell(row, "description")
}

func amount(t *rawtable.Table, row int, preset *model.Preset) decimal.Decimal {
	if preset != nil {
		return resolveAmount(preset.Amount, t, row)
	}
	return cellDecimal(t, row, "amount")
}

func transactionType(t *rawtable.Table, row int, preset *model.Preset, txn model.Transaction) string {
	if preset != nil && preset.TypeColumn != "" {
		if v := t.Cell(row, preset.TypeColumn); v != "" {
			return v
		}
	} else if v := t.Cell(row, "transaction_type"); v != "" {
		return v
	}
	switch txn.Amount.Sign() {
	case -1:
		return "debit"
	case 1:
		return "credit"
	default:
		return "zero"
	}
}

func categoryID(t *rawtable.Table, row int, preset *model.Preset, categories service.MetadataLookup) *int {
	if preset == nil || preset.CategoryColumn == "" {
		return nil
	}
	name := t.Cell(row, preset.CategoryColumn)
	if name == "" {
		return nil
	}
	cat, ok := categories.CategoryByName(name)
	if !ok {
		return nil
	}
	id := cat.ID
	return &id
}
