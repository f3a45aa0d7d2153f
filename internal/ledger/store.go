// Package ledger persists the canonical transaction ledger as a whole-file
// CSV snapshot. All mutation goes through a scoped transaction: load the
// snapshot, compute the replacement, write to a temp file, and atomically
// rename it over the old one, so a partial write is never observable.
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldoapp/saldo/internal/common"
	"github.com/saldoapp/saldo/internal/model"
)

// Columns is the canonical column set, in canonical order. The persisted
// file always has exactly these columns.
var Columns = []string{
	"id",
	"date",
	"description",
	"amount",
	"transaction_type",
	"account_id",
	"category_id",
	"created_at",
	"updated_at",
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// Store is a single-writer, whole-file snapshot store. Writes within one
// process are serialized by an internal lock; callers must ensure only one
// process writes at a time.
type Store struct {
	now    func() time.Time
	logger *slog.Logger
	path   string
	mu     sync.Mutex
}

// NewStore creates a ledger store backed by the file at path. The file may
// not exist yet; an absent ledger reads as empty.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the current ledger snapshot, empty when the file is absent.
func (s *Store) Load(ctx context.Context) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update runs fn inside a scoped transaction: fn receives the current
// snapshot and returns the full replacement snapshot, which is then written
// atomically. Returning an error from fn leaves the ledger untouched.
func (s *Store) Update(ctx context.Context, fn func([]model.Transaction) ([]model.Transaction, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return err
	}

	next, err := fn(rows)
	if err != nil {
		return err
	}

	return s.write(next)
}

// Categorize sets the category of the transaction with the given id and
// touches its updated_at timestamp. A nil categoryID clears the assignment.
// No other field is altered. This is the only write the categorization
// workflow is allowed to make.
func (s *Store) Categorize(ctx context.Context, txID string, categoryID *int) error {
	return s.Update(ctx, func(rows []model.Transaction) ([]model.Transaction, error) {
		for i := range rows {
			if rows[i].ID != txID {
				continue
			}
			rows[i].CategoryID = categoryID
			rows[i].UpdatedAt = s.now()
			return rows, nil
		}
		return nil, fmt.Errorf("transaction %s: %w", txID, common.ErrNotFound)
	})
}

func (s *Store) load() ([]model.Transaction, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	rows := make([]model.Transaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		txn, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", i+2, err)
		}
		rows = append(rows, txn)
	}

	return rows, nil
}

func (s *Store) write(rows []model.Transaction) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".transactions-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(Columns); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for i := range rows {
		if err := w.Write(encodeRow(&rows[i])); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp ledger: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	s.logger.Debug("wrote ledger snapshot", "path", s.path, "rows", len(rows))
	return nil
}

func encodeRow(t *model.Transaction) []string {
	categoryID := ""
	if t.CategoryID != nil {
		categoryID = strconv.Itoa(*t.CategoryID)
	}
	return []string{
		t.ID,
		t.Date.Format(dateLayout),
		t.Description,
		t.Amount.String(),
		t.Type,
		strconv.Itoa(t.AccountID),
		categoryID,
		t.CreatedAt.Format(timestampLayout),
		t.UpdatedAt.Format(timestampLayout),
	}
}

func decodeRow(rec []string) (model.Transaction, error) {
	if len(rec) != len(Columns) {
		return model.Transaction{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(rec))
	}

	date, err := time.Parse(dateLayout, rec[1])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid date %q: %w", rec[1], err)
	}
	amount, err := decimal.NewFromString(rec[3])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount %q: %w", rec[3], err)
	}
	accountID, err := strconv.Atoi(rec[5])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid account_id %q: %w", rec[5], err)
	}

	txn := model.Transaction{
		ID:          rec[0],
		Date:        date,
		Description: rec[2],
		Amount:      amount,
		Type:        rec[4],
		AccountID:   accountID,
	}
	if rec[6] != "" {
		categoryID, catErr := strconv.Atoi(rec[6])
		if catErr != nil {
			return model.Transaction{}, fmt.Errorf("invalid category_id %q: %w", rec[6], catErr)
		}
		txn.CategoryID = &categoryID
	}
	if txn.CreatedAt, err = time.Parse(timestampLayout, rec[7]); err != nil {
		return model.Transaction{}, fmt.Errorf("invalid created_at %q: %w", rec[7], err)
	}
	if txn.UpdatedAt, err = time.Parse(timestampLayout, rec[8]); err != nil {
		return model.Transaction{}, fmt.Errorf("invalid updated_at %q: %w", rec[8], err)
	}

	return txn, nil
}
