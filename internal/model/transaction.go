package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one row of the canonical ledger. Every import, no matter
// which bank export it came from, is normalized into this shape.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	Description string
	Type        string // "debit", "credit", "zero", or a source-provided label
	Amount      decimal.Decimal
	AccountID   int
	CategoryID  *int // nil = uncategorized
}

// GenerateID derives the deterministic transaction identifier: the first 12
// hex characters of a sha256 digest over account, day, amount, and
// description. Re-normalizing the same logical transaction from a re-exported
// file yields the identical id, which is what lets reimports replace rows
// instead of duplicating them. Distinct transactions sharing all four fields
// collapse to one row on purpose.
func (t *Transaction) GenerateID() string {
	data := fmt.Sprintf("%d_%s_%s_%s",
		t.AccountID,
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)[:12]
}

// Day truncates a timestamp to day granularity, the precision merge
// comparisons operate at.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
