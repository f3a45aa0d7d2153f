// Package service defines the interfaces the pipeline components consume.
package service

import (
	"context"

	"github.com/saldoapp/saldo/internal/model"
)

// LedgerStore is the contract for the persisted ledger. Update runs a scoped
// snapshot transaction: the callback receives the current rows and returns
// the full replacement set, which must be persisted atomically.
type LedgerStore interface {
	Load(ctx context.Context) ([]model.Transaction, error)
	Update(ctx context.Context, fn func([]model.Transaction) ([]model.Transaction, error)) error
	Categorize(ctx context.Context, txID string, categoryID *int) error
}

// MetadataLookup is the read-only view of the reference tables the ETL needs.
type MetadataLookup interface {
	AccountByNumber(number string) (model.Account, bool)
	Accounts() []model.Account
	ResolvePreset(account model.Account) *model.Preset
	CategoryByName(name string) (model.Category, bool)
}
