// Package config resolves the on-disk layout of the data directory from
// configured paths.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Paths describes the on-disk layout of a data directory:
//
//	data/
//	  raw/<account-number>/*.csv   transient bank exports
//	  metadata/*.csv               accounts, categories, groups, presets
//	  processed/transactions.csv   the canonical ledger
type Paths struct {
	DataDir string
}

// NewPaths builds a Paths rooted at dataDir, expanding ~ and env vars.
func NewPaths(dataDir string) Paths {
	return Paths{DataDir: ExpandPath(dataDir)}
}

// RawDir returns the directory holding raw export subdirectories.
func (p Paths) RawDir() string {
	return filepath.Join(p.DataDir, "raw")
}

// AccountRawDir returns the raw export directory for one external account number.
func (p Paths) AccountRawDir(accountNumber string) string {
	return filepath.Join(p.RawDir(), accountNumber)
}

// MetadataDir returns the directory holding the reference tables.
func (p Paths) MetadataDir() string {
	return filepath.Join(p.DataDir, "metadata")
}

// LedgerFile returns the path of the canonical transaction ledger.
func (p Paths) LedgerFile() string {
	return filepath.Join(p.DataDir, "processed", "transactions.csv")
}

// ExpandPath resolves ~ and $VAR references in a configured path.
func ExpandPath(path string) string {
	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}
