package model

// Account is immutable reference data describing one bank account. The
// internal ID is what ledger rows reference; the external Number is what raw
// file directories and the CLI use.
type Account struct {
	Name                  string
	Number                string
	Type                  string
	ID                    int
	DefaultImportPresetID *int
	IsActive              bool
}
