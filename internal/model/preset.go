package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Preset describes how to parse and interpret one bank's export format. It is
// read-only configuration, looked up through an account's default preset id.
type Preset struct {
	Amount            AmountRule
	Name              string
	DateColumn        string
	DateFormat        string // Go reference layout; empty = best-effort parsing
	DescriptionColumn string
	TypeColumn        string
	CategoryColumn    string
	ID                int
	Delimiter         rune
	SkipRows          int
	HasHeader         bool
}

// AmountRule is the tagged variant selecting how a preset turns raw cells
// into one signed amount. It is parsed once at preset-load time, not per row.
type AmountRule interface {
	amountRule()
}

// DualColumnAmount reads separate debit and credit columns:
// amount = debit*DebitMultiplier + credit*CreditMultiplier.
type DualColumnAmount struct {
	DebitColumn      string
	CreditColumn     string
	DebitMultiplier  decimal.Decimal
	CreditMultiplier decimal.Decimal
}

// TypedColumnAmount reads a single amount column and negates it when the
// row's type cell matches one of DebitValues, then applies Multiplier.
type TypedColumnAmount struct {
	AmountColumn string
	TypeColumn   string
	DebitValues  []string
	Multiplier   decimal.Decimal
}

// SingleColumnAmount reads one already-signed amount column, optionally
// scaled by Multiplier.
type SingleColumnAmount struct {
	AmountColumn string
	Multiplier   decimal.Decimal
}

func (DualColumnAmount) amountRule()   {}
func (TypedColumnAmount) amountRule()  {}
func (SingleColumnAmount) amountRule() {}

// amountRuleJSON mirrors the amount_processing blob stored in presets.csv.
type amountRuleJSON struct {
	AmountMultiplier *float64 `json:"amount_multiplier"`
	DebitMultiplier  *float64 `json:"debit_multiplier"`
	CreditMultiplier *float64 `json:"credit_multiplier"`
	AmountColumn     string   `json:"amount_column"`
	TypeColumn       string   `json:"transaction_type_column"`
	DebitColumn      string   `json:"debit_column"`
	CreditColumn     string   `json:"credit_column"`
	DebitValues      []string `json:"debit_values"`
}

// ParseAmountRule decodes a preset's amount_processing blob into its tagged
// variant. Variant selection precedence: dual debit/credit columns, then
// single column with a type discriminator, then a plain single column. An
// empty blob yields a nil rule, which makes the normalizer fall back to a
// literal "amount" column.
func ParseAmountRule(blob string) (AmountRule, error) {
	if blob == "" {
		return nil, nil
	}

	var raw amountRuleJSON
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse amount_processing: %w", err)
	}

	switch {
	case raw.DebitColumn != "" && raw.CreditColumn != "":
		return DualColumnAmount{
			DebitColumn:      raw.DebitColumn,
			CreditColumn:     raw.CreditColumn,
			DebitMultiplier:  multiplierOr(raw.DebitMultiplier, decimal.NewFromInt(1)),
			CreditMultiplier: multiplierOr(raw.CreditMultiplier, decimal.NewFromInt(-1)),
		}, nil
	case raw.AmountColumn != "" && raw.TypeColumn != "":
		return TypedColumnAmount{
			AmountColumn: raw.AmountColumn,
			TypeColumn:   raw.TypeColumn,
			DebitValues:  raw.DebitValues,
			Multiplier:   multiplierOr(raw.AmountMultiplier, decimal.NewFromInt(1)),
		}, nil
	case raw.AmountColumn != "":
		return SingleColumnAmount{
			AmountColumn: raw.AmountColumn,
			Multiplier:   multiplierOr(raw.AmountMultiplier, decimal.NewFromInt(1)),
		}, nil
	default:
		return nil, fmt.Errorf("amount_processing declares no amount columns: %s", blob)
	}
}

func multiplierOr(f *float64, def decimal.Decimal) decimal.Decimal {
	if f == nil {
		return def
	}
	return decimal.NewFromFloat(*f)
}
