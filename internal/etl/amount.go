package etl

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/saldoapp/saldo/internal/model"
	"github.com/saldoapp/saldo/internal/rawtable"
)

// resolveAmount applies a preset's amount rule to one raw row, producing the
// canonical signed amount: positive = inflow, negative = outflow. A nil rule
// falls back to a literal "amount" column.
func resolveAmount(rule model.AmountRule, t *rawtable.Table, row int) decimal.Decimal {
	switch r := rule.(type) {
	case model.DualColumnAmount:
		debit := cellDecimal(t, row, r.DebitColumn)
		credit := cellDecimal(t, row, r.CreditColumn)
		return debit.Mul(r.DebitMultiplier).Add(credit.Mul(r.CreditMultiplier))

	case model.TypedColumnAmount:
		amount := cellDecimal(t, row, r.AmountColumn)
		if isDebitValue(t.Cell(row, r.TypeColumn), r.DebitValues) {
			amount = amount.Neg()
		}
		return amount.Mul(r.Multiplier)

	case model.SingleColumnAmount:
		return cellDecimal(t, row, r.AmountColumn).Mul(r.Multiplier)

	default:
		return cellDecimal(t, row, "amount")
	}
}

func isDebitValue(value string, debitValues []string) bool {
	for _, v := range debitValues {
		if value == v {
			return true
		}
	}
	return false
}

// cellDecimal coerces a raw cell to a decimal. Non-numeric or empty cells
// read as zero, matching the row-level error policy: bad amounts never fail
// a file.
func cellDecimal(t *rawtable.Table, row int, column string) decimal.Decimal {
	raw := strings.ReplaceAll(t.Cell(row, column), ",", "")
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
