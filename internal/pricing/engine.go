package pricing

import "github.com/shopspring/decimal"

// Scale is the number of decimal places every monetary result is rounded to.
const Scale = 2

// Round rounds an amount to Scale places, half away from zero.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Scale)
}

// Zero returns a zero amount at Scale.
func Zero() decimal.Decimal {
	return Round(decimal.Zero)
}

// Line describes a priced cart entry.
type Line struct {
	Code   string
	Qty    int
	Amount decimal.Decimal
}

// Sum adds line amounts exactly and rounds the result once.
// Line amounts are expected to be rounded by their rule already.
func Sum(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		total = total.Add(line.Amount)
	}
	return Round(total)
}
