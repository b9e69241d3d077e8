// Package pricing computes line subtotals and order totals using fixed-point
// decimal arithmetic. Stored amounts never pass through binary floating point.
package pricing

import "github.com/shopspring/decimal"

// Line is a priced quantity of one product.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns quantity x unitPrice.
func Subtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total returns the sum of subtotals. It is invariant under reordering of
// lines and under splitting a line into two with the same combined quantity
// at the same unit price.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(Subtotal(line.Quantity, line.UnitPrice))
	}
	return total
}
