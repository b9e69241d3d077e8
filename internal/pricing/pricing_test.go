package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		unitPrice string
		want      string
	}{
		{"whole amount", 3, "10.00", "30.00"},
		{"cents", 7, "1.99", "13.93"},
		{"single unit", 1, "0.01", "0.01"},
		{"free item", 5, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtotal(tt.quantity, mustDecimal(t, tt.unitPrice))
			if !got.Equal(mustDecimal(t, tt.want)) {
				t.Errorf("Subtotal(%d, %s) = %s, want %s", tt.quantity, tt.unitPrice, got, tt.want)
			}
		})
	}
}

func TestTotal(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: mustDecimal(t, "10.00")},
		{Quantity: 3, UnitPrice: mustDecimal(t, "5.50")},
		{Quantity: 1, UnitPrice: mustDecimal(t, "0.99")},
	}

	want := mustDecimal(t, "37.49")
	if got := Total(lines); !got.Equal(want) {
		t.Errorf("Total = %s, want %s", got, want)
	}
}

func TestTotalEmpty(t *testing.T) {
	if got := Total(nil); !got.Equal(decimal.Zero) {
		t.Errorf("Total(nil) = %s, want 0", got)
	}
}

func TestTotalOrderIndependent(t *testing.T) {
	forward := []Line{
		{Quantity: 4, UnitPrice: mustDecimal(t, "2.25")},
		{Quantity: 9, UnitPrice: mustDecimal(t, "19.99")},
		{Quantity: 1, UnitPrice: mustDecimal(t, "100.00")},
	}
	reversed := []Line{forward[2], forward[1], forward[0]}

	if a, b := Total(forward), Total(reversed); !a.Equal(b) {
		t.Errorf("totals differ under reordering: %s vs %s", a, b)
	}
}

func TestTotalSplitMergeInvariant(t *testing.T) {
	price := mustDecimal(t, "3.33")

	merged := Total([]Line{{Quantity: 10, UnitPrice: price}})
	split := Total([]Line{
		{Quantity: 4, UnitPrice: price},
		{Quantity: 6, UnitPrice: price},
	})

	if !merged.Equal(split) {
		t.Errorf("split/merge changed total: %s vs %s", merged, split)
	}
}

func TestTotalMatchesItemSubtotals(t *testing.T) {
	lines := []Line{
		{Quantity: 3, UnitPrice: mustDecimal(t, "10.00")},
		{Quantity: 2, UnitPrice: mustDecimal(t, "4.75")},
	}

	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(Subtotal(line.Quantity, line.UnitPrice))
	}

	if got := Total(lines); !got.Equal(sum) {
		t.Errorf("Total = %s, sum of subtotals = %s", got, sum)
	}
}
