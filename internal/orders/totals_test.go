package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		subtotal, shipping, tax, final string
	}{
		{"480", "50", "24", "554"},
		{"500", "50", "25", "575"},
		{"500.01", "0", "25", "525.01"},
		{"600", "0", "30", "630"},
		{"19.99", "50", "1", "70.99"},
		// 5% of these has more than two decimals.
		{"10.01", "50", "0.50", "60.51"},
		{"10.10", "50", "0.51", "60.61"},
	}
	for _, tc := range cases {
		got := ComputeTotals(decimal.RequireFromString(tc.subtotal))
		if !got.Shipping.Equal(decimal.RequireFromString(tc.shipping)) {
			t.Fatalf("subtotal %s: shipping %s, want %s", tc.subtotal, got.Shipping, tc.shipping)
		}
		if !got.Tax.Equal(decimal.RequireFromString(tc.tax)) {
			t.Fatalf("subtotal %s: tax %s, want %s", tc.subtotal, got.Tax, tc.tax)
		}
		if !got.Final.Equal(decimal.RequireFromString(tc.final)) {
			t.Fatalf("subtotal %s: final %s, want %s", tc.subtotal, got.Final, tc.final)
		}
	}
}

func TestNewOrderNumber(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	number := NewOrderNumber(now)
	if !regexp.MustCompile(`^ORD20261017[0-9A-F]{8}$`).MatchString(number) {
		t.Fatalf("unexpected order number %q", number)
	}
	if NewOrderNumber(now) == number {
		t.Fatalf("expected distinct suffixes")
	}
}
