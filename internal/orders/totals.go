package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	freeShippingAbove = decimal.NewFromInt(500)
	flatShipping      = decimal.NewFromInt(50)
	taxRate           = decimal.RequireFromString("0.05")
)

// Totals are the monetary fields of an order header.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Final    decimal.Decimal
}

// ComputeTotals applies free shipping strictly above 500 and 5% tax on the
// subtotal. Tax is rounded half away from zero to cents, the precision of the
// numeric(12,2) amount columns.
func ComputeTotals(subtotal decimal.Decimal) Totals {
	subtotal = subtotal.Round(2)
	shipping := flatShipping
	if subtotal.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Final:    subtotal.Add(shipping).Add(tax),
	}
}

// NewOrderNumber returns ORD + UTC date + 8 upper-case hex characters.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD%s%s", now.UTC().Format("20060102"), suffix)
}
