// Package pricing holds the money arithmetic for sales and returns.
//
// Every function recomputes from the full item set. Callers must not patch
// totals incrementally.
package pricing

import (
	"github.com/safar/counter-pos/internal/models"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied to every sale.
var TaxRate = decimal.RequireFromString("0.10")

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

func LineSubtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

func Compute(items []models.SaleItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

func Refund(items []models.ReturnItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Refund)
	}
	return total
}

// Change returns paid minus total. A negative result means the payment is
// short by its absolute value.
func Change(paid, total decimal.Decimal) decimal.Decimal {
	return paid.Sub(total)
}

func InventoryValue(products []models.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Value())
	}
	return total
}

// Format renders an amount for display with two decimal places.
func Format(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}
