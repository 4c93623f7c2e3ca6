package shell

import (
	"strings"

	"github.com/safar/counter-pos/internal/models"
	"github.com/safar/counter-pos/internal/pos"
	"github.com/safar/counter-pos/internal/pricing"
	"github.com/shopspring/decimal"
)

const (
	receiptWidth = 50
	timeLayout   = "2006-01-02 15:04:05"
)

var (
	heavyRule = strings.Repeat("=", receiptWidth)
	lightRule = strings.Repeat("-", receiptWidth)
)

func banner(c pos.Console, title string) {
	pad := (receiptWidth - len(title)) / 2
	c.Printf("\n%s\n%s%s\n%s\n", heavyRule, strings.Repeat(" ", max(pad, 0)), title, heavyRule)
}

func printSaleReceipt(c pos.Console, currency string, sale *models.Sale) {
	money := func(a decimal.Decimal) string { return pricing.Format(currency, a) }

	banner(c, "SALES RECEIPT")
	c.Printf("Sale ID: %s\n", sale.ID)
	c.Printf("Time: %s\n", sale.CreatedAt.Local().Format(timeLayout))
	c.Printf("%s\n", lightRule)
	for _, item := range sale.Items {
		c.Printf("%-20s x%3d %9s %10s\n", item.ProductName, item.Quantity, money(item.Price), money(item.Subtotal))
	}
	c.Printf("%s\n", lightRule)
	c.Printf("Subtotal:  %12s\n", money(sale.Subtotal))
	c.Printf("Tax (10%%): %12s\n", money(sale.Tax))
	c.Printf("Total:     %12s\n", money(sale.Total))
	c.Printf("Payment Method: %s\n", sale.PaymentMethod)
	c.Printf("Amount Paid: %s\n", money(sale.AmountPaid))
	c.Printf("Change: %s\n", money(sale.Change))
	c.Printf("%s\n", heavyRule)
	c.Printf("      Thank you for shopping with us!\n")
	c.Printf("%s\n", heavyRule)
}

func printReturnReceipt(c pos.Console, currency string, ret *models.Return) {
	money := func(a decimal.Decimal) string { return pricing.Format(currency, a) }

	banner(c, "RETURN RECEIPT")
	c.Printf("Return ID: %s\n", ret.ID)
	c.Printf("Original Sale ID: %s\n", ret.OriginalSaleID)
	c.Printf("Time: %s\n", ret.CreatedAt.Local().Format(timeLayout))
	c.Printf("%s\n", lightRule)
	for _, item := range ret.Items {
		c.Printf("%-20s x%3d %10s\n", item.ProductName, item.Quantity, money(item.Refund))
		c.Printf("  Reason: %s\n", item.Reason)
	}
	c.Printf("%s\n", lightRule)
	c.Printf("Total Refund Amount: %s\n", money(ret.RefundAmount))
	c.Printf("%s\n", heavyRule)
	c.Printf("   Refund will be processed within 3 business days\n")
	c.Printf("%s\n", heavyRule)
}

func printInventory(c pos.Console, currency string, products []models.Product) {
	banner(c, "INVENTORY STATUS")
	if len(products) == 0 {
		c.Printf("No products available\n")
		return
	}

	for _, p := range products {
		c.Printf("%-5s %-15s %9s x %4d = %11s\n",
			p.ID, p.Name, pricing.Format(currency, p.Price), p.Stock, pricing.Format(currency, p.Value()))
	}
	c.Printf("%s\n", lightRule)
	c.Printf("Total Inventory Value: %s\n", pricing.Format(currency, pricing.InventoryValue(products)))
	c.Printf("%s\n", heavyRule)
}
