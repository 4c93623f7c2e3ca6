package pos

import (
	"github.com/safar/counter-pos/internal/models"
	"github.com/safar/counter-pos/internal/pricing"
)

// AddSaleItem appends a snapshot of product to sale and recomputes the
// sale's totals from all of its items.
func AddSaleItem(sale *models.Sale, product models.Product, quantity int) {
	sale.Items = append(sale.Items, models.SaleItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
		Subtotal:    pricing.LineSubtotal(product.Price, quantity),
	})

	totals := pricing.Compute(sale.Items)
	sale.Subtotal = totals.Subtotal
	sale.Tax = totals.Tax
	sale.Total = totals.Total
}

// AddReturnItem appends a return of quantity units of original sale line
// (1-based) and recomputes the refund. The refund uses the price the
// customer paid.
func AddReturnItem(ret *models.Return, line int, item models.SaleItem, quantity int, reason string) {
	if reason == "" {
		reason = models.DefaultReturnReason
	}

	ret.Items = append(ret.Items, models.ReturnItem{
		Line:        line,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    quantity,
		Price:       item.Price,
		Refund:      pricing.LineSubtotal(item.Price, quantity),
		Reason:      reason,
	})

	ret.RefundAmount = pricing.Refund(ret.Items)
}
