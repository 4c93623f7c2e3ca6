package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID    string          `json:"product_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// Value is the extended stock value of the product.
func (p Product) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// SaleItem is a snapshot of a product taken when it was added to a sale.
// Later catalog edits never change it.
type SaleItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Sale struct {
	ID            string          `json:"sale_id"`
	CreatedAt     time.Time       `json:"datetime"`
	Items         []SaleItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentStatus bool            `json:"payment_status"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Change        decimal.Decimal `json:"change"`
}

// Quantities sums item quantities per product.
func (s *Sale) Quantities() map[string]int {
	q := make(map[string]int, len(s.Items))
	for _, item := range s.Items {
		q[item.ProductID] += item.Quantity
	}
	return q
}

type ReturnItem struct {
	Line        int             `json:"line"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Refund      decimal.Decimal `json:"refund"`
	Reason      string          `json:"reason"`
}

type Return struct {
	ID             string          `json:"return_id"`
	OriginalSaleID string          `json:"original_sale_id"`
	CreatedAt      time.Time       `json:"datetime"`
	Items          []ReturnItem    `json:"items"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
}

// Quantities sums returned quantities per product.
func (r *Return) Quantities() map[string]int {
	q := make(map[string]int, len(r.Items))
	for _, item := range r.Items {
		q[item.ProductID] += item.Quantity
	}
	return q
}

// LineQuantity is how much of original sale line n this return holds.
func (r *Return) LineQuantity(line int) int {
	total := 0
	for _, item := range r.Items {
		if item.Line == line {
			total += item.Quantity
		}
	}
	return total
}

const DefaultReturnReason = "No reason provided"
