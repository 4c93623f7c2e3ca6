package pos

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/models"
	"github.com/safar/counter-pos/internal/pricing"
	"github.com/shopspring/decimal"
)

type SaleWorkflow struct {
	store   Store
	console Console
	settings
}

func NewSaleWorkflow(store Store, console Console, opts ...Option) *SaleWorkflow {
	return &SaleWorkflow{
		store:    store,
		console:  console,
		settings: newSettings(opts),
	}
}

// Run collects items, takes payment and commits the sale. It returns the
// committed sale, an abort error from this package, or a storage error.
func (w *SaleWorkflow) Run(ctx context.Context) (*models.Sale, error) {
	sale, err := w.run(ctx)
	w.logOutcome("sale", err)
	return sale, err
}

func (w *SaleWorkflow) run(ctx context.Context) (*models.Sale, error) {
	now := models.Timestamp(w.now())
	sale := &models.Sale{
		ID:        models.NewSaleID(now),
		CreatedAt: now,
	}

	if err := w.collectItems(ctx, sale); err != nil {
		return nil, err
	}

	w.console.Printf("\nOrder Total: %s\n", w.money(sale.Total))

	method, err := w.selectPayment(ctx)
	if err != nil {
		return nil, err
	}

	paid, err := w.awaitPayment(ctx, sale.Total)
	if err != nil {
		return nil, err
	}

	sale.PaymentMethod = method
	sale.AmountPaid = paid
	sale.Change = pricing.Change(paid, sale.Total)
	sale.PaymentStatus = true
	w.console.Printf("Payment successful! Change: %s\n", w.money(sale.Change))

	if err := w.store.CommitSale(ctx, sale); err != nil {
		return nil, err
	}

	return sale, nil
}

func (w *SaleWorkflow) collectItems(ctx context.Context, sale *models.Sale) error {
	// Units already in the basket count against stock so that the
	// decrement at commit can never go below zero.
	reserved := make(map[string]int)

	for {
		if err := w.showProducts(ctx, reserved); err != nil {
			return err
		}

		w.console.Printf("\nEnter product ID to add item, '%s' to finish, '%s' to abort sale\n", cmdDone, cmdCancel)
		input, err := read(ctx, w.console, "Product ID: ")
		if err != nil {
			return err
		}

		switch {
		case isCommand(input, cmdDone):
			if len(sale.Items) == 0 {
				return ErrNoItems
			}
			return nil
		case isCommand(input, cmdCancel):
			return ErrCanceled
		}

		product, err := w.store.Product(ctx, input)
		if errors.Is(err, database.ErrProductNotFound) {
			w.console.Printf("Error: Product ID '%s' does not exist\n", input)
			continue
		}
		if err != nil {
			return err
		}

		input, err = read(ctx, w.console, fmt.Sprintf("Enter quantity for %s: ", product.Name))
		if err != nil {
			return err
		}
		if isCommand(input, cmdCancel) {
			return ErrCanceled
		}

		quantity, err := strconv.Atoi(input)
		if err != nil {
			w.console.Printf("Error: Please enter a valid number\n")
			continue
		}
		if quantity <= 0 {
			w.console.Printf("Error: Quantity must be greater than 0\n")
			continue
		}

		available := product.Stock - reserved[product.ID]
		if quantity > available {
			w.console.Printf("Error: Insufficient stock. Available: %d\n", available)
			continue
		}

		AddSaleItem(sale, product, quantity)
		reserved[product.ID] += quantity

		w.console.Printf("Added: %s x %d\n", product.Name, quantity)
		w.console.Printf("Current Total: %s\n", w.money(sale.Total))
	}
}

func (w *SaleWorkflow) showProducts(ctx context.Context, reserved map[string]int) error {
	products, err := w.store.Products(ctx)
	if err != nil {
		return err
	}

	w.console.Printf("\nAvailable Products:\n")
	for _, p := range products {
		w.console.Printf("  %s: %s - %s (Stock: %d)\n", p.ID, p.Name, w.money(p.Price), p.Stock-reserved[p.ID])
	}

	return nil
}

func (w *SaleWorkflow) selectPayment(ctx context.Context) (models.PaymentMethod, error) {
	methods := models.PaymentMethods()

	w.console.Printf("\nSelect Payment Method:\n")
	for i, m := range methods {
		w.console.Printf("  %d: %s\n", i+1, m)
	}

	for {
		input, err := read(ctx, w.console, fmt.Sprintf("Select payment method (1-%d): ", len(methods)))
		if err != nil {
			return "", err
		}
		if isCommand(input, cmdCancel) {
			return "", ErrCanceled
		}

		method, err := models.PaymentMethodByChoice(input)
		if err != nil {
			w.console.Printf("Error: Invalid selection\n")
			continue
		}

		return method, nil
	}
}

func (w *SaleWorkflow) awaitPayment(ctx context.Context, total decimal.Decimal) (decimal.Decimal, error) {
	for {
		input, err := read(ctx, w.console, fmt.Sprintf("Enter payment amount (minimum %s): ", w.money(total)))
		if err != nil {
			return decimal.Zero, err
		}
		if isCommand(input, cmdCancel) {
			return decimal.Zero, ErrCanceled
		}

		amount, err := decimal.NewFromString(input)
		if err != nil {
			w.console.Printf("Error: Please enter a valid amount\n")
			continue
		}

		if amount.LessThan(total) {
			w.console.Printf("Insufficient amount: %s is %s short of the %s total\n",
				w.money(amount), w.money(total.Sub(amount)), w.money(total))
			continue
		}

		return amount, nil
	}
}

func (w *SaleWorkflow) money(d decimal.Decimal) string {
	return pricing.Format(w.currency, d)
}
