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

type ReturnWorkflow struct {
	store   Store
	console Console
	settings
}

func NewReturnWorkflow(store Store, console Console, opts ...Option) *ReturnWorkflow {
	return &ReturnWorkflow{
		store:    store,
		console:  console,
		settings: newSettings(opts),
	}
}

// Run selects an original sale, collects return lines, asks for
// confirmation and commits the return.
//
// The returnable quantity of a line is bounded by the original sale only.
// Returns recorded earlier against the same sale are not subtracted.
func (w *ReturnWorkflow) Run(ctx context.Context) (*models.Return, error) {
	ret, err := w.run(ctx)
	w.logOutcome("return", err)
	return ret, err
}

func (w *ReturnWorkflow) run(ctx context.Context) (*models.Return, error) {
	recent, err := w.store.RecentSales(ctx, w.recentSales)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, ErrNoSales
	}

	w.showRecentSales(recent)

	sale, err := w.selectSale(ctx)
	if err != nil {
		return nil, err
	}

	now := models.Timestamp(w.now())
	ret := &models.Return{
		ID:             models.NewReturnID(now),
		OriginalSaleID: sale.ID,
		CreatedAt:      now,
		RefundAmount:   decimal.Zero,
	}

	if err := w.collectItems(ctx, sale, ret); err != nil {
		return nil, err
	}

	if err := w.confirm(ctx, ret); err != nil {
		return nil, err
	}

	if err := w.store.CommitReturn(ctx, ret); err != nil {
		return nil, err
	}

	return ret, nil
}

func (w *ReturnWorkflow) showRecentSales(sales []models.Sale) {
	w.console.Printf("\nRecent Sales:\n")
	for _, s := range sales {
		w.console.Printf("  %s  %s  %s  (%d items)\n",
			s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), w.money(s.Total), len(s.Items))
	}
}

func (w *ReturnWorkflow) selectSale(ctx context.Context) (*models.Sale, error) {
	for {
		input, err := read(ctx, w.console, fmt.Sprintf("Enter original sale ID ('%s' to abort): ", cmdCancel))
		if err != nil {
			return nil, err
		}
		if isCommand(input, cmdCancel) {
			return nil, ErrCanceled
		}

		sale, err := w.store.Sale(ctx, input)
		if errors.Is(err, database.ErrSaleNotFound) {
			w.console.Printf("Error: Sale ID '%s' does not exist\n", input)
			continue
		}
		if err != nil {
			return nil, err
		}

		return sale, nil
	}
}

func (w *ReturnWorkflow) showSale(sale *models.Sale, ret *models.Return) {
	w.console.Printf("\nItems in sale %s:\n", sale.ID)
	for i, item := range sale.Items {
		line := i + 1
		w.console.Printf("  %d: %s x %d @ %s (returnable: %d)\n",
			line, item.ProductName, item.Quantity, w.money(item.Price), item.Quantity-ret.LineQuantity(line))
	}
}

func (w *ReturnWorkflow) collectItems(ctx context.Context, sale *models.Sale, ret *models.Return) error {
	for {
		w.showSale(sale, ret)
		w.console.Printf("\nEnter line number to return, '%s' to finish, '%s' to abort\n", cmdDone, cmdCancel)

		input, err := read(ctx, w.console, "Line: ")
		if err != nil {
			return err
		}

		switch {
		case isCommand(input, cmdDone):
			if len(ret.Items) == 0 {
				return ErrNothingToReturn
			}
			return nil
		case isCommand(input, cmdCancel):
			return ErrCanceled
		}

		line, err := strconv.Atoi(input)
		if err != nil || line < 1 || line > len(sale.Items) {
			w.console.Printf("Error: Line must be a number between 1 and %d\n", len(sale.Items))
			continue
		}
		item := sale.Items[line-1]

		if _, err := w.store.Product(ctx, item.ProductID); err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				w.console.Printf("Error: Product '%s' is no longer in the catalog\n", item.ProductID)
				continue
			}
			return err
		}

		remaining := item.Quantity - ret.LineQuantity(line)
		if remaining <= 0 {
			w.console.Printf("Error: All %d of %s on line %d are already being returned\n", item.Quantity, item.ProductName, line)
			continue
		}

		input, err = read(ctx, w.console, fmt.Sprintf("Quantity to return (1-%d): ", remaining))
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
		if quantity < 1 || quantity > remaining {
			w.console.Printf("Error: Quantity must be between 1 and %d (originally sold: %d)\n", remaining, item.Quantity)
			continue
		}

		reason, err := read(ctx, w.console, "Reason (optional): ")
		if err != nil {
			return err
		}
		if isCommand(reason, cmdCancel) {
			return ErrCanceled
		}

		AddReturnItem(ret, line, item, quantity, reason)

		w.console.Printf("Added return: %s x %d\n", item.ProductName, quantity)
		w.console.Printf("Current Refund: %s\n", w.money(ret.RefundAmount))
	}
}

func (w *ReturnWorkflow) confirm(ctx context.Context, ret *models.Return) error {
	w.console.Printf("\nReturn %s against sale %s\n", ret.ID, ret.OriginalSaleID)
	for _, item := range ret.Items {
		w.console.Printf("  %s x %d = %s (%s)\n", item.ProductName, item.Quantity, w.money(item.Refund), item.Reason)
	}
	w.console.Printf("Total Refund: %s\n", w.money(ret.RefundAmount))

	input, err := read(ctx, w.console, "Confirm return? (y/n): ")
	if err != nil {
		return err
	}

	if isCommand(input, "y") || isCommand(input, "yes") {
		return nil
	}

	return ErrDeclined
}

func (w *ReturnWorkflow) money(d decimal.Decimal) string {
	return pricing.Format(w.currency, d)
}
