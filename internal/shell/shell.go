// Package shell is the operator-facing menu around the sale and return
// workflows.
package shell

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/safar/counter-pos/internal/config"
	"github.com/safar/counter-pos/internal/pos"
)

const (
	choiceSale      = "1"
	choiceReturn    = "2"
	choiceInventory = "3"
	choiceExit      = "4"
)

// abortMessages tells the operator why a workflow ended without a record.
var abortMessages = []struct {
	err error
	msg string
}{
	{pos.ErrNoItems, "No items added. Sale cancelled."},
	{pos.ErrNoSales, "No sales recorded yet. Nothing to return."},
	{pos.ErrNothingToReturn, "No items selected. Return cancelled."},
	{pos.ErrDeclined, "Return not confirmed. Nothing was changed."},
}

type Shell struct {
	store    pos.Store
	console  pos.Console
	terminal config.TerminalConfig
	logger   *slog.Logger
	opts     []pos.Option
}

// New builds a shell. Extra options are passed to every workflow after the
// terminal settings.
func New(store pos.Store, console pos.Console, terminal config.TerminalConfig, logger *slog.Logger, opts ...pos.Option) *Shell {
	base := []pos.Option{
		pos.WithCurrency(terminal.Currency),
		pos.WithRecentSales(terminal.RecentSales),
		pos.WithLogger(logger),
	}

	return &Shell{
		store:    store,
		console:  console,
		terminal: terminal,
		logger:   logger,
		opts:     append(base, opts...),
	}
}

// Run shows the main menu until the operator exits, input is closed or ctx
// is done. Storage failures inside a workflow are reported and the menu is
// shown again.
func (s *Shell) Run(ctx context.Context) error {
	s.console.Printf("Welcome to Supermarket POS System\n")

	for {
		s.console.Printf("\n=== MAIN MENU ===\n")
		s.console.Printf("1. Start sale\n2. Process return\n3. View inventory\n4. Exit\n")

		choice, err := s.console.ReadLine(ctx, "Please select: ")
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				s.console.Printf("\nGoodbye!\n")
				return nil
			}
			return err
		}

		switch strings.TrimSpace(choice) {
		case choiceSale:
			s.sale(ctx)
		case choiceReturn:
			s.processReturn(ctx)
		case choiceInventory:
			s.inventory(ctx)
		case choiceExit:
			s.console.Printf("Thank you for using our system. Goodbye!\n")
			return nil
		default:
			s.console.Printf("Invalid choice, please try again\n")
		}
	}
}

func (s *Shell) sale(ctx context.Context) {
	banner(s.console, "PROCESS SALE")

	sale, err := pos.NewSaleWorkflow(s.store, s.console, s.opts...).Run(ctx)
	if err != nil {
		s.report(err, "Sale cancelled.")
		return
	}

	printSaleReceipt(s.console, s.terminal.Currency, sale)
}

func (s *Shell) processReturn(ctx context.Context) {
	banner(s.console, "PROCESS RETURN")

	ret, err := pos.NewReturnWorkflow(s.store, s.console, s.opts...).Run(ctx)
	if err != nil {
		s.report(err, "Return cancelled.")
		return
	}

	printReturnReceipt(s.console, s.terminal.Currency, ret)
}

func (s *Shell) inventory(ctx context.Context) {
	products, err := s.store.Products(ctx)
	if err != nil {
		s.logger.Error("list products failed", "error", err)
		s.report(err, "")
		return
	}

	printInventory(s.console, s.terminal.Currency, products)
}

// report prints the outcome of a workflow that produced no record.
func (s *Shell) report(err error, canceled string) {
	for _, m := range abortMessages {
		if errors.Is(err, m.err) {
			s.console.Printf("%s\n", m.msg)
			return
		}
	}

	if errors.Is(err, pos.ErrCanceled) {
		s.console.Printf("%s\n", canceled)
		return
	}

	s.console.Printf("Error: %v\n", err)
}
