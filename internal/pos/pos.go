// Package pos runs the interactive sale and return workflows.
//
// A workflow reads operator input through a Console, validates it against a
// Store and commits exactly once at the end. Recoverable input errors are
// reported on the Console and the same step is asked again. Operator aborts
// return one of the abort errors below and leave the Store untouched.
package pos

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/safar/counter-pos/internal/models"
)

var (
	ErrCanceled        = errors.New("canceled by operator")
	ErrNoItems         = errors.New("no items added")
	ErrNoSales         = errors.New("no sales to return against")
	ErrNothingToReturn = errors.New("nothing to return")
	ErrDeclined        = errors.New("return not confirmed")
)

// IsAbort reports whether err means the operator ended the workflow without
// producing a transaction.
func IsAbort(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, ErrNoItems) ||
		errors.Is(err, ErrNoSales) ||
		errors.Is(err, ErrNothingToReturn) ||
		errors.Is(err, ErrDeclined)
}

type Console interface {
	// ReadLine shows prompt and blocks for one line of input. It returns
	// io.EOF when input is closed.
	ReadLine(ctx context.Context, prompt string) (string, error)
	Printf(format string, args ...any)
}

type Store interface {
	Product(ctx context.Context, id string) (models.Product, error)
	Products(ctx context.Context) ([]models.Product, error)
	Sale(ctx context.Context, id string) (*models.Sale, error)
	RecentSales(ctx context.Context, n int) ([]models.Sale, error)
	CommitSale(ctx context.Context, sale *models.Sale) error
	CommitReturn(ctx context.Context, ret *models.Return) error
}

const (
	cmdDone   = "done"
	cmdCancel = "cancel"
)

type settings struct {
	currency    string
	recentSales int
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*settings)

func WithCurrency(symbol string) Option {
	return func(s *settings) { s.currency = symbol }
}

// WithRecentSales sets how many recent sales the return workflow lists.
func WithRecentSales(n int) Option {
	return func(s *settings) { s.recentSales = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func newSettings(opts []Option) settings {
	s := settings{
		currency:    "$",
		recentSales: 5,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) logOutcome(workflow string, err error) {
	switch {
	case err == nil:
	case IsAbort(err):
		s.logger.Debug("workflow aborted", "workflow", workflow, "reason", err.Error())
	default:
		s.logger.Error("workflow failed", "workflow", workflow, "error", err)
	}
}

// read returns the trimmed input line. Closed input and a done context both
// count as a cancel.
func read(ctx context.Context, console Console, prompt string) (string, error) {
	line, err := console.ReadLine(ctx, prompt)
	if err != nil {
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return "", ErrCanceled
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isCommand(input, cmd string) bool {
	return strings.EqualFold(input, cmd)
}
