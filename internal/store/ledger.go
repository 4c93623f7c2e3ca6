package store

import (
	"fmt"
	"log/slog"

	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/models"
)

// Ledger holds the sales and returns ledgers. Each append rewrites the whole
// ledger file; concurrent use from more than one process is not supported.
type Ledger struct {
	salesPath   string
	returnsPath string
	sales       *database.OrderedMap[models.Sale]
	returns     *database.OrderedMap[models.Return]
	logger      *slog.Logger
}

func NewLedger(salesPath, returnsPath string, logger *slog.Logger) *Ledger {
	return &Ledger{
		salesPath:   salesPath,
		returnsPath: returnsPath,
		sales:       database.NewOrderedMap[models.Sale](),
		returns:     database.NewOrderedMap[models.Return](),
		logger:      logger,
	}
}

func (l *Ledger) Load() error {
	if err := l.LoadSales(); err != nil {
		return err
	}
	return l.LoadReturns()
}

func (l *Ledger) LoadSales() error {
	sales := database.NewOrderedMap[models.Sale]()
	if _, err := database.ReadJSON(l.salesPath, sales); err != nil {
		return err
	}
	l.sales = sales
	l.logger.Debug("loaded sales ledger", "path", l.salesPath, "sales", sales.Len())
	return nil
}

func (l *Ledger) LoadReturns() error {
	returns := database.NewOrderedMap[models.Return]()
	if _, err := database.ReadJSON(l.returnsPath, returns); err != nil {
		return err
	}
	l.returns = returns
	l.logger.Debug("loaded returns ledger", "path", l.returnsPath, "returns", returns.Len())
	return nil
}

func (l *Ledger) HasSale(id string) bool {
	return l.sales.Has(id)
}

func (l *Ledger) HasReturn(id string) bool {
	return l.returns.Has(id)
}

// AppendSale records a settled sale. The record is only kept in memory if
// the file write succeeds.
func (l *Ledger) AppendSale(sale models.Sale) error {
	if l.sales.Has(sale.ID) {
		return fmt.Errorf("%w: sale %s", database.ErrDuplicateID, sale.ID)
	}

	l.sales.Set(sale.ID, sale)
	if err := database.WriteJSONAtomic(l.salesPath, l.sales); err != nil {
		l.sales.Delete(sale.ID)
		return err
	}

	return nil
}

func (l *Ledger) AppendReturn(ret models.Return) error {
	if l.returns.Has(ret.ID) {
		return fmt.Errorf("%w: return %s", database.ErrDuplicateID, ret.ID)
	}

	l.returns.Set(ret.ID, ret)
	if err := database.WriteJSONAtomic(l.returnsPath, l.returns); err != nil {
		l.returns.Delete(ret.ID)
		return err
	}

	return nil
}

func (l *Ledger) Sale(id string) (models.Sale, bool) {
	return l.sales.Get(id)
}

// RecentSales returns the last n sales, oldest first.
func (l *Ledger) RecentSales(n int) []models.Sale {
	return l.sales.Last(n)
}

func (l *Ledger) Sales() []models.Sale {
	return l.sales.Values()
}

func (l *Ledger) Returns() []models.Return {
	return l.returns.Values()
}

// ReturnsFor lists the returns recorded against saleID in insertion order.
func (l *Ledger) ReturnsFor(saleID string) []models.Return {
	var out []models.Return
	for _, r := range l.returns.Values() {
		if r.OriginalSaleID == saleID {
			out = append(out, r)
		}
	}
	return out
}
