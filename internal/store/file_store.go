package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/safar/counter-pos/internal/config"
	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/models"
)

// FileStore keeps the catalog and both ledgers in JSON files.
//
// A commit writes the catalog first and the ledger record second. A crash
// between the two writes leaves the stock change without its ledger record.
type FileStore struct {
	catalog *Catalog
	ledger  *Ledger
	logger  *slog.Logger
}

func OpenFileStore(cfg config.StorageConfig, logger *slog.Logger) (*FileStore, error) {
	s := &FileStore{
		catalog: NewCatalog(cfg.CatalogPath(), logger),
		ledger:  NewLedger(cfg.SalesPath(), cfg.ReturnsPath(), logger),
		logger:  logger,
	}

	if err := s.catalog.Load(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := s.ledger.Load(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	return s, nil
}

func (s *FileStore) Catalog() *Catalog { return s.catalog }
func (s *FileStore) Ledger() *Ledger   { return s.ledger }

func (s *FileStore) Product(ctx context.Context, id string) (models.Product, error) {
	p, ok := s.catalog.Get(id)
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %s", database.ErrProductNotFound, id)
	}
	return p, nil
}

func (s *FileStore) Products(ctx context.Context) ([]models.Product, error) {
	return s.catalog.List(), nil
}

func (s *FileStore) Sale(ctx context.Context, id string) (*models.Sale, error) {
	sale, ok := s.ledger.Sale(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", database.ErrSaleNotFound, id)
	}
	return cloneSale(&sale), nil
}

func (s *FileStore) RecentSales(ctx context.Context, n int) ([]models.Sale, error) {
	return s.ledger.RecentSales(n), nil
}

func (s *FileStore) ReturnsFor(ctx context.Context, saleID string) ([]models.Return, error) {
	return s.ledger.ReturnsFor(saleID), nil
}

// CommitSale takes the sale's quantities out of stock, saves the catalog and
// then appends the sale to the ledger.
func (s *FileStore) CommitSale(ctx context.Context, sale *models.Sale) error {
	if s.ledger.HasSale(sale.ID) {
		return fmt.Errorf("%w: sale %s", database.ErrDuplicateID, sale.ID)
	}

	if err := s.commit(ctx, negate(sale.Quantities()), func() error {
		return s.ledger.AppendSale(*cloneSale(sale))
	}); err != nil {
		return fmt.Errorf("commit sale %s: %w", sale.ID, err)
	}

	s.logger.Info("sale committed", "sale_id", sale.ID, "items", len(sale.Items), "total", sale.Total.StringFixed(2))
	return nil
}

// CommitReturn puts the returned quantities back into stock, saves the
// catalog and then appends the return to the ledger.
func (s *FileStore) CommitReturn(ctx context.Context, ret *models.Return) error {
	if s.ledger.HasReturn(ret.ID) {
		return fmt.Errorf("%w: return %s", database.ErrDuplicateID, ret.ID)
	}

	if err := s.commit(ctx, ret.Quantities(), func() error {
		return s.ledger.AppendReturn(*cloneReturn(ret))
	}); err != nil {
		return fmt.Errorf("commit return %s: %w", ret.ID, err)
	}

	s.logger.Info("return committed", "return_id", ret.ID, "sale_id", ret.OriginalSaleID, "refund", ret.RefundAmount.StringFixed(2))
	return nil
}

func (s *FileStore) commit(ctx context.Context, deltas map[string]int, appendRecord func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.catalog.Apply(deltas); err != nil {
		return err
	}

	if err := s.catalog.Save(); err != nil {
		// Reverting cannot fail: the inverse of a valid delta set is valid.
		_ = s.catalog.Apply(negate(deltas))
		s.logger.Error("catalog write failed, stock change discarded", "error", err)
		return err
	}

	if err := appendRecord(); err != nil {
		s.logger.Error("ledger write failed after catalog was saved", "error", err)
		return err
	}

	return nil
}

func cloneSale(s *models.Sale) *models.Sale {
	c := *s
	c.Items = slices.Clone(s.Items)
	return &c
}

func cloneReturn(r *models.Return) *models.Return {
	c := *r
	c.Items = slices.Clone(r.Items)
	return &c
}
