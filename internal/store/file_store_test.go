package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/safar/counter-pos/internal/config"
	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestFileStore(t *testing.T) (*FileStore, config.StorageConfig) {
	t.Helper()
	cfg := config.StorageConfig{
		Backend:     config.StorageFile,
		DataDir:     t.TempDir(),
		CatalogFile: "inventory.json",
		SalesFile:   "sales.json",
		ReturnsFile: "returns.json",
	}
	s, err := OpenFileStore(cfg, discardLogger())
	require.NoError(t, err)
	return s, cfg
}

// replaceWithDir swaps the file at path for a directory so the next atomic
// write to it fails at the rename.
func replaceWithDir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(path))
	require.NoError(t, os.Mkdir(path, 0o755))
}

func TestFileStoreReads(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestFileStore(t)

	p, err := s.Product(ctx, "004")
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.Name)

	_, err = s.Product(ctx, "404")
	assert.ErrorIs(t, err, database.ErrProductNotFound)

	_, err = s.Sale(ctx, "SALE-missing")
	assert.ErrorIs(t, err, database.ErrSaleNotFound)

	products, err := s.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 8)
}

func TestFileStoreCommitSaleAndReturn(t *testing.T) {
	ctx := context.Background()
	s, cfg := openTestFileStore(t)
	now := time.Now()

	sale := testSale("SALE-20261017-00000001", now)
	require.NoError(t, s.CommitSale(ctx, &sale))

	apple, _ := s.Catalog().Get("001")
	assert.Equal(t, 97, apple.Stock)

	got, err := s.Sale(ctx, sale.ID)
	require.NoError(t, err)
	assertSaleEqual(t, sale, *got)

	got.Items[0].Quantity = 99
	again, _ := s.Sale(ctx, sale.ID)
	assert.Equal(t, 3, again.Items[0].Quantity, "Sale must return a copy")

	ret := testReturn("RET-20261017-00000001", sale.ID, now)
	require.NoError(t, s.CommitReturn(ctx, &ret))

	apple, _ = s.Catalog().Get("001")
	assert.Equal(t, 99, apple.Stock)

	reopened, err := OpenFileStore(cfg, discardLogger())
	require.NoError(t, err)
	apple, _ = reopened.Catalog().Get("001")
	assert.Equal(t, 99, apple.Stock)

	recent, err := reopened.RecentSales(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, sale.ID, recent[0].ID)

	returns, err := reopened.ReturnsFor(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assertReturnEqual(t, ret, returns[0])
}

func TestFileStoreCommitRejectsBadSales(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestFileStore(t)
	now := time.Now()

	sale := testSale("SALE-1", now)
	require.NoError(t, s.CommitSale(ctx, &sale))

	err := s.CommitSale(ctx, &sale)
	require.ErrorIs(t, err, database.ErrDuplicateID)

	unknown := testSale("SALE-2", now)
	unknown.Items[0].ProductID = "404"
	require.ErrorIs(t, s.CommitSale(ctx, &unknown), database.ErrProductNotFound)

	tooMany := testSale("SALE-3", now)
	tooMany.Items[0].Quantity = 1000
	require.ErrorIs(t, s.CommitSale(ctx, &tooMany), database.ErrInsufficientStock)

	apple, _ := s.Catalog().Get("001")
	assert.Equal(t, 97, apple.Stock)
	assert.Len(t, s.Ledger().Sales(), 1)
}

func TestFileStoreCommitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := openTestFileStore(t)
	sale := testSale("SALE-1", time.Now())
	require.ErrorIs(t, s.CommitSale(ctx, &sale), context.Canceled)

	apple, _ := s.Catalog().Get("001")
	assert.Equal(t, 100, apple.Stock)
}

func TestFileStoreCatalogWriteFailureDiscardsStockChange(t *testing.T) {
	ctx := context.Background()
	s, cfg := openTestFileStore(t)
	replaceWithDir(t, cfg.CatalogPath())

	sale := testSale("SALE-1", time.Now())
	err := s.CommitSale(ctx, &sale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrStorage))

	apple, _ := s.Catalog().Get("001")
	assert.Equal(t, 100, apple.Stock)
	assert.False(t, s.Ledger().HasSale(sale.ID))

	_, err = os.Stat(cfg.SalesPath())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileStoreLedgerWriteFailureAfterCatalogSave(t *testing.T) {
	ctx := context.Background()
	s, cfg := openTestFileStore(t)
	replaceWithDir(t, cfg.SalesPath())

	sale := testSale("SALE-1", time.Now())
	err := s.CommitSale(ctx, &sale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrStorage))
	assert.False(t, s.Ledger().HasSale(sale.ID))

	// The catalog was already written, so the stock change survives.
	catalog := database.NewOrderedMap[models.Product]()
	found, err := database.ReadJSON(cfg.CatalogPath(), catalog)
	require.NoError(t, err)
	require.True(t, found)
	apple, _ := catalog.Get("001")
	assert.Equal(t, 97, apple.Stock)
}

func TestOpenFileStoreFailsOnCorruptLedger(t *testing.T) {
	cfg := config.StorageConfig{
		Backend:     config.StorageFile,
		DataDir:     t.TempDir(),
		CatalogFile: "inventory.json",
		SalesFile:   "sales.json",
		ReturnsFile: "returns.json",
	}
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "sales.json"), []byte("{"), 0o644))

	_, err := OpenFileStore(cfg, discardLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrStorage))
}
