package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/counter-pos/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	return db
}

func openTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	db := setupTestDB(t)

	s, err := OpenPostgresStore(context.Background(), db, discardLogger())
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	return s
}

func stockOf(t *testing.T, s *PostgresStore, id string) int {
	t.Helper()
	p, err := s.Product(context.Background(), id)
	if err != nil {
		t.Fatalf("Get product %s: %v", id, err)
	}
	return p.Stock
}

func TestPostgresStoreSeedsOnce(t *testing.T) {
	s := openTestPostgresStore(t)
	ctx := context.Background()

	products, err := s.Products(ctx)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if len(products) != 8 {
		t.Fatalf("Expected 8 seeded products, got %d", len(products))
	}
	if products[0].ID != "001" || products[7].Name != "Chocolate" {
		t.Errorf("Products out of seed order: %s ... %s", products[0].ID, products[7].Name)
	}

	sale := testSale("SALE-SEED", time.Now())
	if err := s.CommitSale(ctx, &sale); err != nil {
		t.Fatalf("Commit sale: %v", err)
	}

	reopened, err := OpenPostgresStore(ctx, s.db, discardLogger())
	if err != nil {
		t.Fatalf("Reopen store: %v", err)
	}
	if got := stockOf(t, reopened, "001"); got != 97 {
		t.Errorf("Reopening must not reseed: expected stock 97, got %d", got)
	}
}

func TestPostgresStoreCommitSaleAndReturn(t *testing.T) {
	s := openTestPostgresStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 12, 0, 0, 654321000, time.UTC)

	sale := testSale("SALE-20261017-pg000001", now)
	if err := s.CommitSale(ctx, &sale); err != nil {
		t.Fatalf("Commit sale: %v", err)
	}
	if got := stockOf(t, s, "001"); got != 97 {
		t.Errorf("Expected stock 97 after sale, got %d", got)
	}

	got, err := s.Sale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("Get sale: %v", err)
	}
	assertSaleEqual(t, sale, *got)

	ret := testReturn("RET-20261017-pg000001", sale.ID, now.Add(time.Minute))
	if err := s.CommitReturn(ctx, &ret); err != nil {
		t.Fatalf("Commit return: %v", err)
	}
	if got := stockOf(t, s, "001"); got != 99 {
		t.Errorf("Expected stock 99 after return, got %d", got)
	}

	returns, err := s.ReturnsFor(ctx, sale.ID)
	if err != nil {
		t.Fatalf("List returns: %v", err)
	}
	if len(returns) != 1 {
		t.Fatalf("Expected 1 return, got %d", len(returns))
	}
	assertReturnEqual(t, ret, returns[0])

	if _, err := s.Sale(ctx, "SALE-missing"); !errors.Is(err, database.ErrSaleNotFound) {
		t.Errorf("Expected ErrSaleNotFound, got %v", err)
	}
}

func TestPostgresStoreRecentSales(t *testing.T) {
	s := openTestPostgresStore(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		sale := testSale(fmt.Sprintf("SALE-%d", i), time.Now())
		sale.Items[0].Quantity = 1
		if err := s.CommitSale(ctx, &sale); err != nil {
			t.Fatalf("Commit sale %d: %v", i, err)
		}
	}

	recent, err := s.RecentSales(ctx, 2)
	if err != nil {
		t.Fatalf("Recent sales: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "SALE-3" || recent[1].ID != "SALE-4" {
		t.Errorf("Expected SALE-3, SALE-4 oldest first, got %+v", recent)
	}
	if len(recent[1].Items) != 1 {
		t.Errorf("Expected items to be loaded, got %d", len(recent[1].Items))
	}
}

func TestPostgresStoreCommitRollsBack(t *testing.T) {
	s := openTestPostgresStore(t)
	ctx := context.Background()

	sale := testSale("SALE-1", time.Now())
	if err := s.CommitSale(ctx, &sale); err != nil {
		t.Fatalf("Commit sale: %v", err)
	}

	if err := s.CommitSale(ctx, &sale); !errors.Is(err, database.ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}

	tooMany := testSale("SALE-2", time.Now())
	tooMany.Items = append(tooMany.Items, tooMany.Items[0])
	tooMany.Items[0].ProductID = "004"
	tooMany.Items[1].Quantity = 1000
	if err := s.CommitSale(ctx, &tooMany); !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock, got %v", err)
	}

	unknown := testSale("SALE-3", time.Now())
	unknown.Items[0].ProductID = "404"
	if err := s.CommitSale(ctx, &unknown); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	if got := stockOf(t, s, "001"); got != 97 {
		t.Errorf("Expected apple stock 97, got %d", got)
	}
	if got := stockOf(t, s, "004"); got != 50 {
		t.Errorf("Failed commit must not touch milk stock, got %d", got)
	}

	recent, err := s.RecentSales(ctx, 10)
	if err != nil {
		t.Fatalf("Recent sales: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("Expected 1 committed sale, got %d", len(recent))
	}
}

func TestPostgresStoreConcurrentSales(t *testing.T) {
	s := openTestPostgresStore(t)
	ctx := context.Background()

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			sale := testSale(fmt.Sprintf("SALE-C%02d", n), time.Now())
			sale.Items[0].ProductID = "004"
			sale.Items[0].Quantity = 6

			err := s.CommitSale(ctx, &sale)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, database.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 8 || rejected != 2 {
		t.Errorf("Expected 8 sales and 2 rejections, got %d and %d", succeeded, rejected)
	}
	if got := stockOf(t, s, "004"); got != 2 {
		t.Errorf("Expected milk stock 2, got %d", got)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	applied, err := Migrate(ctx, db, MigrateUp)
	if err != nil {
		t.Fatalf("Migrate up: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("Expected 2 up migrations, got %v", applied)
	}

	reverted, err := Migrate(ctx, db, MigrateDown)
	if err != nil {
		t.Fatalf("Migrate down: %v", err)
	}
	if len(reverted) != 2 || reverted[0] != "002_create_ledger.down.sql" {
		t.Errorf("Expected down migrations in reverse order, got %v", reverted)
	}

	if _, err := Migrate(ctx, db, "sideways"); err == nil {
		t.Error("Expected an error for an unknown direction")
	}
}
