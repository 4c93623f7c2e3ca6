package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lib/pq"
	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/models"
)

// PostgresStore keeps the catalog and ledgers in Postgres. Stock changes and
// the ledger record of a commit share one transaction. The database belongs
// to a single terminal.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenPostgresStore applies the schema and seeds the default catalog when
// the products table is empty.
func OpenPostgresStore(ctx context.Context, db *sql.DB, logger *slog.Logger) (*PostgresStore, error) {
	if _, err := Migrate(ctx, db, MigrateUp); err != nil {
		return nil, database.StorageError("migrate", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	if err := s.seed(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) seed(ctx context.Context) error {
	return database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
			return database.StorageError("count products", err)
		}
		if count > 0 {
			return nil
		}

		for _, p := range DefaultProducts() {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO products (id, name, price, stock) VALUES ($1, $2, $3, $4)`,
				p.ID, p.Name, p.Price, p.Stock)
			if err != nil {
				return database.StorageError("seed product "+p.ID, err)
			}
		}

		s.logger.Info("seeded default catalog", "products", len(DefaultProducts()))
		return nil
	})
}

func (s *PostgresStore) Product(ctx context.Context, id string) (models.Product, error) {
	var p models.Product

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, price, stock FROM products WHERE id = $1`,
		id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, fmt.Errorf("%w: %s", database.ErrProductNotFound, id)
		}
		return models.Product{}, database.StorageError("get product", err)
	}

	return p, nil
}

func (s *PostgresStore) Products(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price, stock FROM products ORDER BY seq`)
	if err != nil {
		return nil, database.StorageError("list products", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, database.StorageError("scan product", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StorageError("rows error", err)
	}

	return products, nil
}

func (s *PostgresStore) Sale(ctx context.Context, id string) (*models.Sale, error) {
	sale := &models.Sale{}
	var method string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, subtotal, tax, total, payment_method, payment_status, amount_paid, change_due
		 FROM sales WHERE id = $1`,
		id).Scan(
		&sale.ID,
		&sale.CreatedAt,
		&sale.Subtotal,
		&sale.Tax,
		&sale.Total,
		&method,
		&sale.PaymentStatus,
		&sale.AmountPaid,
		&sale.Change,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", database.ErrSaleNotFound, id)
		}
		return nil, database.StorageError("get sale", err)
	}
	sale.PaymentMethod = models.PaymentMethod(method)
	sale.CreatedAt = sale.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, product_name, quantity, price, subtotal
		 FROM sale_items WHERE sale_id = $1 ORDER BY line`,
		id)
	if err != nil {
		return nil, database.StorageError("get sale items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.SaleItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.Subtotal); err != nil {
			return nil, database.StorageError("scan sale item", err)
		}
		sale.Items = append(sale.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StorageError("rows error", err)
	}

	return sale, nil
}

func (s *PostgresStore) RecentSales(ctx context.Context, n int) ([]models.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sales ORDER BY seq DESC LIMIT $1`, n)
	if err != nil {
		return nil, database.StorageError("list recent sales", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, database.StorageError("scan sale id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, database.StorageError("rows error", err)
	}

	slices.Reverse(ids)

	sales := make([]models.Sale, 0, len(ids))
	for _, id := range ids {
		sale, err := s.Sale(ctx, id)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}

	return sales, nil
}

func (s *PostgresStore) ReturnsFor(ctx context.Context, saleID string) ([]models.Return, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_sale_id, created_at, refund_amount
		 FROM returns WHERE original_sale_id = $1 ORDER BY seq`,
		saleID)
	if err != nil {
		return nil, database.StorageError("list returns", err)
	}

	var returns []models.Return
	for rows.Next() {
		var r models.Return
		if err := rows.Scan(&r.ID, &r.OriginalSaleID, &r.CreatedAt, &r.RefundAmount); err != nil {
			rows.Close()
			return nil, database.StorageError("scan return", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		returns = append(returns, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, database.StorageError("rows error", err)
	}

	for i := range returns {
		items, err := s.returnItems(ctx, returns[i].ID)
		if err != nil {
			return nil, err
		}
		returns[i].Items = items
	}

	return returns, nil
}

func (s *PostgresStore) returnItems(ctx context.Context, returnID string) ([]models.ReturnItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line, product_id, product_name, quantity, price, refund, reason
		 FROM return_items WHERE return_id = $1 ORDER BY item_no`,
		returnID)
	if err != nil {
		return nil, database.StorageError("get return items", err)
	}
	defer rows.Close()

	var items []models.ReturnItem
	for rows.Next() {
		var item models.ReturnItem
		err := rows.Scan(
			&item.Line,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Price,
			&item.Refund,
			&item.Reason,
		)
		if err != nil {
			return nil, database.StorageError("scan return item", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StorageError("rows error", err)
	}

	return items, nil
}

func (s *PostgresStore) CommitSale(ctx context.Context, sale *models.Sale) error {
	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := adjustStock(ctx, tx, negate(sale.Quantities())); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO sales (id, created_at, subtotal, tax, total, payment_method, payment_status, amount_paid, change_due)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			sale.ID, sale.CreatedAt, sale.Subtotal, sale.Tax, sale.Total,
			string(sale.PaymentMethod), sale.PaymentStatus, sale.AmountPaid, sale.Change)
		if err != nil {
			return insertError("sale "+sale.ID, err)
		}

		for i, item := range sale.Items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO sale_items (sale_id, line, product_id, product_name, quantity, price, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				sale.ID, i+1, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Subtotal)
			if err != nil {
				return database.StorageError("insert sale item", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("commit sale %s: %w", sale.ID, err)
	}

	s.logger.Info("sale committed", "sale_id", sale.ID, "items", len(sale.Items), "total", sale.Total.StringFixed(2))
	return nil
}

func (s *PostgresStore) CommitReturn(ctx context.Context, ret *models.Return) error {
	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := adjustStock(ctx, tx, ret.Quantities()); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO returns (id, original_sale_id, created_at, refund_amount)
			 VALUES ($1, $2, $3, $4)`,
			ret.ID, ret.OriginalSaleID, ret.CreatedAt, ret.RefundAmount)
		if err != nil {
			return insertError("return "+ret.ID, err)
		}

		for i, item := range ret.Items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO return_items (return_id, item_no, line, product_id, product_name, quantity, price, refund, reason)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				ret.ID, i+1, item.Line, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Refund, item.Reason)
			if err != nil {
				return database.StorageError("insert return item", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("commit return %s: %w", ret.ID, err)
	}

	s.logger.Info("return committed", "return_id", ret.ID, "sale_id", ret.OriginalSaleID, "refund", ret.RefundAmount.StringFixed(2))
	return nil
}

// adjustStock applies deltas in product id order so concurrent commits lock
// rows in the same sequence.
func adjustStock(ctx context.Context, tx *sql.Tx, deltas map[string]int) error {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		delta := deltas[id]
		result, err := tx.ExecContext(ctx,
			`UPDATE products
			 SET stock = stock + $1,
			     updated_at = NOW()
			 WHERE id = $2
			   AND stock + $1 >= 0`,
			delta, id)
		if err != nil {
			if database.IsRetryable(err) {
				return err
			}
			return database.StorageError("update stock", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return database.StorageError("get rows affected", err)
		}

		if rowsAffected == 0 {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
			if err != nil {
				return database.StorageError("check product exists", err)
			}
			if !exists {
				return fmt.Errorf("%w: %s", database.ErrProductNotFound, id)
			}
			return fmt.Errorf("%w: %s", database.ErrInsufficientStock, id)
		}
	}

	return nil
}

func insertError(what string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && database.ClassifyError(pqErr) == database.ErrorClassConflict {
		return fmt.Errorf("%w: %s", database.ErrDuplicateID, what)
	}
	if database.IsRetryable(err) {
		return err
	}
	return database.StorageError("insert "+what, err)
}
