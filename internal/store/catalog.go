package store

import (
	"fmt"
	"log/slog"

	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultProducts is the catalog written on first run.
func DefaultProducts() []models.Product {
	return []models.Product{
		{ID: "001", Name: "Apple", Price: decimal.RequireFromString("1.50"), Stock: 100},
		{ID: "002", Name: "Banana", Price: decimal.RequireFromString("0.75"), Stock: 150},
		{ID: "003", Name: "Orange", Price: decimal.RequireFromString("1.20"), Stock: 80},
		{ID: "004", Name: "Milk", Price: decimal.RequireFromString("2.50"), Stock: 50},
		{ID: "005", Name: "Bread", Price: decimal.RequireFromString("3.00"), Stock: 40},
		{ID: "006", Name: "Egg", Price: decimal.RequireFromString("0.30"), Stock: 200},
		{ID: "007", Name: "Water", Price: decimal.RequireFromString("1.00"), Stock: 120},
		{ID: "008", Name: "Chocolate", Price: decimal.RequireFromString("2.25"), Stock: 60},
	}
}

// Catalog owns every product record for the life of the process and keeps
// the catalog file in step with it.
type Catalog struct {
	path     string
	products *database.OrderedMap[models.Product]
	logger   *slog.Logger
}

func NewCatalog(path string, logger *slog.Logger) *Catalog {
	return &Catalog{
		path:     path,
		products: database.NewOrderedMap[models.Product](),
		logger:   logger,
	}
}

// Load reads the catalog file, seeding and persisting the default products
// when it does not exist yet.
func (c *Catalog) Load() error {
	products := database.NewOrderedMap[models.Product]()

	found, err := database.ReadJSON(c.path, products)
	if err != nil {
		return err
	}

	if !found {
		for _, p := range DefaultProducts() {
			products.Set(p.ID, p)
		}
		c.products = products
		if err := c.Save(); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		c.logger.Info("seeded default catalog", "path", c.path, "products", products.Len())
		return nil
	}

	for _, p := range products.Values() {
		if err := validateProduct(p); err != nil {
			return database.StorageError("load "+c.path, err)
		}
	}

	c.products = products
	c.logger.Debug("loaded catalog", "path", c.path, "products", products.Len())
	return nil
}

// Save overwrites the catalog file with the current in-memory mapping.
func (c *Catalog) Save() error {
	return database.WriteJSONAtomic(c.path, c.products)
}

func (c *Catalog) Get(id string) (models.Product, bool) {
	return c.products.Get(id)
}

func (c *Catalog) List() []models.Product {
	return c.products.Values()
}

func (c *Catalog) Value() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.products.Values() {
		total = total.Add(p.Value())
	}
	return total
}

// Apply adds each delta to the matching product's stock. All deltas are
// checked before any is applied, so a failure leaves the catalog unchanged.
func (c *Catalog) Apply(deltas map[string]int) error {
	for id, delta := range deltas {
		p, ok := c.products.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", database.ErrProductNotFound, id)
		}
		if p.Stock+delta < 0 {
			return fmt.Errorf("%w: %s has %d, need %d", database.ErrInsufficientStock, id, p.Stock, -delta)
		}
	}

	for id, delta := range deltas {
		p, _ := c.products.Get(id)
		p.Stock += delta
		c.products.Set(id, p)
	}

	return nil
}

func validateProduct(p models.Product) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("product with empty id")
	case p.Price.IsNegative():
		return fmt.Errorf("product %s has negative price %s", p.ID, p.Price)
	case p.Stock < 0:
		return fmt.Errorf("product %s has negative stock %d", p.ID, p.Stock)
	}
	return nil
}

func negate(q map[string]int) map[string]int {
	out := make(map[string]int, len(q))
	for k, v := range q {
		out[k] = -v
	}
	return out
}
