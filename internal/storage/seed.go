package storage

import (
	"context"
	"fmt"
)

// Demo dataset: 5 products, 5 customers, 33 sales spanning
// 2025-01-05 .. 2025-03-02. Eighteen sales fall in February 2025, one of
// them on the last day of the month with a non-midnight timestamp — the
// row that inclusive date-string ranges lose.

type seedProduct struct {
	sku, name, category string
	priceCents          int64
}

type seedCustomer struct {
	name, email string
}

type seedSale struct {
	productID, customerID, quantity int64
	totalCents                      int64
	saleDate                        string
}

var seedProducts = []seedProduct{
	{"SKU001", "Product A", "Category 1", 1099},
	{"SKU002", "Product B", "Category 1", 2050},
	{"SKU003", "Product C", "Category 2", 1575},
	{"SKU004", "Product D", "Category 3", 3000},
	{"SKU005", "Product E", "Category 4", 2500},
}

var seedCustomers = []seedCustomer{
	{"John Doe", "john@example.com"},
	{"Jane Smith", "jane@example.com"},
	{"Bob Johnson", "bob@example.com"},
	{"Alice Brown", "alice@example.com"},
	{"Charlie Davis", "charlie@example.com"},
}

var seedSales = []seedSale{
	{4, 1, 4, 12000, "2025-01-17 12:22:49"},
	{5, 1, 7, 17500, "2025-01-28 04:04:17"},
	{5, 4, 4, 10000, "2025-02-04 11:58:16"},
	{1, 2, 2, 2198, "2025-01-05 10:30:45"},
	{2, 3, 1, 2050, "2025-01-06 15:15:10"},
	{3, 5, 3, 4725, "2025-01-08 09:45:22"},
	{4, 2, 1, 3000, "2025-01-10 17:22:30"},
	{5, 4, 5, 12500, "2025-01-12 11:00:00"},
	{1, 3, 2, 2198, "2025-01-14 18:25:45"},
	{2, 5, 6, 12300, "2025-01-15 13:12:22"},
	{3, 1, 2, 3150, "2025-01-18 08:10:33"},
	{4, 4, 1, 3000, "2025-01-20 14:05:20"},
	{5, 2, 3, 7500, "2025-01-23 19:30:40"},
	{1, 5, 2, 2198, "2025-01-25 10:45:10"},
	{2, 4, 4, 8200, "2025-01-29 16:20:50"},
	{3, 2, 1, 1575, "2025-02-01 12:00:00"},
	{4, 5, 2, 6000, "2025-02-03 18:40:30"},
	{5, 1, 8, 20000, "2025-02-05 11:25:00"},
	{1, 4, 3, 3297, "2025-02-07 14:50:10"},
	{2, 3, 2, 4100, "2025-02-08 10:20:15"},
	{3, 5, 4, 6300, "2025-02-10 16:45:55"},
	{4, 2, 1, 3000, "2025-02-12 20:30:00"},
	{5, 3, 2, 5000, "2025-02-15 09:10:10"},
	{1, 1, 6, 6594, "2025-02-16 13:35:30"},
	{2, 4, 2, 4100, "2025-02-18 15:00:00"},
	{3, 2, 3, 4725, "2025-02-19 11:30:45"},
	{4, 5, 2, 6000, "2025-02-21 14:10:22"},
	{5, 4, 1, 2500, "2025-02-22 19:45:55"},
	{1, 2, 7, 7693, "2025-02-24 12:10:10"},
	{2, 1, 4, 8200, "2025-02-25 17:30:50"},
	{3, 3, 5, 7875, "2025-02-27 09:55:00"},
	{4, 5, 3, 9000, "2025-02-28 14:25:30"},
	{5, 2, 9, 22500, "2025-03-02 10:00:00"},
}

// SeedDemoData loads the demonstration dataset. It is a no-op when the
// sales table already has rows, so restarts do not duplicate data.
func (db *DB) SeedDemoData(ctx context.Context) error {
	var count int64
	if err := db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&count); err != nil {
		return fmt.Errorf("storage: count sales before seed: %w", err)
	}
	if count > 0 {
		db.logger.Debug("sales table not empty, skipping demo seed", "rows", count)
		return nil
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range seedProducts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (sku, name, category, price_cents) VALUES (?, ?, ?, ?)`,
			p.sku, p.name, p.category, p.priceCents,
		); err != nil {
			return fmt.Errorf("storage: seed product %s: %w", p.sku, err)
		}
	}
	for _, c := range seedCustomers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO customers (name, email) VALUES (?, ?)`,
			c.name, c.email,
		); err != nil {
			return fmt.Errorf("storage: seed customer %s: %w", c.email, err)
		}
	}
	for i, s := range seedSales {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sales (product_id, customer_id, quantity, total_amount_cents, sale_date)
			 VALUES (?, ?, ?, ?, ?)`,
			s.productID, s.customerID, s.quantity, s.totalCents, s.saleDate,
		); err != nil {
			return fmt.Errorf("storage: seed sale %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit seed tx: %w", err)
	}
	db.logger.Info("demo dataset loaded",
		"products", len(seedProducts), "customers", len(seedCustomers), "sales", len(seedSales))
	return nil
}
