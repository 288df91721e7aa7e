package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oraculo-ai/oraculo/internal/model"
)

// Stats returns the aggregate snapshot over the whole dataset. Revenue is
// summed in integer cents.
func (db *DB) Stats(ctx context.Context) (model.SalesStats, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var st model.SalesStats
	var first, last sql.NullString
	var revenue sql.NullInt64
	err := db.sql.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sales),
			(SELECT COALESCE(SUM(total_amount_cents), 0) FROM sales),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM customers),
			(SELECT MIN(sale_date) FROM sales),
			(SELECT MAX(sale_date) FROM sales)
	`).Scan(&st.TotalOrders, &revenue, &st.TotalProducts, &st.TotalCustomers, &first, &last)
	if err != nil {
		return model.SalesStats{}, mapErr("stats", err)
	}

	st.TotalRevenue = model.Cents(revenue.Int64)
	if st.TotalOrders > 0 {
		st.AverageOrder = divRound(st.TotalRevenue, st.TotalOrders)
	}
	st.FirstSale = first.String
	st.LastSale = last.String
	return st, nil
}

// Trends aggregates sales into calendar buckets and computes growth of
// the latest bucket over the previous one. bucket is "month" or "day".
func (db *DB) Trends(ctx context.Context, bucket string) (model.TrendAnalysis, error) {
	var pattern string
	switch bucket {
	case "", "month":
		bucket, pattern = "month", "%Y-%m"
	case "day":
		pattern = "%Y-%m-%d"
	default:
		return model.TrendAnalysis{}, fmt.Errorf("storage: trends: unsupported bucket %q", bucket)
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.sql.QueryContext(ctx, `
		SELECT strftime(?, sale_date) AS bucket,
		       COUNT(*),
		       SUM(total_amount_cents)
		FROM sales
		GROUP BY bucket
		ORDER BY bucket
	`, pattern)
	if err != nil {
		return model.TrendAnalysis{}, mapErr("trends", err)
	}
	defer rows.Close()

	analysis := model.TrendAnalysis{BucketKind: bucket}
	for rows.Next() {
		var b model.TrendBucket
		var revenue int64
		if err := rows.Scan(&b.Bucket, &b.Orders, &revenue); err != nil {
			return model.TrendAnalysis{}, mapErr("trends scan", err)
		}
		b.Revenue = model.Cents(revenue)
		if b.Orders > 0 {
			b.AverageOrder = divRound(b.Revenue, b.Orders)
		}
		analysis.Buckets = append(analysis.Buckets, b)
	}
	if err := rows.Err(); err != nil {
		return model.TrendAnalysis{}, mapErr("trends rows", err)
	}

	if n := len(analysis.Buckets); n >= 2 {
		latest, previous := analysis.Buckets[n-1], analysis.Buckets[n-2]
		if previous.Orders > 0 {
			g := (float64(latest.Orders) - float64(previous.Orders)) / float64(previous.Orders) * 100
			analysis.OrderGrowth = &g
		}
		if previous.Revenue > 0 {
			g := (float64(latest.Revenue) - float64(previous.Revenue)) / float64(previous.Revenue) * 100
			analysis.RevenueGrowth = &g
		}
	}
	return analysis, nil
}

// SalesBetween aggregates sales in the half-open interval [start, end).
// Both bounds are bound as parameters in the stored timestamp format;
// the exclusive upper bound is what keeps rows with non-midnight times on
// the boundary day from being dropped.
func (db *DB) SalesBetween(ctx context.Context, start, end time.Time) (model.PeriodSummary, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var sum model.PeriodSummary
	sum.Start, sum.End = start, end

	var items, revenue sql.NullInt64
	var first, last sql.NullString
	err := db.sql.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(quantity),
		       SUM(total_amount_cents),
		       MIN(sale_date),
		       MAX(sale_date)
		FROM sales
		WHERE sale_date >= ? AND sale_date < ?
	`, start.Format(timestampLayout), end.Format(timestampLayout),
	).Scan(&sum.TotalSales, &items, &revenue, &first, &last)
	if err != nil {
		return model.PeriodSummary{}, mapErr("sales between", err)
	}

	sum.TotalItems = items.Int64
	sum.Revenue = model.Cents(revenue.Int64)
	if sum.TotalSales > 0 {
		sum.AverageOrd = divRound(sum.Revenue, sum.TotalSales)
	}
	sum.FirstSale = first.String
	sum.LastSale = last.String
	return sum, nil
}

// TopProducts ranks products by quantity sold since the given time.
func (db *DB) TopProducts(ctx context.Context, limit int, since time.Time) ([]model.ProductRanking, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.sql.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.category, ''), p.price_cents,
		       SUM(s.quantity)            AS total_quantity,
		       SUM(s.total_amount_cents)  AS total_revenue,
		       COUNT(s.id)                AS total_sales
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.sale_date >= ?
		GROUP BY p.id, p.name, p.category, p.price_cents
		ORDER BY total_quantity DESC, p.id
		LIMIT ?
	`, since.Format(timestampLayout), limit)
	if err != nil {
		return nil, mapErr("top products", err)
	}
	defer rows.Close()

	var ranking []model.ProductRanking
	for rows.Next() {
		var r model.ProductRanking
		var price, revenue int64
		if err := rows.Scan(&r.ProductID, &r.Name, &r.Category, &price,
			&r.QuantitySold, &revenue, &r.SalesCount); err != nil {
			return nil, mapErr("top products scan", err)
		}
		r.Price = model.Cents(price)
		r.Revenue = model.Cents(revenue)
		ranking = append(ranking, r)
	}
	return ranking, rows.Err()
}

// Schema introspects user tables: columns, types, and row counts.
// Concurrent calls are deduplicated via singleflight so only one
// introspection runs; all waiters share its result.
func (db *DB) Schema(ctx context.Context) (model.SchemaInfo, error) {
	v, err, _ := db.schemaGroup.Do("schema", func() (any, error) {
		return db.schema(ctx)
	})
	if err != nil {
		return model.SchemaInfo{}, err
	}
	return v.(model.SchemaInfo), nil
}

func (db *DB) schema(ctx context.Context) (model.SchemaInfo, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.sql.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_migrations'
		ORDER BY name
	`)
	if err != nil {
		return model.SchemaInfo{}, mapErr("schema tables", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return model.SchemaInfo{}, mapErr("schema scan", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.SchemaInfo{}, mapErr("schema rows", err)
	}

	var info model.SchemaInfo
	for _, name := range names {
		table := model.TableInfo{Name: name}

		cols, err := db.sql.QueryContext(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?)`, name)
		if err != nil {
			return model.SchemaInfo{}, mapErr("schema columns", err)
		}
		for cols.Next() {
			var c model.ColumnInfo
			var notNull, pk int
			if err := cols.Scan(&c.Name, &c.Type, &notNull, &pk); err != nil {
				cols.Close()
				return model.SchemaInfo{}, mapErr("schema column scan", err)
			}
			c.NotNull = notNull != 0
			c.PrimaryKey = pk != 0
			table.Columns = append(table.Columns, c)
		}
		cols.Close()
		if err := cols.Err(); err != nil {
			return model.SchemaInfo{}, mapErr("schema column rows", err)
		}

		// Table names come from sqlite_master, not caller input.
		if err := db.sql.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %q`, name)).Scan(&table.RowCount); err != nil {
			return model.SchemaInfo{}, mapErr("schema row count", err)
		}

		info.Tables = append(info.Tables, table)
	}
	return info, nil
}

// blockedKeywords are statement kinds that must never reach the database
// through the raw-query path, even nested after a valid SELECT prefix.
var blockedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"TRUNCATE", "REPLACE", "ATTACH", "DETACH", "PRAGMA", "VACUUM",
}

// EnsureSelect validates that a raw statement is a single read. The
// leading keyword must be SELECT — this is the hard boundary — and no
// write/DDL keyword may appear anywhere in the statement. Violations
// return model.ErrUnsafeStatement and the statement is never executed.
func EnsureSelect(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", model.ErrUnsafeStatement)
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return fmt.Errorf("%w: statement must start with SELECT", model.ErrUnsafeStatement)
	}

	// Reject statement batches: a semicolon is only tolerated as a trailer.
	if i := strings.Index(trimmed, ";"); i >= 0 && strings.TrimSpace(trimmed[i+1:]) != "" {
		return fmt.Errorf("%w: multiple statements are not allowed", model.ErrUnsafeStatement)
	}

	for _, kw := range blockedKeywords {
		if containsWord(upper, kw) {
			return fmt.Errorf("%w: statement contains %s", model.ErrUnsafeStatement, kw)
		}
	}
	return nil
}

// containsWord reports whether kw occurs in s delimited by non-identifier
// characters, so column names like "updated_at" do not trip the UPDATE check.
func containsWord(s, kw string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], kw)
		if j < 0 {
			return false
		}
		j += i
		before := j == 0 || !isIdentChar(s[j-1])
		afterIdx := j + len(kw)
		after := afterIdx >= len(s) || !isIdentChar(s[afterIdx])
		if before && after {
			return true
		}
		i = j + len(kw)
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// ExecuteSelect runs a validated raw SELECT and returns up to MaxRows
// rows. When more rows exist the result is clipped and Truncated set, so
// nothing is dropped silently.
func (db *DB) ExecuteSelect(ctx context.Context, query string) (model.QueryResult, error) {
	if err := EnsureSelect(query); err != nil {
		db.logger.Warn("rejected unsafe statement", "error", err)
		return model.QueryResult{}, err
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.sql.QueryContext(ctx, query)
	if err != nil {
		return model.QueryResult{}, mapErr("execute select", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return model.QueryResult{}, mapErr("select columns", err)
	}

	result := model.QueryResult{Columns: cols, Rows: []map[string]any{}}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) >= db.maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.QueryResult{}, mapErr("select scan", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return model.QueryResult{}, mapErr("select rows", err)
	}
	return result, nil
}

// divRound divides cents by a count, rounding half up.
func divRound(total model.Cents, count int64) model.Cents {
	if count == 0 {
		return 0
	}
	return model.Cents((int64(total) + count/2) / count)
}
