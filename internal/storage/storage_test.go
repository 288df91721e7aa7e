package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraculo-ai/oraculo/internal/model"
	"github.com/oraculo-ai/oraculo/internal/period"
	"github.com/oraculo-ai/oraculo/internal/storage"
	"github.com/oraculo-ai/oraculo/internal/testutil"
	"github.com/oraculo-ai/oraculo/migrations"
)

func TestStats(t *testing.T) {
	db := testutil.NewSeededDB(t)

	st, err := db.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(33), st.TotalOrders)
	assert.Equal(t, int64(5), st.TotalProducts)
	assert.Equal(t, int64(5), st.TotalCustomers)
	assert.Equal(t, "2025-01-05 10:30:45", st.FirstSale)
	assert.Equal(t, "2025-03-02 10:00:00", st.LastSale)
	assert.Positive(t, int64(st.TotalRevenue))
	assert.Positive(t, int64(st.AverageOrder))
}

func TestStatsEmptyStore(t *testing.T) {
	db := testutil.NewEmptyDB(t)

	st, err := db.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.TotalOrders)
	assert.Zero(t, st.TotalRevenue)
	assert.Zero(t, st.AverageOrder)
	assert.Empty(t, st.FirstSale)
}

// The canonical regression: February 2025 contains 18 sales, one of them
// timestamped 2025-02-28 14:25:30. An inclusive date-string range ending
// at '2025-02-28' would lose that row and report 17.
func TestSalesBetweenHalfOpenBoundary(t *testing.T) {
	db := testutil.NewSeededDB(t)

	iv, err := period.Resolve(period.Spec{Granularity: period.Month, Anchor: "2025-02"})
	require.NoError(t, err)

	sum, err := db.SalesBetween(context.Background(), iv.Start, iv.End)
	require.NoError(t, err)

	assert.Equal(t, int64(18), sum.TotalSales)
	assert.Equal(t, "2025-02-01 12:00:00", sum.FirstSale)
	assert.Equal(t, "2025-02-28 14:25:30", sum.LastSale)

	// The inclusive-string-range rendition of the same query undercounts.
	res, err := db.ExecuteSelect(context.Background(),
		`SELECT COUNT(*) AS n FROM sales WHERE sale_date BETWEEN '2025-02-01' AND '2025-02-28'`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 17, res.Rows[0]["n"])
}

func TestSalesBetweenExcludesEnd(t *testing.T) {
	db := testutil.NewSeededDB(t)

	// Day interval for March 2: [2025-03-02, 2025-03-03). The sole March
	// sale is at 10:00:00 that day.
	iv, err := period.Resolve(period.Spec{Granularity: period.Day, Anchor: "2025-03-02"})
	require.NoError(t, err)
	sum, err := db.SalesBetween(context.Background(), iv.Start, iv.End)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.TotalSales)

	// A timestamp exactly at the exclusive end is not counted: the
	// March 3 day interval is empty.
	next, err := period.Resolve(period.Spec{Granularity: period.Day, Anchor: "2025-03-03"})
	require.NoError(t, err)
	empty, err := db.SalesBetween(context.Background(), next.Start, next.End)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalSales)
}

func TestSalesBetweenIdempotent(t *testing.T) {
	db := testutil.NewSeededDB(t)
	iv, err := period.Resolve(period.Spec{Granularity: period.Week, Anchor: "2025-02-24"})
	require.NoError(t, err)

	first, err := db.SalesBetween(context.Background(), iv.Start, iv.End)
	require.NoError(t, err)
	second, err := db.SalesBetween(context.Background(), iv.Start, iv.End)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// Statistics totals must equal the sum over all month buckets.
func TestStatsTrendsRoundTrip(t *testing.T) {
	db := testutil.NewSeededDB(t)
	ctx := context.Background()

	st, err := db.Stats(ctx)
	require.NoError(t, err)
	tr, err := db.Trends(ctx, "month")
	require.NoError(t, err)

	var orders int64
	var revenue model.Cents
	for _, b := range tr.Buckets {
		orders += b.Orders
		revenue += b.Revenue
	}
	assert.Equal(t, st.TotalOrders, orders)
	assert.Equal(t, st.TotalRevenue, revenue)
}

func TestTrendsMonthly(t *testing.T) {
	db := testutil.NewSeededDB(t)

	tr, err := db.Trends(context.Background(), "month")
	require.NoError(t, err)

	require.Len(t, tr.Buckets, 3)
	assert.Equal(t, "2025-01", tr.Buckets[0].Bucket)
	assert.Equal(t, "2025-02", tr.Buckets[1].Bucket)
	assert.Equal(t, "2025-03", tr.Buckets[2].Bucket)
	assert.Equal(t, int64(14), tr.Buckets[0].Orders)
	assert.Equal(t, int64(18), tr.Buckets[1].Orders)
	assert.Equal(t, int64(1), tr.Buckets[2].Orders)
	require.NotNil(t, tr.OrderGrowth)
	require.NotNil(t, tr.RevenueGrowth)
}

func TestTrendsUnsupportedBucket(t *testing.T) {
	db := testutil.NewSeededDB(t)
	_, err := db.Trends(context.Background(), "quarter")
	require.Error(t, err)
}

func TestTopProducts(t *testing.T) {
	db := testutil.NewSeededDB(t)

	since := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	ranking, err := db.TopProducts(context.Background(), 3, since)
	require.NoError(t, err)

	require.Len(t, ranking, 3)
	// Product E (id 5) sold 39 units, the most by a wide margin.
	assert.Equal(t, "Product E", ranking[0].Name)
	assert.Equal(t, int64(39), ranking[0].QuantitySold)
	for i := 1; i < len(ranking); i++ {
		assert.GreaterOrEqual(t, ranking[i-1].QuantitySold, ranking[i].QuantitySold)
	}
}

func TestSchema(t *testing.T) {
	db := testutil.NewSeededDB(t)

	info, err := db.Schema(context.Background())
	require.NoError(t, err)

	names := make(map[string]int64)
	for _, tbl := range info.Tables {
		names[tbl.Name] = tbl.RowCount
		assert.NotEmpty(t, tbl.Columns)
	}
	assert.Equal(t, int64(5), names["products"])
	assert.Equal(t, int64(5), names["customers"])
	assert.Equal(t, int64(33), names["sales"])
	_, tracked := names["schema_migrations"]
	assert.False(t, tracked, "bookkeeping table is not advertised")
}

func TestEnsureSelect(t *testing.T) {
	tests := []struct {
		name  string
		query string
		safe  bool
	}{
		{"plain select", "SELECT * FROM sales", true},
		{"lowercase select", "select id from products limit 5", true},
		{"leading whitespace", "   \n\tSELECT 1", true},
		{"trailing semicolon", "SELECT 1;", true},
		{"column named updated_at", "SELECT updated_at FROM sales", true},
		{"empty", "   ", false},
		{"delete", "DELETE FROM sales", false},
		{"insert", "INSERT INTO sales VALUES (1)", false},
		{"drop", "DROP TABLE sales", false},
		{"pragma", "PRAGMA table_info(sales)", false},
		{"nested write after select", "SELECT 1; DELETE FROM sales", false},
		{"select wrapping drop", "SELECT * FROM sales WHERE 1=1; DROP TABLE sales", false},
		{"cte", "WITH x AS (SELECT 1) SELECT * FROM x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storage.EnsureSelect(tt.query)
			if tt.safe {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, model.ErrUnsafeStatement), "got %v", err)
			}
		})
	}
}

func TestExecuteSelectRejectsWriteAndLeavesStoreUnchanged(t *testing.T) {
	db := testutil.NewSeededDB(t)
	ctx := context.Background()

	_, err := db.ExecuteSelect(ctx, "DELETE FROM sales")
	require.ErrorIs(t, err, model.ErrUnsafeStatement)

	st, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(33), st.TotalOrders)
}

func TestExecuteSelectTruncation(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, ":memory:", testutil.TestLogger(t), storage.Options{MaxRows: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(ctx, migrations.FS))
	require.NoError(t, db.SeedDemoData(ctx))

	res, err := db.ExecuteSelect(ctx, "SELECT id FROM sales ORDER BY id")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 10)
	assert.True(t, res.Truncated)

	small, err := db.ExecuteSelect(ctx, "SELECT id FROM products")
	require.NoError(t, err)
	assert.Len(t, small.Rows, 5)
	assert.False(t, small.Truncated)
}

func TestSeedDemoDataIdempotent(t *testing.T) {
	db := testutil.NewSeededDB(t)
	ctx := context.Background()

	require.NoError(t, db.SeedDemoData(ctx))
	st, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(33), st.TotalOrders)
}
