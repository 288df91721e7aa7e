package model

import "time"

// Cents is a monetary amount in integer hundredths of the currency unit.
// Aggregation is done exclusively in cents; floating point appears only
// at render time.
type Cents int64

// Float returns the amount in currency units for display purposes.
func (c Cents) Float() float64 { return float64(c) / 100 }

// Product is one catalog item.
type Product struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    Cents  `json:"price_cents"`
}

// Customer is one buyer.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Sale is one sales transaction. SaleDate always carries a full
// time-of-day component; nothing in the system may treat it as a pure date.
type Sale struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	CustomerID int64     `json:"customer_id"`
	Quantity   int64     `json:"quantity"`
	Total      Cents     `json:"total_amount_cents"`
	SaleDate   time.Time `json:"sale_date"`
}

// SalesStats is the aggregate snapshot returned by the statistics query.
type SalesStats struct {
	TotalOrders    int64  `json:"total_orders"`
	TotalRevenue   Cents  `json:"total_revenue_cents"`
	AverageOrder   Cents  `json:"average_order_cents"`
	TotalProducts  int64  `json:"total_products"`
	TotalCustomers int64  `json:"total_customers"`
	FirstSale      string `json:"first_sale,omitempty"`
	LastSale       string `json:"last_sale,omitempty"`
}

// TrendBucket is one time bucket in the trend analysis.
type TrendBucket struct {
	Bucket       string `json:"bucket"` // e.g. "2025-02" for monthly buckets
	Orders       int64  `json:"orders"`
	Revenue      Cents  `json:"revenue_cents"`
	AverageOrder Cents  `json:"average_order_cents"`
}

// TrendAnalysis is the full trend report: per-bucket figures plus growth
// of the latest bucket over the previous one, when at least two exist.
type TrendAnalysis struct {
	BucketKind    string        `json:"bucket_kind"` // "month" or "day"
	Buckets       []TrendBucket `json:"buckets"`
	OrderGrowth   *float64      `json:"order_growth_pct,omitempty"`
	RevenueGrowth *float64      `json:"revenue_growth_pct,omitempty"`
}

// PeriodSummary is the aggregate for one resolved period.
type PeriodSummary struct {
	Granularity string    `json:"granularity"`
	Anchor      string    `json:"anchor"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"` // exclusive
	TotalSales  int64     `json:"total_sales"`
	TotalItems  int64     `json:"total_items"`
	Revenue     Cents     `json:"revenue_cents"`
	AverageOrd  Cents     `json:"average_order_cents"`
	FirstSale   string    `json:"first_sale,omitempty"`
	LastSale    string    `json:"last_sale,omitempty"`
}

// ProductRanking is one row of the top-products ranking.
type ProductRanking struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"product_name"`
	Category     string `json:"category"`
	Price        Cents  `json:"price_cents"`
	QuantitySold int64  `json:"total_quantity_sold"`
	Revenue      Cents  `json:"total_revenue_cents"`
	SalesCount   int64  `json:"total_number_of_sales"`
}

// QueryResult holds rows from a restricted raw SELECT. Rows beyond the
// executor's cap are dropped and Truncated is set, so callers can tell a
// short result from a clipped one.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated"`
}

// SchemaInfo describes the database schema for the introspection tool.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo is one table's structure and row count.
type TableInfo struct {
	Name     string       `json:"name"`
	Columns  []ColumnInfo `json:"columns"`
	RowCount int64        `json:"row_count"`
}

// ColumnInfo is one column in a table.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}
