package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/oraculo-ai/oraculo/internal/model"
	"github.com/oraculo-ai/oraculo/internal/period"
	"github.com/oraculo-ai/oraculo/internal/storage"
)

// Wire names of the sales tools. These are the identifiers the model
// references; changing one is a breaking change to the advertised catalog.
const (
	ToolQuerySalesData    = "query_sales_data"
	ToolGetDatabaseSchema = "get_database_schema"
	ToolGetSalesStats     = "get_sales_statistics"
	ToolAnalyzeTrends     = "analyze_sales_trends"
	ToolGetSalesByPeriod  = "get_sales_by_period"
)

// schemaNote is appended to schema introspection payloads so the model
// prefers the timestamp-safe period tool over hand-written date ranges.
const schemaNote = "sale_date holds full timestamps (YYYY-MM-DD HH:MM:SS). " +
	"For period filters prefer get_sales_by_period, which uses half-open " +
	"interval bounds; avoid BETWEEN with date strings, it drops rows with " +
	"non-midnight times on the end day."

// NewSalesRegistry builds the full sales tool catalog over the store.
// Registration order is the order advertised to the model.
func NewSalesRegistry(db *storage.DB, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	r.Register(model.ToolDescriptor{
		Name: ToolQuerySalesData,
		Description: "Execute a single SQL SELECT statement against the sales database. " +
			"Only SELECT is allowed; results are capped at " + fmt.Sprint(db.MaxRows()) + " rows.",
		Params: []model.Param{
			{Name: "sql", Type: model.ParamString, Required: true,
				Description: "SQL SELECT statement to execute"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		res, err := db.ExecuteSelect(ctx, argString(args, "sql"))
		if err != nil {
			return "", err
		}
		return marshalPayload(res)
	})

	r.Register(model.ToolDescriptor{
		Name: ToolGetDatabaseSchema,
		Description: "Describe the database schema: tables, columns, types, " +
			"and row counts.",
	}, func(ctx context.Context, args map[string]any) (string, error) {
		info, err := db.Schema(ctx)
		if err != nil {
			return "", err
		}
		return marshalPayload(struct {
			model.SchemaInfo
			Note string `json:"note"`
		}{info, schemaNote})
	})

	r.Register(model.ToolDescriptor{
		Name: ToolGetSalesStats,
		Description: "General sales statistics: order count, total revenue, " +
			"average order value, product and customer counts, date range.",
	}, func(ctx context.Context, args map[string]any) (string, error) {
		stats, err := db.Stats(ctx)
		if err != nil {
			return "", err
		}
		return marshalPayload(stats)
	})

	r.Register(model.ToolDescriptor{
		Name: ToolAnalyzeTrends,
		Description: "Sales aggregated into calendar buckets with growth of " +
			"the latest bucket over the previous one.",
		Params: []model.Param{
			{Name: "bucket", Type: model.ParamString, Required: false,
				Description: "Bucket size (default month)", Enum: []string{"month", "day"}},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		analysis, err := db.Trends(ctx, argString(args, "bucket"))
		if err != nil {
			return "", err
		}
		return marshalPayload(analysis)
	})

	r.Register(model.ToolDescriptor{
		Name: ToolGetSalesByPeriod,
		Description: "Timestamp-safe sales summary for one calendar period. " +
			"Anchor format per granularity: day/week 'YYYY-MM-DD' (any day " +
			"inside the week; weeks start Monday), month 'YYYY-MM', year 'YYYY'.",
		Params: []model.Param{
			{Name: "granularity", Type: model.ParamString, Required: true,
				Description: "Calendar unit of the period",
				Enum:        []string{"day", "week", "month", "year"}},
			{Name: "anchor", Type: model.ParamString, Required: true,
				Description: "Calendar literal identifying the period"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		spec := period.Spec{
			Granularity: period.Granularity(argString(args, "granularity")),
			Anchor:      argString(args, "anchor"),
		}
		iv, err := period.Resolve(spec)
		if err != nil {
			return "", err
		}
		sum, err := db.SalesBetween(ctx, iv.Start, iv.End)
		if err != nil {
			return "", err
		}
		sum.Granularity = string(spec.Granularity)
		sum.Anchor = spec.Anchor
		return marshalPayload(sum)
	})

	return r
}

func marshalPayload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tools: marshal payload: %w", err)
	}
	return string(data), nil
}
