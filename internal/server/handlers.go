package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oraculo-ai/oraculo/internal/format"
	"github.com/oraculo-ai/oraculo/internal/model"
	"github.com/oraculo-ai/oraculo/internal/storage"
	"github.com/oraculo-ai/oraculo/internal/telemetry"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db            *storage.DB
	answerer      Answerer
	formatter     *format.Formatter
	metrics       *telemetry.Metrics
	logger        *slog.Logger
	startedAt     time.Time
	version       string
	modelName     string
	defaultLocale string
	topDefault    int
	topMax        int
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Metrics.
type HandlersDeps struct {
	DB                 *storage.DB
	Answerer           Answerer
	Formatter          *format.Formatter
	Metrics            *telemetry.Metrics
	Logger             *slog.Logger
	Version            string
	ModelName          string
	DefaultLocale      string
	TopProductsDefault int
	TopProductsMax     int
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:            d.DB,
		answerer:      d.Answerer,
		formatter:     d.Formatter,
		metrics:       d.Metrics,
		logger:        d.Logger,
		startedAt:     time.Now(),
		version:       d.Version,
		modelName:     d.ModelName,
		defaultLocale: d.DefaultLocale,
		topDefault:    d.TopProductsDefault,
		topMax:        d.TopProductsMax,
	}
}

// HandleSalesInsights handles GET /sales-insights.
// The question rides in the "question" query parameter; "locale"
// optionally overrides the configured answer locale.
func (h *Handlers) HandleSalesInsights(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	q := model.NewQuestion(r.URL.Query().Get("question"), time.Now())
	if q.Empty() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "question parameter is required")
		return
	}

	start := time.Now()
	outcome := h.answerer.Answer(r.Context(), q)
	if h.metrics != nil {
		h.metrics.RecordQuestion(r.Context(), string(outcome.Kind), len(outcome.ToolsUsed), time.Since(start))
	}

	answer := h.formatter.Render(locale, q, outcome)

	status := http.StatusOK
	switch outcome.Kind {
	case model.OutcomeRefused:
		status = http.StatusBadRequest
	case model.OutcomeFailed:
		status = http.StatusInternalServerError
		h.logger.Error("question failed",
			"question", q.Text,
			"cause", outcome.Cause,
			"partial", outcome.Partial,
			"request_id", RequestIDFromContext(r.Context()),
		)
	}
	writeJSON(w, r, status, answer)
}

// topProductsResponse is the payload of GET /top-products.
type topProductsResponse struct {
	Products []topProduct `json:"products"`
	Limit    int          `json:"limit"`
	Period   string       `json:"period"`
}

type topProduct struct {
	model.ProductRanking
	RevenueDisplay string `json:"revenue_display"`
}

// HandleTopProducts handles GET /top-products.
func (h *Handlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")

	limit := h.topDefault
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > h.topMax {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				"limit must be an integer between 1 and "+strconv.Itoa(h.topMax))
			return
		}
		limit = n
	}

	rankings, err := h.db.TopProducts(r.Context(), limit, time.Time{})
	if err != nil {
		h.logger.Error("top products query failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, "failed to rank products")
		return
	}

	resp := topProductsResponse{
		Products: make([]topProduct, 0, len(rankings)),
		Limit:    limit,
		Period:   "all_time",
	}
	for _, ranking := range rankings {
		resp.Products = append(resp.Products, topProduct{
			ProductRanking: ranking,
			RevenueDisplay: h.formatter.Money(locale, ranking.Revenue),
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleStats handles GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, "failed to compute statistics")
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// healthResponse is the payload of GET /health.
type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Model    string `json:"model"`
	Uptime   int64  `json:"uptime_seconds"`
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, healthResponse{
		Status:   status,
		Version:  h.version,
		Database: dbStatus,
		Model:    h.modelName,
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	})
}

// rootResponse is the payload of GET /.
type rootResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Model     string            `json:"model"`
	Locale    string            `json:"locale"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleRoot handles GET / with service metadata.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, rootResponse{
		Service: "oraculo",
		Version: h.version,
		Model:   h.modelName,
		Locale:  h.defaultLocale,
		Endpoints: map[string]string{
			"sales_insights": "/sales-insights?question=",
			"top_products":   "/top-products?limit=",
			"stats":          "/stats",
			"health":         "/health",
			"mcp":            "/mcp",
		},
	})
}
