package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profit-matrix/internal/config"
	"profit-matrix/internal/middleware"
	"profit-matrix/internal/models"
	"profit-matrix/internal/observability"
	"profit-matrix/internal/profitability"
	"profit-matrix/internal/services"
	"profit-matrix/internal/ui/templates"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{MaxUploadBytes: 1 << 20},
		Dataset: config.DatasetConfig{
			DemoRows: 40,
			DemoSeed: 11,
			Timeout:  5 * time.Second,
		},
		Report: config.ReportConfig{
			MarginThreshold:  15,
			CriticalLimit:    5,
			OpportunityLimit: 10,
			CategorySort:     "margin_percent",
		},
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8084"},
			TrustedProxies: []string{"127.0.0.1"},
		},
		CTAURL: "https://example.com/contact",
	}
}

func newTestHandler(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := testConfig()
	metrics := observability.NewMetrics()

	reports := services.NewReports(reportOptions(cfg.Report), metrics, logger)
	require.NoError(t, loadDefaultReport(cfg.Dataset, reports, logger))
	return newHandler(cfg, reports, metrics, middleware.NewRateLimiter(cfg.Security), logger), metrics
}

func TestReportOptions(t *testing.T) {
	cfg := config.ReportConfig{
		MarginThreshold:  20,
		CriticalLimit:    3,
		OpportunityLimit: 7,
		CategorySort:     "sales",
		CategoryDesc:     true,
	}

	opts := reportOptions(cfg)
	require.NoError(t, opts.Validate())
	assert.Equal(t, profitability.Options{
		MarginThreshold:  20,
		CriticalLimit:    3,
		OpportunityLimit: 7,
		CategoryOrder:    profitability.CategoryOrder{Key: profitability.SortBySales, Descending: true},
	}, opts)
}

func TestLoadDefaultReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ventas.csv")
	csv := "SKU,CATEGORIA,CANTIDAD,DOLARES,COSTO\nA1,X,1,100,60\nB2,X,2,200,150\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	cfg := testConfig().Dataset
	cfg.File = path
	reports := services.NewReports(profitability.DefaultOptions(), nil, nil)
	require.NoError(t, loadDefaultReport(cfg, reports, slog.Default()))

	snap, err := reports.Current()
	require.NoError(t, err)
	assert.Equal(t, services.SourceFile, snap.Source)
	assert.Equal(t, 2, snap.Report.Totals.Items)
}

func TestLoadDefaultReport_MissingFile(t *testing.T) {
	cfg := testConfig().Dataset
	cfg.File = filepath.Join(t.TempDir(), "missing.csv")

	reports := services.NewReports(profitability.DefaultOptions(), nil, nil)
	assert.Error(t, loadDefaultReport(cfg, reports, slog.Default()))
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/api/report", http.StatusOK, "application/json"},
		{"/api/summary", http.StatusOK, "application/json"},
		{"/api/items?quadrant=STAR", http.StatusOK, "application/json"},
		{"/api/categories?sort=sales&order=desc", http.StatusOK, "application/json"},
		{"/api/critical", http.StatusOK, "application/json"},
		{"/api/opportunities", http.StatusOK, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/metrics", http.StatusOK, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

			if tt.contentType == "application/json" {
				var result any
				assert.NoError(t, json.NewDecoder(w.Body).Decode(&result), "invalid json")
			}
		})
	}
}

// Test JSON API responses
func TestServer_JSONResponse(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/items", nil)
	handler.ServeHTTP(w, r)

	var response struct {
		Success bool                    `json:"success"`
		Data    []models.ClassifiedItem `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	require.Len(t, response.Data, 40)

	counts := make(map[models.Quadrant]int)
	for i, item := range response.Data {
		assert.Equal(t, i, item.Row)
		assert.NotEmpty(t, item.ID)
		assert.NotEmpty(t, item.Category)
		assert.InDelta(t, item.Sales/item.Quantity, item.UnitPrice, 1e-9)
		counts[item.Quadrant]++
	}
	total := 0
	for _, q := range models.Quadrants {
		total += counts[q]
	}
	assert.Equal(t, len(response.Data), total)
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	handler, _ := newTestHandler(t)

	sseRoutes := []string{
		"/sse/summary",
		"/sse/sample",
		"/sse/categories",
		"/sse/matrix",
		"/sse/critical",
		"/sse/opportunities",
		"/sse/refresh-all",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			handler.ServeHTTP(w, r)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
			assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
		})
	}
}

func TestServer_Analyze(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := "sku;categoria;cantidad;ventas;costo\nA1;X;1;100,50;60\nB2;Y;2;1.200,00;150\n"
	r := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(body))
	r.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data services.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.InDelta(t, 1300.5, response.Data.Report.Totals.TotalSales, 1e-9)
}

// Test health endpoint
func TestServer_HandleHealth(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Equal(t, "healthy", response.Data["status"])
	assert.Contains(t, response.Data, "timestamp")
}

// Test error handling for invalid methods
func TestServer_ErrorHandling(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/report", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"GET", "/api/analyze", http.StatusMethodNotAllowed},
		{"GET", "/upload", http.StatusMethodNotAllowed},
		{"GET", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestServer_MetricsCountRequests(t *testing.T) {
	handler, _ := newTestHandler(t)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/summary", nil))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body := w.Body.String()
	for _, s := range []string{
		`http_requests_total{method="GET",route="GET /api/summary",status="200"} 1`,
		`profit_reports_generated_total{source="demo"} 1`,
		"profit_items_classified_total",
	} {
		assert.Contains(t, body, s)
	}
}

// Test dashboard template rendering
func TestDashboardTemplate(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, templates.Title)

	for _, component := range []string{
		"Portfolio Summary",
		"Dataset Sample",
		"1. Profitability by Category",
		"2. Impact Matrix: Margin vs. Sales",
		"Critical Items",
		"3. Opportunity Detail (Niches)",
	} {
		assert.Contains(t, body, component)
	}
}
