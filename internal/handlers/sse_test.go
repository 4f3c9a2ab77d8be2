package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profit-matrix/internal/profitability"
	"profit-matrix/internal/services"
	"profit-matrix/internal/ui/templates"
)

const testCTA = "https://example.com/contact"

func TestNewSSEHandlers(t *testing.T) {
	reports := createTestReports(t)
	logger := testLogger()

	handlers := NewSSEHandlers(reports, logger, testCTA)

	require.NotNil(t, handlers)
	assert.Same(t, reports, handlers.reports)
	assert.Same(t, logger, handlers.logger)
	assert.Equal(t, testCTA, handlers.ctaURL)
}

func TestSSEHandlers_Endpoints(t *testing.T) {
	handlers := NewSSEHandlers(createTestReports(t), testLogger(), testCTA)

	tests := []struct {
		name    string
		path    string
		handler http.HandlerFunc
		want    []string
	}{
		{
			name:    "summary",
			path:    "/sse/summary",
			handler: handlers.HandleSummary,
			want:    []string{"summary-content", "$650.00", "$140.00"},
		},
		{
			name:    "sample",
			path:    "/sse/sample",
			handler: handlers.HandleSample,
			want:    []string{"sample-content", "Unit price", "$100.00", "$75.00"},
		},
		{
			name:    "categories",
			path:    "/sse/categories",
			handler: handlers.HandleCategories,
			want:    []string{"categories-content", "<table", "category-badge"},
		},
		{
			name:    "matrix",
			path:    "/sse/matrix",
			handler: handlers.HandleMatrix,
			want:    []string{"matrix-content", "matrixData", "ESTRELLA", "NICHO"},
		},
		{
			name:    "critical",
			path:    "/sse/critical",
			handler: handlers.HandleCritical,
			want:    []string{"critical-content", testCTA, "redacted"},
		},
		{
			name:    "opportunities",
			path:    "/sse/opportunities",
			handler: handlers.HandleOpportunities,
			want:    []string{"opportunities-content", "<table"},
		},
		{
			name:    "refresh all",
			path:    "/sse/refresh-all",
			handler: handlers.HandleRefreshAll,
			want: []string{
				"summary-content", "sample-content", "categories-content", "matrix-content",
				"critical-content", "opportunities-content", "matrixData",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			// DataStar sets the event-stream headers.
			assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
			assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

			body := w.Body.String()
			for _, s := range tt.want {
				assert.Contains(t, body, s)
			}
		})
	}
}

func TestSSEHandlers_HandleCritical_RedactsIdentifiers(t *testing.T) {
	reports := services.NewReports(profitability.DefaultOptions(), nil, testLogger())
	require.NoError(t, reports.LoadDemo(t.Context(), 7, 60))
	snap, err := reports.Current()
	require.NoError(t, err)
	if len(snap.Report.Critical) == 0 {
		t.Skip("demo seed produced no critical items")
	}

	handlers := NewSSEHandlers(reports, testLogger(), testCTA)
	w := httptest.NewRecorder()
	handlers.HandleCritical(w, httptest.NewRequest(http.MethodGet, "/sse/critical", nil))

	body := w.Body.String()
	for _, item := range snap.Report.Critical {
		assert.NotContains(t, body, "<code>"+item.ID+"</code>", "critical table leaked identifier")
	}
	assert.Contains(t, body, "***")
}

func TestSSEHandlers_NoReport(t *testing.T) {
	reports := services.NewReports(profitability.DefaultOptions(), nil, testLogger())
	handlers := NewSSEHandlers(reports, testLogger(), testCTA)

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, httptest.NewRequest(http.MethodGet, "/sse/refresh-all", nil))

	body := w.Body.String()
	for _, id := range templates.SectionIDs {
		assert.Contains(t, body, `id="`+id+`" class="not-ready"`)
	}
	assert.NotContains(t, body, "matrixData", "no signals should be sent without a report")
}

func TestSSEHandlers_NoReport_TargetsOwnSection(t *testing.T) {
	handlers := NewSSEHandlers(services.NewReports(profitability.DefaultOptions(), nil, testLogger()), testLogger(), testCTA)

	tests := []struct {
		path    string
		handler http.HandlerFunc
		section string
	}{
		{"/sse/summary", handlers.HandleSummary, templates.SummaryID},
		{"/sse/sample", handlers.HandleSample, templates.SampleID},
		{"/sse/categories", handlers.HandleCategories, templates.CategoriesID},
		{"/sse/matrix", handlers.HandleMatrix, templates.MatrixID},
		{"/sse/critical", handlers.HandleCritical, templates.CriticalID},
		{"/sse/opportunities", handlers.HandleOpportunities, templates.OpportunitiesID},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			body := w.Body.String()
			assert.Contains(t, body, `id="`+tt.section+`"`)
			assert.Contains(t, body, "not ready")
			assert.Equal(t, 1, strings.Count(body, "not-ready"))
		})
	}
}
