package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"profit-matrix/internal/handlers"
	"profit-matrix/internal/observability"
	"profit-matrix/internal/services"
)

// Options carries the request-facing settings the handlers need.
type Options struct {
	CTAURL         string
	MaxUploadBytes int64
}

type Server struct {
	reports      *services.Reports
	metrics      *observability.Metrics
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
}

func NewServer(reports *services.Reports, metrics *observability.Metrics, logger *slog.Logger, opts Options) *Server {
	s := &Server{
		reports:      reports,
		metrics:      metrics,
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(reports, logger, opts.MaxUploadBytes),
		sseHandlers:  handlers.NewSSEHandlers(reports, logger, opts.CTAURL),
		pageHandlers: handlers.NewPageHandlers(reports, logger, opts.CTAURL, opts.MaxUploadBytes),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("POST /upload", s.pageHandlers.HandleUpload)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/report", s.apiHandlers.HandleReport)
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/items", s.apiHandlers.HandleItems)
	s.mux.HandleFunc("GET /api/categories", s.apiHandlers.HandleCategories)
	s.mux.HandleFunc("GET /api/critical", s.apiHandlers.HandleCritical)
	s.mux.HandleFunc("GET /api/opportunities", s.apiHandlers.HandleOpportunities)
	s.mux.HandleFunc("POST /api/analyze", s.apiHandlers.HandleAnalyze)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/summary", s.sseHandlers.HandleSummary)
	s.mux.HandleFunc("GET /sse/sample", s.sseHandlers.HandleSample)
	s.mux.HandleFunc("GET /sse/categories", s.sseHandlers.HandleCategories)
	s.mux.HandleFunc("GET /sse/matrix", s.sseHandlers.HandleMatrix)
	s.mux.HandleFunc("GET /sse/critical", s.sseHandlers.HandleCritical)
	s.mux.HandleFunc("GET /sse/opportunities", s.sseHandlers.HandleOpportunities)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
