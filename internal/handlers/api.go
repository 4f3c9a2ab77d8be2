package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	apperrors "profit-matrix/internal/errors"
	"profit-matrix/internal/models"
	"profit-matrix/internal/observability"
	"profit-matrix/internal/profitability"
	"profit-matrix/internal/services"
)

const cacheMaxAge = "public, max-age=300"

type APIHandlers struct {
	reports        *services.Reports
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewAPIHandlers(reports *services.Reports, logger *slog.Logger, maxUploadBytes int64) *APIHandlers {
	return &APIHandlers{
		reports:        reports,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.WriteError(w, h.logger, toAppError(err), observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) current(w http.ResponseWriter, r *http.Request) (*services.Snapshot, bool) {
	snap, err := h.reports.Current()
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return snap, true
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w, r)
	if !ok {
		return
	}

	apperrors.WriteSuccessWithHeaders(w, snap, map[string]string{"Cache-Control": cacheMaxAge})
}

type summaryResponse struct {
	SnapshotID  string            `json:"snapshot_id"`
	Source      services.Source   `json:"source"`
	GeneratedAt time.Time         `json:"generated_at"`
	Totals      models.Totals     `json:"totals"`
	Thresholds  models.Thresholds `json:"thresholds"`
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w, r)
	if !ok {
		return
	}

	apperrors.WriteSuccessWithHeaders(w, summaryResponse{
		SnapshotID:  snap.ID,
		Source:      snap.Source,
		GeneratedAt: snap.GeneratedAt,
		Totals:      snap.Report.Totals,
		Thresholds:  snap.Report.Thresholds,
	}, map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleItems(w http.ResponseWriter, r *http.Request) {
	q, err := parseItemsQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snap, ok := h.current(w, r)
	if !ok {
		return
	}

	items := snap.Report.Items
	if q.Quadrant != "" {
		items = snap.Report.ByQuadrant(models.Quadrant(q.Quadrant))
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	apperrors.WriteSuccessWithHeaders(w, items, map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	q, err := parseCategoriesQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snap, ok := h.current(w, r)
	if !ok {
		return
	}

	categories := snap.Report.Categories
	if q.Sort != "" || q.Order != "" {
		order := snap.Report.Options.CategoryOrder
		if q.Sort != "" {
			order.Key = profitability.SortKey(q.Sort)
		}
		if q.Order != "" {
			order.Descending = q.Order == "desc"
		}
		categories = slices.Clone(categories)
		profitability.SortCategories(categories, order)
	}

	apperrors.WriteSuccessWithHeaders(w, categories, map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleCritical(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w, r)
	if !ok {
		return
	}
	q, err := parseCriticalQuery(r, snap.Report.Options)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := profitability.LowestMargins(snap.Report.Items, q.Threshold, q.Limit)
	apperrors.WriteSuccessWithHeaders(w, items, map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w, r)
	if !ok {
		return
	}
	q, err := parseLimitQuery(r, snap.Report.Options.OpportunityLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := profitability.Opportunities(snap.Report.Items, snap.Report.Thresholds, q.Limit)
	apperrors.WriteSuccessWithHeaders(w, items, map[string]string{"Cache-Control": cacheMaxAge})
}

// HandleAnalyze classifies an uploaded dataset without storing it.
func (h *APIHandlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	opts, err := parseAnalyzeQuery(r, h.reports.Options())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	snap, err := analyzeRequest(r, h.reports, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	observability.FromContext(r.Context(), h.logger).Info("upload analysed",
		"snapshot_id", snap.ID,
		"name", snap.Name,
		"items", snap.Report.Totals.Items,
		"dropped", snap.DroppedRows,
	)
	apperrors.WriteSuccessWithHeaders(w, snap, map[string]string{"Cache-Control": "no-store"})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if _, err := h.reports.Current(); errors.Is(err, services.ErrNoReport) {
		status = "starting"
	}

	healthData := map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	apperrors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, h.reports.Stats())
}
