package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"profit-matrix/internal/profitability"
	"profit-matrix/internal/services"
	"profit-matrix/internal/ui/templates"
)

type SSEHandlers struct {
	reports *services.Reports
	logger  *slog.Logger
	ctaURL  string
}

func NewSSEHandlers(reports *services.Reports, logger *slog.Logger, ctaURL string) *SSEHandlers {
	return &SSEHandlers{
		reports: reports,
		logger:  logger,
		ctaURL:  ctaURL,
	}
}

// stream opens the event stream and hands over the default snapshot. When no
// report is loaded yet each of the given sections shows a notice instead.
func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, sections []string, send func(*datastar.ServerSentEventGenerator, *services.Snapshot) error) {
	sse := datastar.NewSSE(w, r)

	snap, err := h.reports.Current()
	if err != nil {
		h.logger.Warn("sse requested before report was ready", "path", r.URL.Path)
		for _, id := range sections {
			if err := sse.PatchElements(templates.NotReady(id)); err != nil {
				h.logger.Error("patch elements", "error", err)
				return
			}
		}
		return
	}

	if err := send(sse, snap); err != nil {
		h.logger.Error("sse update failed", "path", r.URL.Path, "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, r *http.Request, c templ.Component) error {
	html, err := templates.Render(r.Context(), c)
	if err != nil {
		return err
	}
	return sse.PatchElements(html)
}

func (h *SSEHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, []string{templates.SummaryID}, func(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
		return h.patch(sse, r, templates.Summary(snap))
	})
}

func (h *SSEHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, []string{templates.CategoriesID}, func(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
		return h.patch(sse, r, templates.Categories(snap.Report.Categories))
	})
}

func (h *SSEHandlers) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, []string{templates.MatrixID}, func(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
		if err := h.patchMatrixSignals(sse, snap); err != nil {
			return err
		}
		return h.patch(sse, r, templates.Matrix(snap))
	})
}

func (h *SSEHandlers) HandleCritical(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, []string{templates.CriticalID}, func(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
		return h.patch(sse, r, h.critical(snap))
	})
}

func (h *SSEHandlers) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, []string{templates.OpportunitiesID}, func(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
		return h.patch(sse, r, templates.Opportunities(snap.Report.Opportunities))
	})
}

func (h *SSEHandlers) HandleSample(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, []string{templates.SampleID}, func(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
		return h.patch(sse, r, templates.Sample(snap.Report.Sample(profitability.DefaultSampleSize)))
	})
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, templates.SectionIDs, func(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
		for _, c := range []templ.Component{
			templates.Summary(snap),
			templates.Sample(snap.Report.Sample(profitability.DefaultSampleSize)),
			templates.Categories(snap.Report.Categories),
			templates.Matrix(snap),
			h.critical(snap),
			templates.Opportunities(snap.Report.Opportunities),
		} {
			if err := h.patch(sse, r, c); err != nil {
				return err
			}
		}
		// Signals go last so the chart effect sees the rendered container.
		return h.patchMatrixSignals(sse, snap)
	})
}

func (h *SSEHandlers) critical(snap *services.Snapshot) templ.Component {
	return templates.Critical(snap.Report.Critical, snap.Report.Options.MarginThreshold, h.ctaURL)
}

func (h *SSEHandlers) patchMatrixSignals(sse *datastar.ServerSentEventGenerator, snap *services.Snapshot) error {
	jsonData, err := json.Marshal(map[string]any{
		"matrixData": templates.MatrixSignal(snap),
	})
	if err != nil {
		return err
	}
	return sse.PatchSignals(jsonData)
}
