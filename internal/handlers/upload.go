package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"profit-matrix/internal/dataset"
	apperrors "profit-matrix/internal/errors"
	"profit-matrix/internal/observability"
	"profit-matrix/internal/profitability"
	"profit-matrix/internal/services"
	"profit-matrix/internal/ui/templates"
)

const (
	uploadField   = "file"
	multipartMem  = 8 << 20
	renderTimeout = 10 * time.Second
)

// analyzeRequest reads a dataset from either a multipart "file" field or the
// raw request body and analyses it on its own.
func analyzeRequest(r *http.Request, reports *services.Reports, opts profitability.Options) (*services.Snapshot, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperrors.BadRequestWrap(err, "Missing or invalid Content-Type")
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMem); err != nil {
			return nil, uploadError(err)
		}
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			return nil, apperrors.BadRequestWrap(err, "Form field \"file\" is required")
		}
		defer file.Close()

		return reports.AnalyzeUpload(r.Context(), header.Filename, file, opts)
	}

	format, ok := bodyFormat(mediaType)
	if !ok {
		return nil, apperrors.BadRequest("Unsupported Content-Type").WithDetails(mediaType)
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "request." + string(format)
	}
	return reports.AnalyzeReader(r.Context(), name, r.Body, format, opts)
}

func bodyFormat(mediaType string) (dataset.Format, bool) {
	switch mediaType {
	case "text/csv", "text/plain", "application/csv":
		return dataset.FormatCSV, true
	case "application/json":
		return dataset.FormatJSON, true
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/octet-stream":
		return dataset.FormatXLSX, true
	default:
		return "", false
	}
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return toAppError(err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.BadRequestWrap(err, "Upload was truncated")
	}
	return apperrors.BadRequestWrap(err, "Invalid multipart form")
}

// PageHandlers render full dashboard pages.
type PageHandlers struct {
	reports        *services.Reports
	logger         *slog.Logger
	ctaURL         string
	maxUploadBytes int64
}

func NewPageHandlers(reports *services.Reports, logger *slog.Logger, ctaURL string, maxUploadBytes int64) *PageHandlers {
	return &PageHandlers{
		reports:        reports,
		logger:         logger,
		ctaURL:         ctaURL,
		maxUploadBytes: maxUploadBytes,
	}
}

// HandleUpload renders the dashboard for an uploaded dataset. The upload is
// not retained and the default report is left alone.
func (h *PageHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	snap, err := analyzeRequest(r, h.reports, h.reports.Options())
	if err != nil {
		apperrors.WriteError(w, h.logger, toAppError(err), observability.GetRequestID(r.Context()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Dashboard(templates.PageData{Snapshot: snap, CTAURL: h.ctaURL}).Render(ctx, w); err != nil {
		h.logger.Error("render upload dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// HandleDashboard renders the live page, which pulls every section from the
// SSE endpoints.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard(templates.PageData{CTAURL: h.ctaURL}).Render(ctx, w); err != nil {
		h.logger.Error("render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
