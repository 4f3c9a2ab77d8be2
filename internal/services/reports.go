package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"profit-matrix/internal/dataset"
	"profit-matrix/internal/models"
	"profit-matrix/internal/observability"
	"profit-matrix/internal/profitability"
)

// ErrNoReport is returned before the default dataset has been loaded.
var ErrNoReport = errors.New("no report loaded")

type Source string

const (
	SourceFile   Source = "file"
	SourceDemo   Source = "demo"
	SourceUpload Source = "upload"
	SourceItems  Source = "items"
)

// Snapshot is an immutable report plus where it came from. Nothing in a
// snapshot is shared with any other snapshot.
type Snapshot struct {
	ID          string                `json:"id"`
	Source      Source                `json:"source"`
	Name        string                `json:"name,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
	DroppedRows int                   `json:"dropped_rows"`
	Report      *profitability.Report `json:"report"`
}

// Reports owns the default snapshot served by the dashboard. Uploads are
// analysed into their own snapshots and never replace it.
type Reports struct {
	mu      sync.RWMutex
	current *Snapshot
	opts    profitability.Options
	loader  *dataset.Loader
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewReports(opts profitability.Options, metrics *observability.Metrics, logger *slog.Logger) *Reports {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reports{
		opts:    opts,
		loader:  dataset.NewLoader(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Reports) Options() profitability.Options {
	return s.opts
}

func (s *Reports) LoadFromFile(ctx context.Context, path string) error {
	start := time.Now()
	s.logger.Info("loading dataset", "path", path)

	res, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	snap, err := s.analyze(ctx, SourceFile, filepath.Base(path), res.Items, res.Dropped, s.opts)
	if err != nil {
		return err
	}
	s.replace(snap)

	s.logger.Info("dataset analysed",
		"path", path,
		"items", len(res.Items),
		"dropped", res.Dropped,
		"duration", time.Since(start),
	)
	return nil
}

func (s *Reports) LoadDemo(ctx context.Context, seed uint64, rows int) error {
	snap, err := s.analyze(ctx, SourceDemo, fmt.Sprintf("demo-%d", seed), dataset.Demo(seed, rows), 0, s.opts)
	if err != nil {
		return err
	}
	s.replace(snap)

	s.logger.Info("demo dataset generated", "seed", seed, "items", rows)
	return nil
}

// SetItems replaces the default snapshot with an analysis of items.
func (s *Reports) SetItems(items []models.Item) error {
	snap, err := s.analyze(context.Background(), SourceItems, "", items, 0, s.opts)
	if err != nil {
		return err
	}
	s.replace(snap)
	return nil
}

func (s *Reports) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNoReport
	}
	return s.current, nil
}

// AnalyzeUpload parses an uploaded file and analyses it on its own. The
// format comes from the file name.
func (s *Reports) AnalyzeUpload(ctx context.Context, name string, r io.Reader, opts profitability.Options) (*Snapshot, error) {
	format, err := dataset.FormatFromName(name)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeReader(ctx, name, r, format, opts)
}

func (s *Reports) AnalyzeReader(ctx context.Context, name string, r io.Reader, format dataset.Format, opts profitability.Options) (*Snapshot, error) {
	res, err := s.loader.Load(ctx, r, format)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, SourceUpload, name, res.Items, res.Dropped, opts)
}

func (s *Reports) analyze(ctx context.Context, source Source, name string, items []models.Item, dropped int, opts profitability.Options) (*Snapshot, error) {
	_, span := observability.StartSpan(ctx, "profitability.analyze", trace.WithAttributes(
		attribute.String("source", string(source)),
		attribute.Int("items", len(items)),
	))
	defer span.End()

	report, err := profitability.Analyze(items, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("toxic_count", report.Totals.ToxicCount))

	if s.metrics != nil {
		s.metrics.Reports.WithLabelValues(string(source)).Inc()
		s.metrics.RowsDropped.Add(float64(dropped))
		for q, n := range report.Totals.QuadrantCounts {
			s.metrics.ItemsClassified.WithLabelValues(string(q)).Add(float64(n))
		}
	}

	return &Snapshot{
		ID:          uuid.NewString(),
		Source:      source,
		Name:        name,
		GeneratedAt: time.Now().UTC(),
		DroppedRows: dropped,
		Report:      report,
	}, nil
}

func (s *Reports) replace(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ToxicItems.Set(float64(snap.Report.Totals.ToxicCount))
	}
}

// Stats summarises the default snapshot for monitoring.
func (s *Reports) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return map[string]any{"loaded": false}
	}

	r := s.current.Report
	return map[string]any{
		"loaded":       true,
		"snapshot_id":  s.current.ID,
		"source":       s.current.Source,
		"generated_at": s.current.GeneratedAt,
		"items":        r.Totals.Items,
		"dropped_rows": s.current.DroppedRows,
		"categories":   len(r.Categories),
		"toxic_count":  r.Totals.ToxicCount,
	}
}
