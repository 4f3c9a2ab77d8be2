package profitability

import (
	"errors"
	"fmt"
	"math"

	"profit-matrix/internal/models"
)

// ErrInvalidOptions wraps every Options validation failure.
var ErrInvalidOptions = errors.New("invalid analysis options")

const (
	DefaultMarginThreshold  = 15.0
	DefaultCriticalLimit    = 5
	DefaultOpportunityLimit = 10
	DefaultSampleSize       = 5
)

type Options struct {
	// MarginThreshold is the margin percent below which an item is critical.
	MarginThreshold  float64       `json:"margin_threshold"`
	CriticalLimit    int           `json:"critical_limit"`
	OpportunityLimit int           `json:"opportunity_limit"`
	CategoryOrder    CategoryOrder `json:"category_order"`
}

func DefaultOptions() Options {
	return Options{
		MarginThreshold:  DefaultMarginThreshold,
		CriticalLimit:    DefaultCriticalLimit,
		OpportunityLimit: DefaultOpportunityLimit,
		CategoryOrder:    CategoryOrder{Key: SortByMarginPercent},
	}
}

func (o Options) Validate() error {
	if math.IsNaN(o.MarginThreshold) || math.IsInf(o.MarginThreshold, 0) {
		return fmt.Errorf("%w: margin threshold must be finite", ErrInvalidOptions)
	}
	if o.CriticalLimit < 0 {
		return fmt.Errorf("%w: critical limit must not be negative, got %d", ErrInvalidOptions, o.CriticalLimit)
	}
	if o.OpportunityLimit < 0 {
		return fmt.Errorf("%w: opportunity limit must not be negative, got %d", ErrInvalidOptions, o.OpportunityLimit)
	}
	if !o.CategoryOrder.Key.valid() {
		return fmt.Errorf("%w: unknown category sort key %q", ErrInvalidOptions, o.CategoryOrder.Key)
	}
	return nil
}

// Report is the complete analysis of one portfolio snapshot.
type Report struct {
	Items         []models.ClassifiedItem  `json:"items"`
	Thresholds    models.Thresholds        `json:"thresholds"`
	Categories    []models.CategorySummary `json:"categories"`
	Totals        models.Totals            `json:"totals"`
	Critical      []models.ClassifiedItem  `json:"critical"`
	Opportunities []models.ClassifiedItem  `json:"opportunities"`
	Options       Options                  `json:"options"`
}

// Analyze classifies items and aggregates the result. Thresholds are fixed
// before the first item is labelled, so input order never changes a label.
func Analyze(items []models.Item, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	thresholds, err := ComputeThresholds(items)
	if err != nil {
		return nil, err
	}

	classified := ClassifyAll(items, thresholds)

	return &Report{
		Items:         classified,
		Thresholds:    thresholds,
		Categories:    SummarizeCategories(classified, opts.CategoryOrder),
		Totals:        ComputeTotals(classified),
		Critical:      LowestMargins(classified, opts.MarginThreshold, opts.CriticalLimit),
		Opportunities: Opportunities(classified, thresholds, opts.OpportunityLimit),
		Options:       opts,
	}, nil
}

// ByQuadrant returns the items carrying label q, in input order.
func (r *Report) ByQuadrant(q models.Quadrant) []models.ClassifiedItem {
	out := []models.ClassifiedItem{}
	for _, item := range r.Items {
		if item.Quadrant == q {
			out = append(out, item)
		}
	}
	return out
}

// Sample returns the first n items in input order, or all of them when n
// exceeds the portfolio size.
func (r *Report) Sample(n int) []models.ClassifiedItem {
	if n < 0 {
		n = 0
	}
	return r.Items[:min(n, len(r.Items))]
}

// Points converts the report into scatter chart points. Critical items are
// flagged so the chart can annotate them.
func (r *Report) Points() []models.MatrixPoint {
	flagged := make(map[int]bool, len(r.Critical))
	for _, item := range r.Critical {
		flagged[item.Row] = true
	}

	points := make([]models.MatrixPoint, len(r.Items))
	for i, item := range r.Items {
		points[i] = models.MatrixPoint{
			ID:       item.ID,
			Category: item.Category,
			Margin:   item.Margin,
			Sales:    item.Sales,
			Quantity: item.Quantity,
			Quadrant: item.Quadrant,
			Flagged:  flagged[item.Row],
		}
	}
	return points
}
