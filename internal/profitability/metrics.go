package profitability

import (
	"errors"
	"slices"

	"profit-matrix/internal/models"
)

// ErrEmptyPortfolio is returned when medians are requested over zero items.
var ErrEmptyPortfolio = errors.New("portfolio has no items")

type Metrics struct {
	Margin        float64
	MarginPercent float64
}

// Derive computes margin and margin percent for one item. Margin percent is 0
// when sales are not positive.
func Derive(item models.Item) Metrics {
	margin := item.Sales - item.Cost
	return Metrics{
		Margin:        margin,
		MarginPercent: percentOf(margin, item.Sales),
	}
}

func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// Median returns the middle value of values, or the mean of the two middle
// values for an even count. The input slice is left untouched.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyPortfolio
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2, nil
	}
	return sorted[n/2], nil
}

// ComputeThresholds returns median sales and median margin across items.
func ComputeThresholds(items []models.Item) (models.Thresholds, error) {
	if len(items) == 0 {
		return models.Thresholds{}, ErrEmptyPortfolio
	}

	sales := make([]float64, len(items))
	margins := make([]float64, len(items))
	for i, item := range items {
		sales[i] = item.Sales
		margins[i] = item.Sales - item.Cost
	}

	medianSales, err := Median(sales)
	if err != nil {
		return models.Thresholds{}, err
	}
	medianMargin, err := Median(margins)
	if err != nil {
		return models.Thresholds{}, err
	}

	return models.Thresholds{MedianSales: medianSales, MedianMargin: medianMargin}, nil
}
