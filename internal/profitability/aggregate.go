package profitability

import (
	"cmp"
	"slices"

	"profit-matrix/internal/models"
)

type SortKey string

const (
	SortBySales         SortKey = "sales"
	SortByMargin        SortKey = "margin"
	SortByMarginPercent SortKey = "margin_percent"
)

func (k SortKey) valid() bool {
	switch k {
	case SortBySales, SortByMargin, SortByMarginPercent:
		return true
	}
	return false
}

// CategoryOrder selects how category summaries are ordered. Ties fall back
// to the category name.
type CategoryOrder struct {
	Key        SortKey `json:"key"`
	Descending bool    `json:"descending"`
}

// SummarizeCategories groups items by category. The mean margin percent only
// averages items with positive sales; a category without any is reported as 0.
func SummarizeCategories(items []models.ClassifiedItem, order CategoryOrder) []models.CategorySummary {
	type acc struct {
		summary    models.CategorySummary
		percentSum float64
		percentN   int
	}

	groups := make(map[string]*acc)
	for _, item := range items {
		g := groups[item.Category]
		if g == nil {
			g = &acc{summary: models.CategorySummary{Category: item.Category}}
			groups[item.Category] = g
		}
		g.summary.Items++
		g.summary.TotalSales += item.Sales
		g.summary.TotalMargin += item.Margin
		if item.HasMarginPercent() {
			g.percentSum += item.MarginPercent
			g.percentN++
		}
	}

	result := make([]models.CategorySummary, 0, len(groups))
	for _, g := range groups {
		if g.percentN > 0 {
			g.summary.AvgMarginPercent = g.percentSum / float64(g.percentN)
		}
		result = append(result, g.summary)
	}

	SortCategories(result, order)
	return result
}

// SortCategories orders summaries in place.
func SortCategories(summaries []models.CategorySummary, order CategoryOrder) {
	metric := func(s models.CategorySummary) float64 {
		switch order.Key {
		case SortBySales:
			return s.TotalSales
		case SortByMargin:
			return s.TotalMargin
		default:
			return s.AvgMarginPercent
		}
	}

	slices.SortFunc(summaries, func(a, b models.CategorySummary) int {
		c := cmp.Compare(metric(a), metric(b))
		if order.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
}

// ComputeTotals returns the portfolio headline figures.
func ComputeTotals(items []models.ClassifiedItem) models.Totals {
	totals := models.Totals{
		Items:          len(items),
		QuadrantCounts: make(map[models.Quadrant]int, len(models.Quadrants)),
	}
	for _, q := range models.Quadrants {
		totals.QuadrantCounts[q] = 0
	}

	for _, item := range items {
		totals.TotalSales += item.Sales
		totals.TotalMargin += item.Margin
		totals.QuadrantCounts[item.Quadrant]++
		if item.Quadrant.Toxic() {
			totals.ToxicCount++
		}
	}
	totals.MarginPercent = percentOf(totals.TotalMargin, totals.TotalSales)

	return totals
}

// LowestMargins returns up to n items whose margin percent is below
// threshold, lowest first. Items without positive sales carry no measured
// margin percent and are skipped.
func LowestMargins(items []models.ClassifiedItem, threshold float64, n int) []models.ClassifiedItem {
	var selected []models.ClassifiedItem
	for _, item := range items {
		if item.HasMarginPercent() && item.MarginPercent < threshold {
			selected = append(selected, item)
		}
	}

	slices.SortStableFunc(selected, func(a, b models.ClassifiedItem) int {
		if c := cmp.Compare(a.MarginPercent, b.MarginPercent); c != 0 {
			return c
		}
		return cmp.Compare(a.Row, b.Row)
	})
	return head(selected, n)
}

// Opportunities returns up to n items with margin at or above the median and
// sales below it, highest margin first.
func Opportunities(items []models.ClassifiedItem, t models.Thresholds, n int) []models.ClassifiedItem {
	var selected []models.ClassifiedItem
	for _, item := range items {
		if item.Margin >= t.MedianMargin && item.Sales < t.MedianSales {
			selected = append(selected, item)
		}
	}

	slices.SortStableFunc(selected, func(a, b models.ClassifiedItem) int {
		if c := cmp.Compare(b.Margin, a.Margin); c != 0 {
			return c
		}
		return cmp.Compare(a.Row, b.Row)
	})
	return head(selected, n)
}

func head[T any](s []T, n int) []T {
	if s == nil {
		return []T{}
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
