package profitability

import "profit-matrix/internal/models"

// Classify places an item on the matrix. A value equal to its median counts
// as high.
func Classify(margin, sales float64, t models.Thresholds) models.Quadrant {
	highMargin := margin >= t.MedianMargin
	highSales := sales >= t.MedianSales

	switch {
	case highMargin && highSales:
		return models.QuadrantStar
	case !highMargin && highSales:
		return models.QuadrantQuestionMark
	case !highMargin && !highSales:
		return models.QuadrantDog
	default:
		return models.QuadrantNiche
	}
}

// ClassifyAll derives metrics for every item and labels it against t. Row
// holds the item's position in items.
func ClassifyAll(items []models.Item, t models.Thresholds) []models.ClassifiedItem {
	out := make([]models.ClassifiedItem, len(items))
	for i, item := range items {
		m := Derive(item)
		out[i] = models.ClassifiedItem{
			Item:          item,
			Row:           i,
			UnitPrice:     item.UnitPrice(),
			Margin:        m.Margin,
			MarginPercent: m.MarginPercent,
			Quadrant:      Classify(m.Margin, item.Sales, t),
		}
	}
	return out
}
