package models

// Item is one input row of a portfolio.
type Item struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
	Sales    float64 `json:"sales"`
	Cost     float64 `json:"cost"`
}

// UnitPrice is the average selling price, 0 when nothing was sold.
func (i Item) UnitPrice() float64 {
	if i.Quantity == 0 {
		return 0
	}
	return i.Sales / i.Quantity
}

type Quadrant string

const (
	QuadrantStar         Quadrant = "STAR"
	QuadrantQuestionMark Quadrant = "QUESTION_MARK"
	QuadrantDog          Quadrant = "DOG"
	QuadrantNiche        Quadrant = "NICHE"
)

// Quadrants lists every label in matrix order.
var Quadrants = []Quadrant{QuadrantStar, QuadrantQuestionMark, QuadrantDog, QuadrantNiche}

// Toxic reports whether the quadrant sits below the median margin.
func (q Quadrant) Toxic() bool {
	return q == QuadrantDog || q == QuadrantQuestionMark
}

// Label returns the name shown on the matrix chart.
func (q Quadrant) Label() string {
	switch q {
	case QuadrantStar:
		return "ESTRELLA"
	case QuadrantQuestionMark:
		return "DILEMA"
	case QuadrantDog:
		return "PERRO"
	case QuadrantNiche:
		return "NICHO"
	default:
		return string(q)
	}
}

// Caption is the short explanation printed next to the label.
func (q Quadrant) Caption() string {
	switch q {
	case QuadrantStar:
		return "Ganancia"
	case QuadrantQuestionMark:
		return "Volumen sin Margen"
	case QuadrantDog:
		return "Revisar"
	case QuadrantNiche:
		return "Potencial"
	default:
		return ""
	}
}

type ClassifiedItem struct {
	Item
	Row           int      `json:"row"`
	UnitPrice     float64  `json:"unit_price"`
	Margin        float64  `json:"margin"`
	MarginPercent float64  `json:"margin_percent"`
	Quadrant      Quadrant `json:"quadrant"`
}

// HasMarginPercent is false when sales are not positive and MarginPercent is
// the zero default rather than a measured value.
func (c ClassifiedItem) HasMarginPercent() bool {
	return c.Sales > 0
}

type Thresholds struct {
	MedianSales  float64 `json:"median_sales"`
	MedianMargin float64 `json:"median_margin"`
}

type CategorySummary struct {
	Category         string  `json:"category"`
	Items            int     `json:"items"`
	TotalSales       float64 `json:"total_sales"`
	TotalMargin      float64 `json:"total_margin"`
	AvgMarginPercent float64 `json:"avg_margin_percent"`
}

type Totals struct {
	Items          int              `json:"items"`
	TotalSales     float64          `json:"total_sales"`
	TotalMargin    float64          `json:"total_margin"`
	MarginPercent  float64          `json:"margin_percent"`
	ToxicCount     int              `json:"toxic_count"`
	QuadrantCounts map[Quadrant]int `json:"quadrant_counts"`
}

// MatrixPoint is one dot of the margin/sales scatter chart.
type MatrixPoint struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Margin   float64  `json:"margin"`
	Sales    float64  `json:"sales"`
	Quantity float64  `json:"quantity"`
	Quadrant Quadrant `json:"quadrant"`
	Flagged  bool     `json:"flagged"`
}
