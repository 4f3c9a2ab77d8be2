package templates

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/a-h/templ"

	"profit-matrix/internal/models"
	"profit-matrix/internal/services"
)

// Element IDs of the dashboard sections patched over SSE.
const (
	SummaryID       = "summary-content"
	SampleID        = "sample-content"
	CategoriesID    = "categories-content"
	MatrixID        = "matrix-content"
	CriticalID      = "critical-content"
	OpportunitiesID = "opportunities-content"
)

// SectionIDs lists every section in page order.
var SectionIDs = []string{SummaryID, SampleID, CategoriesID, MatrixID, CriticalID, OpportunitiesID}

var funcs = template.FuncMap{
	"money":   money,
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"number":  func(v float64) string { return trimFloat(v) },
	"redact":  Redact,
	"label":   func(q models.Quadrant) string { return q.Label() },
	"caption": func(q models.Quadrant) string { return q.Caption() },
	"lower":   func(q models.Quadrant) string { return strings.ToLower(string(q)) },
}

var fragments = template.Must(template.New("fragments").Funcs(funcs).Parse(`
{{define "summary"}}<div id="summary-content" class="kpi-grid">
<div class="kpi"><span class="kpi-label">Total sales</span><strong>{{money .Report.Totals.TotalSales}}</strong></div>
<div class="kpi"><span class="kpi-label">Total margin</span><strong>{{money .Report.Totals.TotalMargin}}</strong></div>
<div class="kpi"><span class="kpi-label">Global margin</span><strong>{{percent .Report.Totals.MarginPercent}}</strong></div>
<div class="kpi kpi-alert"><span class="kpi-label">Toxic items</span><strong>{{.Report.Totals.ToxicCount}}</strong><small>of {{.Report.Totals.Items}} items</small></div>
<p class="kpi-meta">Median sales {{money .Report.Thresholds.MedianSales}} · Median margin {{money .Report.Thresholds.MedianMargin}}{{if .DroppedRows}} · {{.DroppedRows}} rows skipped{{end}}{{if .Name}} · {{.Name}}{{end}}</p>
</div>{{end}}

{{define "sample"}}<div id="sample-content">
<table class="modern-table">
<thead><tr><th>SKU</th><th>Category</th><th>Quantity</th><th>Sales</th><th>Cost</th><th>Unit price</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.ID}}</td>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{number .Quantity}}</td>
<td>{{money .Sales}}</td>
<td>{{money .Cost}}</td>
<td>{{money .UnitPrice}}</td>
</tr>{{end}}
</tbody>
</table>
</div>{{end}}

{{define "categories"}}<div id="categories-content">
<table class="modern-table">
<thead><tr><th>Category</th><th>Items</th><th>Total sales</th><th>Total margin</th><th>Avg margin %</th></tr></thead>
<tbody>
{{range .}}<tr>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{.Items}}</td>
<td>{{money .TotalSales}}</td>
<td>{{money .TotalMargin}}</td>
<td><strong>{{percent .AvgMarginPercent}}</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>{{end}}

{{define "matrix"}}<div id="matrix-content" class="matrix-grid">
{{range .Cells}}<div class="quadrant quadrant-{{lower .Quadrant}}">
<span class="quadrant-label">{{label .Quadrant}} ({{caption .Quadrant}})</span>
<strong>{{.Count}}</strong>
</div>{{end}}
<p class="matrix-axes">Split at median margin {{money .Thresholds.MedianMargin}} and median sales {{money .Thresholds.MedianSales}}</p>
</div>{{end}}

{{define "critical"}}<div id="critical-content">
<p>{{len .Items}} items below {{percent .Threshold}} margin need attention.</p>
<table class="modern-table redacted">
<thead><tr><th>SKU</th><th>Category</th><th>Sales</th><th>Margin %</th></tr></thead>
<tbody>
{{range .Items}}<tr>
<td><code>{{redact .ID}}</code></td>
<td>{{.Category}}</td>
<td>{{money .Sales}}</td>
<td class="negative">{{percent .MarginPercent}}</td>
</tr>{{end}}
</tbody>
</table>
{{if .CTAURL}}<a class="cta" href="{{.CTAURL}}" target="_blank" rel="noopener">Unlock the full list</a>{{end}}
</div>{{end}}

{{define "opportunities"}}<div id="opportunities-content">
<table class="modern-table">
<thead><tr><th>SKU</th><th>Category</th><th>Quantity</th><th>Sales</th><th>Margin</th><th>Margin %</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.ID}}</td>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{number .Quantity}}</td>
<td>{{money .Sales}}</td>
<td><strong>{{money .Margin}}</strong></td>
<td>{{percent .MarginPercent}}</td>
</tr>{{end}}
</tbody>
</table>
</div>{{end}}
`))

func fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return fragments.ExecuteTemplate(w, name, data)
	})
}

func Summary(snap *services.Snapshot) templ.Component {
	return fragment("summary", snap)
}

// Sample lists the leading rows of the dataset as loaded.
func Sample(items []models.ClassifiedItem) templ.Component {
	return fragment("sample", items)
}

func Categories(categories []models.CategorySummary) templ.Component {
	return fragment("categories", categories)
}

type matrixCell struct {
	Quadrant models.Quadrant
	Count    int
}

func Matrix(snap *services.Snapshot) templ.Component {
	cells := make([]matrixCell, 0, len(models.Quadrants))
	// Chart layout: top row is high sales, left column is low margin.
	for _, q := range []models.Quadrant{
		models.QuadrantQuestionMark, models.QuadrantStar,
		models.QuadrantDog, models.QuadrantNiche,
	} {
		cells = append(cells, matrixCell{Quadrant: q, Count: snap.Report.Totals.QuadrantCounts[q]})
	}
	return fragment("matrix", struct {
		Cells      []matrixCell
		Thresholds models.Thresholds
	}{cells, snap.Report.Thresholds})
}

func Critical(items []models.ClassifiedItem, threshold float64, ctaURL string) templ.Component {
	return fragment("critical", struct {
		Items     []models.ClassifiedItem
		Threshold float64
		CTAURL    string
	}{items, threshold, ctaURL})
}

func Opportunities(items []models.ClassifiedItem) templ.Component {
	return fragment("opportunities", items)
}

// Redact keeps the first character of an identifier and masks the rest.
func Redact(id string) string {
	r := []rune(id)
	if len(r) <= 1 {
		return strings.Repeat("*", len(r))
	}
	return string(r[0]) + strings.Repeat("*", len(r)-1)
}

func money(v float64) string {
	sign := ""
	whole := fmt.Sprintf("%.2f", math.Abs(v))
	if v < 0 && whole != "0.00" {
		sign = "-"
	}
	intPart, frac := whole[:len(whole)-3], whole[len(whole)-3:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + frac
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// Render writes c to a string, as needed for SSE element patches.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// NotReady is the placeholder patched into a section while no report exists.
func NotReady(sectionID string) string {
	return fmt.Sprintf(`<div id="%s" class="not-ready">Report is not ready yet.</div>`, template.HTMLEscapeString(sectionID))
}
