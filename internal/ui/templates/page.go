package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"profit-matrix/internal/profitability"
	"profit-matrix/internal/services"
)

const (
	Title    = "Profitability Optimization Report"
	Subtitle = "Where is the money? Margin versus sales for every SKU in the portfolio."
)

// PageData drives the dashboard. With a nil Snapshot the page renders loading
// placeholders and fetches every section over SSE.
type PageData struct {
	Snapshot *services.Snapshot
	CTAURL   string
}

type pageView struct {
	Title         string
	Subtitle      string
	Live          bool
	Signals       string
	Summary       template.HTML
	Sample        template.HTML
	Categories    template.HTML
	Matrix        template.HTML
	Critical      template.HTML
	Opportunities template.HTML
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f7fb;color:#1f2933}
header,main{max-width:1100px;margin:0 auto;padding:1.5rem}
section{background:#fff;border-radius:12px;padding:1.25rem;margin-bottom:1.5rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.kpi-grid{display:grid;grid-template-columns:repeat(4,1fr);gap:1rem}
.kpi{display:flex;flex-direction:column}.kpi-alert strong{color:#c62828}
.kpi-meta{grid-column:1/-1;color:#616e7c;font-size:.9rem}
.matrix-grid{display:grid;grid-template-columns:1fr 1fr;gap:.5rem}
.quadrant{padding:1rem;border-radius:8px;color:#fff}
.quadrant-star{background:#2e7d32}.quadrant-question_mark{background:#ef6c00}
.quadrant-dog{background:#c62828}.quadrant-niche{background:#1565c0}
.matrix-axes{grid-column:1/-1;color:#616e7c}
.modern-table{width:100%;border-collapse:collapse}.modern-table td,.modern-table th{padding:.4rem;border-bottom:1px solid #e4e7eb;text-align:left}
.category-badge{background:#e3f2fd;border-radius:4px;padding:0 .4rem}.negative{color:#c62828}
.cta{display:inline-block;margin-top:1rem;padding:.6rem 1rem;border-radius:6px;background:#c62828;color:#fff;text-decoration:none}
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>{{.Subtitle}}</p>
<form action="/upload" method="post" enctype="multipart/form-data">
<input type="file" name="file" accept=".csv,.xlsx,.json" required>
<button type="submit">Analyze my file</button>
{{if not .Live}}<a href="/">Back to demo data</a>{{end}}
</form>
</header>
<main data-signals="{{.Signals}}"{{if .Live}} data-init="@get('/sse/refresh-all')"{{end}}>
<section><h2>Portfolio Summary</h2>{{if .Live}}<div id="summary-content">Loading…</div>{{else}}{{.Summary}}{{end}}</section>
<section><h2>Dataset Sample</h2>{{if .Live}}<div id="sample-content">Loading…</div>{{else}}{{.Sample}}{{end}}</section>
<section><h2>1. Profitability by Category</h2>{{if .Live}}<div id="categories-content">Loading…</div>{{else}}{{.Categories}}{{end}}</section>
<section><h2>2. Impact Matrix: Margin vs. Sales</h2>
<canvas id="matrix-chart" height="120" data-effect="window.drawMatrix && window.drawMatrix($matrixData)"></canvas>
{{if .Live}}<div id="matrix-content">Loading…</div>{{else}}{{.Matrix}}{{end}}</section>
<section><h2>Critical Items</h2>{{if .Live}}<div id="critical-content">Loading…</div>{{else}}{{.Critical}}{{end}}</section>
<section><h2>3. Opportunity Detail (Niches)</h2><p>High margin, low sales SKUs:</p>{{if .Live}}<div id="opportunities-content">Loading…</div>{{else}}{{.Opportunities}}{{end}}</section>
</main>
<script>
const matrixGuides = {
  id: 'matrixGuides',
  afterDatasetsDraw(chart, args, t) {
    if (t.median_margin === undefined) return;
    const {ctx, chartArea: a, scales: {x, y}} = chart;
    const mx = x.getPixelForValue(t.median_margin), my = y.getPixelForValue(t.median_sales);
    ctx.save();
    ctx.setLineDash([6, 4]);
    ctx.lineWidth = 2;
    ctx.strokeStyle = '#000';
    ctx.beginPath();
    ctx.moveTo(mx, a.top); ctx.lineTo(mx, a.bottom);
    ctx.moveTo(a.left, my); ctx.lineTo(a.right, my);
    ctx.stroke();
    ctx.setLineDash([]);
    ctx.fillStyle = '#c62828';
    ctx.font = 'bold 10px sans-serif';
    for (const ds of chart.data.datasets) {
      for (const p of ds.data) {
        if (p.flagged) ctx.fillText(p.id, x.getPixelForValue(p.x) + 4, y.getPixelForValue(p.y) - 4);
      }
    }
    ctx.restore();
  },
};
window.drawMatrix = function (data) {
  if (!data || !data.points || !window.Chart) return;
  const ctx = document.getElementById('matrix-chart');
  const colors = {STAR: '#2e7d32', QUESTION_MARK: '#ef6c00', DOG: '#c62828', NICHE: '#1565c0'};
  const datasets = Object.keys(colors).map(q => ({
    label: q,
    backgroundColor: colors[q],
    borderColor: c => c.raw && c.raw.flagged ? '#000' : colors[q],
    borderWidth: c => c.raw && c.raw.flagged ? 2 : 1,
    data: data.points.filter(p => p.quadrant === q).map(p => ({x: p.margin, y: p.sales, r: 3 + Math.sqrt(p.quantity) / 8, id: p.id, flagged: p.flagged})),
  }));
  if (window.matrixChart) window.matrixChart.destroy();
  window.matrixChart = new Chart(ctx, {type: 'bubble', data: {datasets}, plugins: [matrixGuides], options: {
    plugins: {matrixGuides: data.thresholds || {}},
    scales: {x: {title: {display: true, text: 'Margin'}}, y: {title: {display: true, text: 'Sales'}}},
  }});
};
</script>
</body>
</html>
`))

// Dashboard renders the full page.
func Dashboard(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		view := pageView{
			Title:    Title,
			Subtitle: Subtitle,
			Live:     data.Snapshot == nil,
			Signals:  "{}",
		}

		if snap := data.Snapshot; snap != nil {
			signals, err := json.Marshal(map[string]any{"matrixData": MatrixSignal(snap)})
			if err != nil {
				return err
			}
			view.Signals = string(signals)

			parts := []struct {
				dst *template.HTML
				c   templ.Component
			}{
				{&view.Summary, Summary(snap)},
				{&view.Sample, Sample(snap.Report.Sample(profitability.DefaultSampleSize))},
				{&view.Categories, Categories(snap.Report.Categories)},
				{&view.Matrix, Matrix(snap)},
				{&view.Critical, Critical(snap.Report.Critical, snap.Report.Options.MarginThreshold, data.CTAURL)},
				{&view.Opportunities, Opportunities(snap.Report.Opportunities)},
			}
			for _, p := range parts {
				html, err := Render(ctx, p.c)
				if err != nil {
					return err
				}
				*p.dst = template.HTML(html)
			}
		}

		return page.Execute(w, view)
	})
}

// MatrixSignal is the payload behind the scatter chart.
func MatrixSignal(snap *services.Snapshot) map[string]any {
	return map[string]any{
		"points":     snap.Report.Points(),
		"thresholds": snap.Report.Thresholds,
		"counts":     snap.Report.Totals.QuadrantCounts,
	}
}
