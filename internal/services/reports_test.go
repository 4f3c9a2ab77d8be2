package services

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profit-matrix/internal/dataset"
	"profit-matrix/internal/models"
	"profit-matrix/internal/observability"
	"profit-matrix/internal/profitability"
)

const testUploadCSV = "sku,category,quantity,sales,cost\nZ,Q,1,999,1\nY,Q,1,1,999\n"

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "test*.csv")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString(content)
	require.NoError(t, err)
	return f.Name()
}

func newTestReports() (*Reports, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return NewReports(profitability.DefaultOptions(), metrics, nil), metrics
}

func testItems() []models.Item {
	return []models.Item{
		{ID: "a", Category: "X", Quantity: 1, Sales: 100, Cost: 60},
		{ID: "b", Category: "X", Quantity: 2, Sales: 200, Cost: 150},
		{ID: "c", Category: "Y", Quantity: 3, Sales: 50, Cost: 10},
		{ID: "d", Category: "Y", Quantity: 4, Sales: 300, Cost: 290},
	}
}

func TestNewReports(t *testing.T) {
	r, _ := newTestReports()
	require.NotNil(t, r)
	assert.NotNil(t, r.logger)
	assert.NotNil(t, r.loader)
}

func TestReports_CurrentBeforeLoad(t *testing.T) {
	r, _ := newTestReports()
	_, err := r.Current()
	assert.ErrorIs(t, err, ErrNoReport)
	assert.Equal(t, false, r.Stats()["loaded"])
}

func TestReports_SetItems(t *testing.T) {
	r, metrics := newTestReports()
	require.NoError(t, r.SetItems(testItems()))

	snap, err := r.Current()
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, SourceItems, snap.Source)
	assert.Equal(t, 4, snap.Report.Totals.Items)
	assert.Equal(t, models.QuadrantQuestionMark, snap.Report.Items[3].Quadrant)
	assert.InDelta(t, 75.0, snap.Report.Items[3].UnitPrice, 1e-9)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Reports.WithLabelValues(string(SourceItems))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToxicItems))
}

func TestReports_SetItemsEmpty(t *testing.T) {
	r, _ := newTestReports()
	assert.ErrorIs(t, r.SetItems(nil), profitability.ErrEmptyPortfolio)

	_, err := r.Current()
	assert.ErrorIs(t, err, ErrNoReport, "failed load should not install a snapshot")
}

func TestReports_LoadFromCSV(t *testing.T) {
	f := createTempCSV(t, "SKU,Categoria,Cantidad,Dolares,Costo\n"+
		"100A,ROPA,10,100,60\n"+
		"200B,ROPA,20,200,150\n"+
		"300C,VIAJE,30,50,10\n"+
		"bad,VIAJE,x,50,10\n")

	r, metrics := newTestReports()
	require.NoError(t, r.LoadFromFile(context.Background(), f))

	snap, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, SourceFile, snap.Source)
	assert.Equal(t, 1, snap.DroppedRows)
	assert.Len(t, snap.Report.Categories, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped))
}

func TestReports_LoadFromCSV_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr error
	}{
		{"empty file", "", dataset.ErrMissingColumns},
		{"missing cost", "sku,category,quantity,sales\nA,B,1,2\n", dataset.ErrMissingColumns},
		{"no valid rows", "sku,category,quantity,sales,cost\nA,B,x,y,z\n", profitability.ErrEmptyPortfolio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestReports()
			err := r.LoadFromFile(context.Background(), createTempCSV(t, tt.csv))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReports_LoadDemo(t *testing.T) {
	r, _ := newTestReports()
	require.NoError(t, r.LoadDemo(context.Background(), 1, 200))

	snap, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, snap.Source)
	assert.Equal(t, 200, snap.Report.Totals.Items)
	assert.LessOrEqual(t, len(snap.Report.Critical), profitability.DefaultCriticalLimit)
}

func TestReports_AnalyzeDoesNotReplaceDefault(t *testing.T) {
	r, _ := newTestReports()
	require.NoError(t, r.SetItems(testItems()))
	before, err := r.Current()
	require.NoError(t, err)

	snap, err := r.AnalyzeUpload(context.Background(), "mine.csv", strings.NewReader(testUploadCSV), profitability.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, SourceUpload, snap.Source)
	assert.Equal(t, "mine.csv", snap.Name)
	assert.NotEqual(t, before.ID, snap.ID, "upload snapshot should have its own ID")
	assert.NotEqual(t, before.Report.Thresholds, snap.Report.Thresholds,
		"upload thresholds should be computed from the upload only")

	after, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, before, after, "AnalyzeUpload() must not replace the default snapshot")
}

func TestReports_AnalyzeReader(t *testing.T) {
	r, _ := newTestReports()

	opts := profitability.DefaultOptions()
	opts.CriticalLimit = 1
	snap, err := r.AnalyzeReader(context.Background(), "body.csv", strings.NewReader(testUploadCSV), dataset.FormatCSV, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Report.Totals.Items)
	assert.Len(t, snap.Report.Critical, 1)
	assert.Equal(t, "Y", snap.Report.Critical[0].ID)

	_, err = r.Current()
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestReports_AnalyzeUpload_UnsupportedType(t *testing.T) {
	r, _ := newTestReports()
	_, err := r.AnalyzeUpload(context.Background(), "data.pdf", strings.NewReader("x"), profitability.DefaultOptions())
	assert.ErrorIs(t, err, dataset.ErrUnsupportedFormat)
}

func TestReports_ConcurrentAccess(t *testing.T) {
	r, _ := newTestReports()
	require.NoError(t, r.SetItems(testItems()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := r.Current()
			assert.NoError(t, err)
			_ = r.Stats()
		}()
		go func() {
			defer wg.Done()
			_, err := r.AnalyzeReader(context.Background(), "c.csv", strings.NewReader(testUploadCSV),
				dataset.FormatCSV, profitability.DefaultOptions())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func BenchmarkReports_SetItems(b *testing.B) {
	r, _ := newTestReports()
	items := dataset.Demo(1, 2000)

	b.ResetTimer()
	for b.Loop() {
		_ = r.SetItems(items)
	}
}
