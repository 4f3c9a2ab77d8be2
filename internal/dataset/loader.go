package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"profit-matrix/internal/models"
)

const (
	batchSize     = 1000
	maxWorkers    = 4
	headerScanMax = 10
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrMalformed         = errors.New("malformed dataset")
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// FormatFromName picks a format from a file name extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Result is a loaded dataset. Dropped counts rows whose numeric fields could
// not be coerced to finite numbers.
type Result struct {
	Items   []models.Item
	Dropped int
}

type table struct {
	header []string
	rows   [][]string
}

type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return l.Load(ctx, file, format)
}

func (l *Loader) Load(ctx context.Context, r io.Reader, format Format) (*Result, error) {
	var (
		tbl *table
		err error
	)
	switch format {
	case FormatCSV:
		tbl, err = readCSV(r)
	case FormatXLSX:
		tbl, err = readXLSX(r)
	case FormatJSON:
		tbl, err = readJSON(r)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	cols, err := mapColumns(tbl.header)
	if err != nil {
		return nil, err
	}

	result, err := l.parseRows(ctx, tbl.rows, cols)
	if err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		"format", format,
		"rows", len(tbl.rows),
		"items", len(result.Items),
		"dropped", result.Dropped,
	)
	return result, nil
}

type parsedBatch struct {
	items   []models.Item
	dropped int
}

func (l *Loader) parseRows(ctx context.Context, rows [][]string, cols columnIndex) (*Result, error) {
	batches := make([]parsedBatch, (len(rows)+batchSize-1)/batchSize)

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for b := range batches {
		start := b * batchSize
		end := min(start+batchSize, len(rows))

		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			out := parsedBatch{items: make([]models.Item, 0, end-start)}
			for i := start; i < end; i++ {
				if blankRow(rows[i]) {
					continue
				}
				item, err := parseItem(rows[i], cols)
				if err != nil {
					l.logger.Debug("dropping row", "row", i+1, "error", err)
					out.dropped++
					continue
				}
				out.items = append(out.items, item)
			}
			batches[b] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Items: make([]models.Item, 0, len(rows))}
	for _, b := range batches {
		result.Items = append(result.Items, b.items...)
		result.Dropped += b.dropped
	}
	return result, nil
}

func parseItem(record []string, cols columnIndex) (models.Item, error) {
	cell := func(f Field) string {
		i := cols[f]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	quantity, err := parseNumber(cell(FieldQuantity))
	if err != nil {
		return models.Item{}, fmt.Errorf("quantity: %w", err)
	}
	if quantity < 0 {
		return models.Item{}, fmt.Errorf("quantity: negative value %v", quantity)
	}

	sales, err := parseNumber(cell(FieldSales))
	if err != nil {
		return models.Item{}, fmt.Errorf("sales: %w", err)
	}

	cost, err := parseNumber(cell(FieldCost))
	if err != nil {
		return models.Item{}, fmt.Errorf("cost: %w", err)
	}

	return models.Item{
		ID:       cell(FieldID),
		Category: cell(FieldCategory),
		Quantity: quantity,
		Sales:    sales,
		Cost:     cost,
	}, nil
}

// parseNumber accepts plain and currency-formatted numbers in either US
// (1,234.50) or European (1.234,50) notation. A blank cell is 0.
//
// When both separators appear the last one is the decimal mark. A single
// separator is a group mark when it repeats, or when it is a comma followed
// by exactly three digits after a non-zero integer part of at most three
// digits. Anything that fits neither reading is rejected.
func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer("$", "", "€", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return 0, nil
	}

	normalized, err := normalizeSeparators(s)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// normalizeSeparators rewrites s so that '.' is the only decimal mark and no
// group marks remain.
func normalizeSeparators(s string) (string, error) {
	last := strings.LastIndexAny(s, ".,")
	if last < 0 {
		return s, nil
	}

	decimal := s[last]
	group := byte(',')
	if decimal == ',' {
		group = '.'
	}

	if strings.IndexByte(s, group) >= 0 {
		if strings.Count(s, string(decimal)) > 1 {
			return "", fmt.Errorf("ambiguous number %q", s)
		}
		intPart, err := ungroup(s[:last], group)
		if err != nil {
			return "", err
		}
		return intPart + "." + s[last+1:], nil
	}

	if strings.Count(s, string(decimal)) > 1 {
		return ungroup(s, decimal)
	}

	intPart, frac := s[:last], s[last+1:]
	lead := strings.TrimLeft(intPart, "+-")
	if decimal == ',' && len(frac) == 3 && len(lead) <= 3 && strings.TrimLeft(lead, "0") != "" {
		return intPart + frac, nil
	}
	return intPart + "." + frac, nil
}

// ungroup strips group marks, requiring three digits in every group after the
// first.
func ungroup(s string, group byte) (string, error) {
	parts := strings.Split(s, string(group))
	lead := strings.TrimLeft(parts[0], "+-")
	if lead == "" || len(lead) > 3 {
		return "", fmt.Errorf("ambiguous number %q", s)
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", fmt.Errorf("ambiguous number %q", s)
		}
	}
	return strings.Join(parts, ""), nil
}

func blankRow(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readCSV(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %w", ErrMalformed, err)
	}
	if len(records) == 0 {
		return &table{}, nil
	}
	return &table{header: records[0], rows: records[1:]}, nil
}

func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// readXLSX returns the first sheet that has a recognisable header within its
// first rows. When no sheet matches, the first non-empty row of the first
// sheet is reported so the caller sees which columns are missing.
func readXLSX(r io.Reader) (*table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", ErrMalformed, err)
	}
	defer f.Close()

	var fallback *table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		for i := 0; i < len(rows) && i < headerScanMax; i++ {
			if blankRow(rows[i]) {
				continue
			}
			if fallback == nil {
				fallback = &table{header: rows[i]}
			}
			if _, err := mapColumns(rows[i]); err == nil {
				return &table{header: rows[i], rows: rows[i+1:]}, nil
			}
		}
	}

	if fallback == nil {
		return &table{}, nil
	}
	return fallback, nil
}

// readJSON accepts an array of flat objects. Keys are treated as column
// headers.
func readJSON(r io.Reader) (*table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("%w: parse json: %w", ErrMalformed, err)
	}
	if len(objects) == 0 {
		return &table{}, nil
	}

	keys := make(map[string]struct{})
	for _, obj := range objects {
		for k := range obj {
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, len(objects))
	for i, obj := range objects {
		row := make([]string, len(header))
		for j, k := range header {
			switch v := obj[k].(type) {
			case nil:
			case string:
				row[j] = v
			case json.Number:
				row[j] = v.String()
			default:
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	return &table{header: header, rows: rows}, nil
}
