package dataset

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrMissingColumns matches any *MissingColumnsError.
var ErrMissingColumns = errors.New("missing required columns")

type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return ErrMissingColumns.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingColumns
}

type Field int

const (
	FieldID Field = iota
	FieldCategory
	FieldQuantity
	FieldSales
	FieldCost
)

var requiredFields = []Field{FieldID, FieldCategory, FieldQuantity, FieldSales, FieldCost}

func (f Field) String() string {
	switch f {
	case FieldID:
		return "identifier"
	case FieldCategory:
		return "category"
	case FieldQuantity:
		return "quantity"
	case FieldSales:
		return "sales_amount"
	case FieldCost:
		return "cost_amount"
	default:
		return "unknown"
	}
}

// aliases maps normalized header names to fields. The Spanish names come
// from the exports the dashboard was first built for.
var aliases = map[string]Field{
	"identifier": FieldID,
	"id":         FieldID,
	"sku":        FieldID,
	"item":       FieldID,
	"producto":   FieldID,
	"modelo":     FieldID,

	"category":  FieldCategory,
	"categoria": FieldCategory,

	"quantity": FieldQuantity,
	"qty":      FieldQuantity,
	"cantidad": FieldQuantity,

	"sales":        FieldSales,
	"sales_amount": FieldSales,
	"revenue":      FieldSales,
	"dolares":      FieldSales,
	"ventas":       FieldSales,

	"cost":        FieldCost,
	"cost_amount": FieldCost,
	"costo":       FieldCost,
	"coste":       FieldCost,
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if folded, _, err := transform.String(foldAccents, h); err == nil {
		h = folded
	}
	h = strings.ToLower(h)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, h)
}

// columnIndex maps each field to its position in the header. The first
// matching column wins.
type columnIndex map[Field]int

func mapColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(requiredFields))
	for i, h := range header {
		f, ok := aliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := idx[f]; !seen {
			idx[f] = i
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := idx[f]; !ok {
			missing = append(missing, f.String())
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return idx, nil
}
