package handlers

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "profit-matrix/internal/errors"
	"profit-matrix/internal/profitability"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report query parameter names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type itemsQuery struct {
	Quadrant string `query:"quadrant" validate:"omitempty,oneof=STAR QUESTION_MARK DOG NICHE"`
	Limit    int    `query:"limit" validate:"gte=0,lte=100000"`
}

type categoriesQuery struct {
	Sort  string `query:"sort" validate:"omitempty,oneof=sales margin margin_percent"`
	Order string `query:"order" validate:"omitempty,oneof=asc desc"`
}

type criticalQuery struct {
	Threshold float64 `query:"threshold" validate:"gte=-1000,lte=1000"`
	Limit     int     `query:"limit" validate:"gte=0,lte=1000"`
}

type limitQuery struct {
	Limit int `query:"limit" validate:"gte=0,lte=1000"`
}

type analyzeQuery struct {
	Threshold        float64 `query:"threshold" validate:"gte=-1000,lte=1000"`
	CriticalLimit    int     `query:"critical_limit" validate:"gte=0,lte=1000"`
	OpportunityLimit int     `query:"opportunity_limit" validate:"gte=0,lte=1000"`
	Sort             string  `query:"sort" validate:"omitempty,oneof=sales margin margin_percent"`
	Order            string  `query:"order" validate:"omitempty,oneof=asc desc"`
}

func parseItemsQuery(r *http.Request) (itemsQuery, error) {
	values := r.URL.Query()
	q := itemsQuery{Quadrant: strings.ToUpper(values.Get("quadrant"))}

	var err error
	if q.Limit, err = intParam(values.Get("limit"), "limit", 0); err != nil {
		return q, err
	}
	return q, validateQuery(q)
}

func parseCategoriesQuery(r *http.Request) (categoriesQuery, error) {
	values := r.URL.Query()
	q := categoriesQuery{
		Sort:  strings.ToLower(values.Get("sort")),
		Order: strings.ToLower(values.Get("order")),
	}
	return q, validateQuery(q)
}

func parseCriticalQuery(r *http.Request, opts profitability.Options) (criticalQuery, error) {
	values := r.URL.Query()

	var (
		q   criticalQuery
		err error
	)
	if q.Threshold, err = floatParam(values.Get("threshold"), "threshold", opts.MarginThreshold); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(values.Get("limit"), "limit", opts.CriticalLimit); err != nil {
		return q, err
	}
	return q, validateQuery(q)
}

func parseLimitQuery(r *http.Request, def int) (limitQuery, error) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit", def)
	if err != nil {
		return limitQuery{}, err
	}
	q := limitQuery{Limit: limit}
	return q, validateQuery(q)
}

// parseAnalyzeQuery overlays request parameters on the service defaults.
func parseAnalyzeQuery(r *http.Request, base profitability.Options) (profitability.Options, error) {
	values := r.URL.Query()
	q := analyzeQuery{
		Sort:  strings.ToLower(values.Get("sort")),
		Order: strings.ToLower(values.Get("order")),
	}

	var err error
	if q.Threshold, err = floatParam(values.Get("threshold"), "threshold", base.MarginThreshold); err != nil {
		return base, err
	}
	if q.CriticalLimit, err = intParam(values.Get("critical_limit"), "critical_limit", base.CriticalLimit); err != nil {
		return base, err
	}
	if q.OpportunityLimit, err = intParam(values.Get("opportunity_limit"), "opportunity_limit", base.OpportunityLimit); err != nil {
		return base, err
	}
	if err := validateQuery(q); err != nil {
		return base, err
	}

	opts := base
	opts.MarginThreshold = q.Threshold
	opts.CriticalLimit = q.CriticalLimit
	opts.OpportunityLimit = q.OpportunityLimit
	if q.Sort != "" {
		opts.CategoryOrder.Key = profitability.SortKey(q.Sort)
	}
	if q.Order != "" {
		opts.CategoryOrder.Descending = q.Order == "desc"
	}
	return opts, nil
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.ValidationWrap(err, fmt.Sprintf("Parameter %q must be an integer", name))
	}
	return v, nil
}

func floatParam(raw, name string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, apperrors.ValidationWrap(err, fmt.Sprintf("Parameter %q must be a number", name))
	}
	return v, nil
}

func validateQuery(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.InternalWrap(err, "Failed to validate request")
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describeFieldError(fe))
	}
	return apperrors.ValidationWrap(err, "Invalid query parameters").WithDetails(strings.Join(fields, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
