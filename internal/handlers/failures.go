package handlers

import (
	"errors"
	"net/http"
	"strings"

	"profit-matrix/internal/dataset"
	apperrors "profit-matrix/internal/errors"
	"profit-matrix/internal/profitability"
	"profit-matrix/internal/services"
)

// toAppError maps domain failures onto the API error taxonomy.
func toAppError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var (
		missing  *dataset.MissingColumnsError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return apperrors.TooLarge("Dataset exceeds the maximum upload size")
	case errors.As(err, &missing):
		return apperrors.InvalidInput(err, "Dataset is missing required columns").
			WithDetails(strings.Join(missing.Missing, ", "))
	case errors.Is(err, profitability.ErrEmptyPortfolio):
		return apperrors.EmptyPortfolio(err)
	case errors.Is(err, profitability.ErrInvalidOptions):
		return apperrors.ValidationWrap(err, "Invalid analysis options").WithDetails(err.Error())
	case errors.Is(err, services.ErrNoReport):
		return apperrors.ServiceUnavailable("Report is not ready yet")
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		return apperrors.BadRequestWrap(err, "Unsupported dataset format").WithDetails(err.Error())
	case errors.Is(err, dataset.ErrMalformed):
		return apperrors.BadRequestWrap(err, "Dataset could not be parsed").WithDetails(err.Error())
	default:
		return apperrors.InternalWrap(err, "An unexpected error occurred")
	}
}
