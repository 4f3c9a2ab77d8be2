package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ValidationWrap(nil, "bad"), http.StatusBadRequest},
		{BadRequest("bad"), http.StatusBadRequest},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{ServiceUnavailable("warming up"), http.StatusServiceUnavailable},
		{InvalidInput(nil, "columns"), http.StatusUnprocessableEntity},
		{EmptyPortfolio(nil), http.StatusUnprocessableEntity},
		{TooLarge("big"), http.StatusRequestEntityTooLarge},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode)
		})
	}
}

func TestWriteError_WrappedAppError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appErr := InvalidInput(fmt.Errorf("missing: cost"), "Dataset rejected").WithDetails("cost_amount")
	wrapped := fmt.Errorf("upload: %w", appErr)

	w := httptest.NewRecorder()
	WriteError(w, logger, wrapped, "req-1")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Details   string `json:"details"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(CodeInvalidInput), resp.Error.Code)
	assert.Equal(t, "cost_amount", resp.Error.Details)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestWriteError_PlainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()
	WriteError(w, logger, fmt.Errorf("disk on fire"), "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
