package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/inkstudio/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestStatusToLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusToLabel(http.StatusOK))
	assert.Equal(t, "3xx", statusToLabel(http.StatusTemporaryRedirect))
	assert.Equal(t, "4xx", statusToLabel(http.StatusNotFound))
	assert.Equal(t, "5xx", statusToLabel(http.StatusBadGateway))
}

func TestRecoverer(t *testing.T) {
	h := recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", common.ErrorNotFound), http.StatusNotFound},
		{fmt.Errorf("bad: %w", common.ErrorValidation), http.StatusBadRequest},
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrInvalidToken, http.StatusUnauthorized},
		{common.ErrTokenExpired, http.StatusUnauthorized},
		{errBackend, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWriteServiceError_HidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, fmt.Errorf("dial tcp 10.0.0.1:5432: %w", errBackend))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
