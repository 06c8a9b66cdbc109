package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/catalog-system/internal/api/handler"
	"github.com/99minutos/catalog-system/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"echo error", echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{"validation", errors.Mark(errors.New("name is required"), handler.ErrValidation), http.StatusBadRequest},
		{"not found", errors.Wrap(domain.ErrEntityNotFound, "items"), http.StatusNotFound},
		{"optimistic lock", errors.Wrapf(domain.ErrOptimisticLock, "items %d", 1), http.StatusConflict},
		{"duplicate key", errors.Wrapf(domain.ErrDuplicateKey, "memory: %d", 1), http.StatusConflict},
		{"unknown field", errors.Wrap(domain.ErrUnknownField, "items.nope"), http.StatusBadRequest},
		{"native query", domain.ErrNativeQueryUnsupported, http.StatusNotImplemented},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"user exists", domain.ErrUserExists, http.StatusConflict},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
}

func TestHTTPErrorHandler_HidesUnexpectedErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("password=hunter2"), c)

	if body := rec.Body.String(); body != "{\"error\":\"internal server error\"}\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}
