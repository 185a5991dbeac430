package health_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aanand-mishra/student-records/internal/http/handlers/health"
	"github.com/aanand-mishra/student-records/internal/logger"
)

type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }

func TestCheck(t *testing.T) {
	t.Parallel()

	log := logger.New(logger.EnvDev, "error", io.Discard)

	t.Run("reachable", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.Check(pinger(func(context.Context) error { return nil }), log).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.Check(pinger(func(context.Context) error { return errors.New("sql: database is closed") }), log).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"error","error":"sql: database is closed"}`, rec.Body.String())
	})
}
