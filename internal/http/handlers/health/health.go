// Package health serves the liveness endpoint.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// Pinger reports whether the datastore is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check handles GET /health: 200 {"status":"ok"} when the datastore
// answers, 503 with the error otherwise.
func Check(p Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			middleware.Logger(r.Context(), log).Error("health check failed", slog.String("error", err.Error()))
			_ = response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))

			return
		}

		_ = response.WriteJSON(w, http.StatusOK, response.OK())
	}
}
