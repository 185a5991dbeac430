// Package router wires every route of the API onto a net/http ServeMux.
package router

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/student-records/internal/http/handlers/health"
	"github.com/aanand-mishra/student-records/internal/http/handlers/student"
	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/metrics"
)

// Service is everything the routes call.
type Service interface {
	student.Service
	health.Pinger
}

// New returns the API handler.
//
// Route table:
//
//	GET    /api/v1/students                                  list all students
//	GET    /api/v1/students/with-age-and-gender              filter, ?age=&gender=
//	GET    /api/v1/students/with-gender-and-age-greater-than filter, ?age=&gender=
//	GET    /api/v1/students/{id}                             get one student
//	POST   /api/v1/students                                  create a student
//	PUT    /api/v1/students/{id}                             replace a student
//	DELETE /api/v1/students/{id}                             delete a student
//	GET    /health                                           datastore ping
//	GET    /metrics                                          Prometheus exposition from g
//
// The literal filter paths take precedence over {id}, as they are more
// specific patterns.
func New(svc Service, log *slog.Logger, m *metrics.Metrics, g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Instrument(m, pattern, h))
	}

	handle("GET /api/v1/students", student.List(svc, log))
	handle("GET /api/v1/students/with-age-and-gender", student.FilterByAgeAndGender(svc, log))
	handle("GET /api/v1/students/with-gender-and-age-greater-than", student.FilterByGenderAndAgeGreaterThan(svc, log))
	handle("GET /api/v1/students/{id}", student.GetByID(svc, log))
	handle("POST /api/v1/students", student.New(svc, log))
	handle("PUT /api/v1/students/{id}", student.Update(svc, log))
	handle("DELETE /api/v1/students/{id}", student.Delete(svc, log))
	handle("GET /health", health.Check(svc, log))

	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return middleware.RequestID(middleware.Logging(log)(middleware.Recovery(log)(mux)))
}
