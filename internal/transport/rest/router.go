package rest

import (
	"net/http"
	"time"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Handler  *Handler
	Cache    domain.CacheRepository
	RLLimit  int
	RLWindow time.Duration
}

// NewRouter wires the full HTTP surface. There is no auth middleware: the
// course catalog and enrollment endpoints are deliberately anonymous,
// identifying students only by the path-level student id.
func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Cache == nil {
		panic("rest.NewRouter: nil cache")
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Metrics)
	r.Use(HTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(RateLimit(d.Cache, d.RLLimit, d.RLWindow))
	r.Use(SecurityHeaders)

	r.Get("/health", d.Handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/students", d.Handler.ListStudents)
		r.Get("/students/{id}", d.Handler.GetStudent)
		r.Get("/students/{id}/schedule", d.Handler.GetStudentSchedule)
		r.Get("/students/{id}/enrollments", d.Handler.ListStudentEnrollments)
		r.Post("/students/{id}/enrollments", d.Handler.CreateEnrollment)
		r.Delete("/students/{id}/enrollments/{eid}", d.Handler.CancelEnrollment)

		r.Get("/courses", d.Handler.ListCourses)
		r.Get("/courses/{id}", d.Handler.GetCourse)

		r.Get("/professors", d.Handler.ListProfessors)
	})

	return r
}
