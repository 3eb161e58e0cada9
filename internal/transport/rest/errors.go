package rest

import (
	"errors"
	"net/http"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/coursehub/enrollment-service/internal/logging"
	"github.com/coursehub/enrollment-service/internal/transport/rest/reqctx"
	"github.com/coursehub/enrollment-service/internal/transport/rest/response"
)

// fail writes the error envelope, stamping whatever request id the
// RequestID middleware has already attached to the context.
func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]any) {
	response.Fail(w, status, code, message, meta, reqctx.RequestID(r.Context()))
}

// failValidation is the catch-all for malformed path/query parameters that
// never made it far enough to build a domain error.
func failValidation(w http.ResponseWriter, r *http.Request, err error) {
	fail(w, r, http.StatusBadRequest, "request.invalid", "invalid request parameters", map[string]any{"_": err.Error()})
}

// handleErr maps the domain's sentinel error taxonomy to HTTP status codes
// and machine-readable codes. It never forwards the raw error message for
// anything below ErrInternal/ErrDatabase: those are logged, not echoed.
func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	var domErr *domain.DomainError

	switch {
	case errors.Is(err, domain.ErrStudentNotFound):
		fail(w, r, http.StatusNotFound, "student.not_found", "student not found", nil)
	case errors.Is(err, domain.ErrCourseNotFound):
		fail(w, r, http.StatusNotFound, "course.not_found", "course not found", nil)
	case errors.Is(err, domain.ErrEnrollmentNotFound):
		fail(w, r, http.StatusNotFound, "enrollment.not_found", "enrollment not found", nil)

	case errors.Is(err, domain.ErrAlreadyEnrolled):
		fail(w, r, http.StatusConflict, "enrollment.already_enrolled", "student is already enrolled in this course", nil)

	case errors.Is(err, domain.ErrCreditExceeded):
		meta := map[string]any{}
		if errors.As(err, &domErr) && domErr.Credit != nil {
			meta["current_credits"] = domErr.Credit.CurrentCredits
			meta["adding_credits"] = domErr.Credit.AddingCredits
			meta["max_credits"] = domErr.Credit.MaxCredits
		}
		fail(w, r, http.StatusBadRequest, "enrollment.credit_exceeded", "enrolling would exceed the semester credit ceiling", meta)

	case errors.Is(err, domain.ErrCapacityExceeded):
		meta := map[string]any{}
		if errors.As(err, &domErr) && domErr.Cap != nil {
			meta["capacity"] = domErr.Cap.Capacity
			meta["enrolled"] = domErr.Cap.Enrolled
		}
		fail(w, r, http.StatusBadRequest, "enrollment.capacity_exceeded", "course has no open seats", meta)

	case errors.Is(err, domain.ErrTimeConflict):
		meta := map[string]any{}
		if errors.As(err, &domErr) && domErr.Time != nil {
			meta["conflicting_courses"] = domErr.Time.Conflicting
		}
		fail(w, r, http.StatusConflict, "enrollment.time_conflict", "course schedule conflicts with an existing enrollment", meta)

	case errors.Is(err, domain.ErrDeadlock):
		logging.WithCtx(r.Context()).Warn().Err(err).Msg("transient lock timeout")
		fail(w, r, http.StatusServiceUnavailable, "server.busy", "request could not be completed, try again", nil)

	case errors.Is(err, domain.ErrDatabase), errors.Is(err, domain.ErrInternal):
		logging.WithCtx(r.Context()).Error().Err(err).Msg("internal error handling request")
		fail(w, r, http.StatusInternalServerError, "server.internal", "an internal error occurred", nil)

	default:
		logging.WithCtx(r.Context()).Error().Err(err).Msg("unhandled error")
		fail(w, r, http.StatusInternalServerError, "server.internal", "an internal error occurred", nil)
	}
}
