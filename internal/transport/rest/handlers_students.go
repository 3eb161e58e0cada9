package rest

import (
	"net/http"
	"strconv"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/coursehub/enrollment-service/internal/transport/rest/response"
)

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		failValidation(w, r, err)
		return
	}
	students, err := h.query.ListStudents(r.Context(), skip, limit)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, students)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		failValidation(w, r, err)
		return
	}
	student, err := h.query.GetStudent(r.Context(), id)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, student)
}

func (h *Handler) GetStudentSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		failValidation(w, r, err)
		return
	}
	sched, err := h.query.GetStudentSchedule(r.Context(), id)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, sched)
}

func (h *Handler) ListStudentEnrollments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		failValidation(w, r, err)
		return
	}

	var status *domain.EnrollmentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.EnrollmentStatus(s)
		status = &st
	}

	enrollments, err := h.query.ListEnrollments(r.Context(), id, status)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, enrollments)
}

func (h *Handler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		failValidation(w, r, err)
		return
	}

	var req enrollRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	req.StudentID = studentID
	if err := validate.Struct(req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "validation failed", validationMeta(err))
		return
	}

	// Fast-fail against the cached open-seat count before touching
	// Postgres at all. A cache miss or a stale "open" reading falls
	// through to the engine, which re-derives the real count from the
	// conditional UPDATE regardless.
	if h.cache != nil {
		if open, err := h.cache.GetCourseOpen(r.Context(), req.CourseID); err == nil && open <= 0 {
			meta := map[string]any{}
			if course, cErr := h.query.GetCourse(r.Context(), req.CourseID); cErr == nil {
				meta["capacity"] = course.Capacity
				meta["enrolled"] = course.Enrolled
			}
			fail(w, r, http.StatusBadRequest, "enrollment.capacity_exceeded", "course has no open seats", meta)
			return
		}
	}

	enrollment, err := h.engine.Enroll(r.Context(), studentID, req.CourseID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	if h.cache != nil {
		_ = h.cache.InvalidateCourseOpen(r.Context(), req.CourseID)
	}
	response.Data(w, http.StatusCreated, enrollment)
}

func (h *Handler) CancelEnrollment(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		failValidation(w, r, err)
		return
	}
	enrollmentID, err := pathID(r, "eid")
	if err != nil {
		failValidation(w, r, err)
		return
	}

	enrollment, err := h.engine.Cancel(r.Context(), studentID, enrollmentID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	if h.cache != nil {
		_ = h.cache.InvalidateCourseOpen(r.Context(), enrollment.CourseID)
	}
	response.Data(w, http.StatusOK, enrollment)
}

func pathID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}
