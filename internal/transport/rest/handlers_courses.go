package rest

import (
	"net/http"
	"strconv"

	"github.com/coursehub/enrollment-service/internal/transport/rest/response"
)

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		failValidation(w, r, err)
		return
	}

	var deptID *int64
	if s := r.URL.Query().Get("department_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			fail(w, r, http.StatusBadRequest, "request.invalid", "department_id must be an integer", nil)
			return
		}
		deptID = &id
	}

	courses, err := h.query.ListCourses(r.Context(), deptID, skip, limit)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, courses)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		failValidation(w, r, err)
		return
	}
	course, err := h.query.GetCourse(r.Context(), id)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, course)
}

func (h *Handler) ListProfessors(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		failValidation(w, r, err)
		return
	}
	professors, err := h.query.ListProfessors(r.Context(), skip, limit)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, professors)
}
