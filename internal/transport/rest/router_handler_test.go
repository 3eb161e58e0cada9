package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coursehub/enrollment-service/internal/concurrency"
	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/coursehub/enrollment-service/internal/engine"
	"github.com/coursehub/enrollment-service/internal/query"
	"github.com/coursehub/enrollment-service/internal/store"
	"github.com/stretchr/testify/require"
)

// fakeCache is an in-memory domain.CacheRepository, the same role the
// teacher's router tests fill with a fake redis substitute.
type fakeCache struct {
	allow bool
	open  map[int64]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{allow: true, open: map[int64]int{}}
}

func (c *fakeCache) GetCourseOpen(ctx context.Context, courseID int64) (int, error) {
	v, ok := c.open[courseID]
	if !ok {
		return 0, domain.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) SetCourseOpen(ctx context.Context, courseID int64, open int) error {
	c.open[courseID] = open
	return nil
}

func (c *fakeCache) InvalidateCourseOpen(ctx context.Context, courseID int64) error {
	delete(c.open, courseID)
	return nil
}

func (c *fakeCache) AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return c.allow, nil
}

// fakeStore is the minimal store.Store this package's tests exercise the
// router/handler plumbing against; the engine's own ordering and
// atomicity guarantees are covered in internal/engine, not here.
type fakeStore struct {
	students    map[int64]domain.Student
	courses     map[int64]domain.Course
	enrollments map[int64]domain.Enrollment
}

func (f *fakeStore) Tx(ctx context.Context) (store.Tx, error) { return &fakeTx{f: f}, nil }

func (f *fakeStore) FindStudent(ctx context.Context, id int64) (domain.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeStore) FindCourse(ctx context.Context, id int64) (domain.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return c, nil
}

func (f *fakeStore) FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error) {
	return domain.Schedule{}, false, nil
}

func (f *fakeStore) ListStudents(ctx context.Context, skip, limit int) ([]domain.Student, error) {
	var out []domain.Student
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ListProfessors(ctx context.Context, skip, limit int) ([]domain.Professor, error) {
	return nil, nil
}

func (f *fakeStore) ListCourses(ctx context.Context, departmentID *int64, skip, limit int) ([]domain.Course, error) {
	return nil, nil
}

func (f *fakeStore) ListEnrollments(ctx context.Context, studentID int64, status *domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	return nil, nil
}

type fakeTx struct{ f *fakeStore }

func (t *fakeTx) FindStudent(ctx context.Context, id int64) (domain.Student, error) {
	return t.f.FindStudent(ctx, id)
}
func (t *fakeTx) FindCourse(ctx context.Context, id int64) (domain.Course, error) {
	return t.f.FindCourse(ctx, id)
}
func (t *fakeTx) FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error) {
	return domain.Schedule{}, false, nil
}
func (t *fakeTx) FindActiveEnrollment(ctx context.Context, studentID, courseID int64) (domain.Enrollment, bool, error) {
	for _, e := range t.f.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == domain.StatusEnrolled {
			return e, true, nil
		}
	}
	return domain.Enrollment{}, false, nil
}
func (t *fakeTx) FindEnrollment(ctx context.Context, id int64) (domain.Enrollment, bool, error) {
	e, ok := t.f.enrollments[id]
	return e, ok, nil
}
func (t *fakeTx) ListActiveEnrollments(ctx context.Context, studentID int64) ([]domain.Enrollment, error) {
	return nil, nil
}
func (t *fakeTx) SumActiveCredits(ctx context.Context, studentID int64) (int, error) { return 0, nil }
func (t *fakeTx) ConditionalIncrementEnrolled(ctx context.Context, courseID int64) (bool, error) {
	c := t.f.courses[courseID]
	if c.Enrolled >= c.Capacity {
		return false, nil
	}
	c.Enrolled++
	t.f.courses[courseID] = c
	return true, nil
}
func (t *fakeTx) ConditionalDecrementEnrolled(ctx context.Context, courseID int64) (bool, error) {
	return true, nil
}
func (t *fakeTx) InsertEnrollment(ctx context.Context, studentID, courseID int64, at time.Time) (domain.Enrollment, error) {
	e := domain.Enrollment{ID: 1, StudentID: studentID, CourseID: courseID, Status: domain.StatusEnrolled, EnrolledAt: at}
	t.f.enrollments[e.ID] = e
	return e, nil
}
func (t *fakeTx) UpdateEnrollmentStatus(ctx context.Context, id int64, status domain.EnrollmentStatus, at time.Time) (domain.Enrollment, error) {
	return domain.Enrollment{}, nil
}
func (t *fakeTx) InsertOutboxEvent(ctx context.Context, routingKey string, payload []byte) error {
	return nil
}
func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

func newTestRouter(fs *fakeStore, c *fakeCache) http.Handler {
	eng := engine.New(fs, concurrency.NewRegistry(), 18)
	qsvc := query.New(fs, c)
	h := NewHandler(eng, qsvc, pingerFunc(func(ctx context.Context) error { return nil }), c)
	return NewRouter(RouterDeps{Handler: h, Cache: c, RLLimit: 100, RLWindow: time.Minute})
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Data
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code
}

func decodeErrorMeta(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error struct {
			Meta map[string]any `json:"meta"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Meta
}

func TestNewRouter_PanicsOnNilDeps(t *testing.T) {
	c := newFakeCache()
	h := NewHandler(nil, nil, nil, c)

	require.Panics(t, func() {
		_ = NewRouter(RouterDeps{Handler: nil, Cache: c})
	})
	require.Panics(t, func() {
		_ = NewRouter(RouterDeps{Handler: h, Cache: nil})
	})
}

func TestRouter_CreateEnrollment_InvalidJSON_400(t *testing.T) {
	fs := &fakeStore{
		students:    map[int64]domain.Student{1: {ID: 1, Name: "Ada"}},
		courses:     map[int64]domain.Course{},
		enrollments: map[int64]domain.Enrollment{},
	}
	r := newTestRouter(fs, newFakeCache())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/1/enrollments", bytes.NewBufferString("{bad"))
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "request.invalid", decodeErrorCode(t, rr))
	require.Equal(t, "rid-1", rr.Header().Get("X-Request-Id"))
}

func TestRouter_CreateEnrollment_Success_201(t *testing.T) {
	fs := &fakeStore{
		students:    map[int64]domain.Student{1: {ID: 1, Name: "Ada"}},
		courses:     map[int64]domain.Course{10: {ID: 10, Credits: 3, Capacity: 5, Enrolled: 0}},
		enrollments: map[int64]domain.Enrollment{},
	}
	r := newTestRouter(fs, newFakeCache())

	body := `{"course_id":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/1/enrollments", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	data := decodeData(t, rr)
	require.EqualValues(t, 10, data["course_id"])
}

func TestRouter_CreateEnrollment_CachedFull_400WithCapacityMeta(t *testing.T) {
	fs := &fakeStore{
		students:    map[int64]domain.Student{1: {ID: 1, Name: "Ada"}},
		courses:     map[int64]domain.Course{10: {ID: 10, Credits: 3, Capacity: 5, Enrolled: 5}},
		enrollments: map[int64]domain.Enrollment{},
	}
	c := newFakeCache()
	c.open[10] = 0
	r := newTestRouter(fs, c)

	body := `{"course_id":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/1/enrollments", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "enrollment.capacity_exceeded", decodeErrorCode(t, rr))
	meta := decodeErrorMeta(t, rr)
	require.EqualValues(t, 5, meta["capacity"])
	require.EqualValues(t, 5, meta["enrolled"])
}

func TestRouter_GetStudent_NotFound_404(t *testing.T) {
	fs := &fakeStore{students: map[int64]domain.Student{}, courses: map[int64]domain.Course{}, enrollments: map[int64]domain.Enrollment{}}
	r := newTestRouter(fs, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/99", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "student.not_found", decodeErrorCode(t, rr))
}

func TestRouter_RateLimit_429(t *testing.T) {
	fs := &fakeStore{students: map[int64]domain.Student{}, courses: map[int64]domain.Course{}, enrollments: map[int64]domain.Enrollment{}}
	c := newFakeCache()
	c.allow = false
	r := newTestRouter(fs, c)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/1", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRouter_SecurityHeaders_PresentOnOK(t *testing.T) {
	fs := &fakeStore{students: map[int64]domain.Student{1: {ID: 1, Name: "Ada"}}, courses: map[int64]domain.Course{}, enrollments: map[int64]domain.Enrollment{}}
	r := newTestRouter(fs, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/1", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src")
}

func TestRouter_Health_200(t *testing.T) {
	fs := &fakeStore{students: map[int64]domain.Student{}, courses: map[int64]domain.Course{}, enrollments: map[int64]domain.Enrollment{}}
	r := newTestRouter(fs, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}
