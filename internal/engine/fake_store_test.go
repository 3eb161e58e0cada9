package engine

import (
	"context"
	"sync"
	"time"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/coursehub/enrollment-service/internal/store"
)

// fakeStore is an in-memory store.Store used to unit-test the engine's
// ordering and atomicity contracts without a database, the way the
// teacher's service tests substitute a fake JoinRepository. All state lives
// behind a single mutex: the engine already serialises same-course and
// same-student operations through the lock registry, but a capacity
// stampede test drives distinct courses/students concurrently, and Go maps
// are not safe for that without one.
type fakeStore struct {
	mu          sync.Mutex
	students    map[int64]domain.Student
	courses     map[int64]domain.Course
	schedules   map[int64]domain.Schedule
	enrollments map[int64]domain.Enrollment
	nextID      int64
	outbox      []fakeOutboxEvent
}

type fakeOutboxEvent struct {
	routingKey string
	payload    []byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		students:    make(map[int64]domain.Student),
		courses:     make(map[int64]domain.Course),
		schedules:   make(map[int64]domain.Schedule),
		enrollments: make(map[int64]domain.Enrollment),
	}
}

func (f *fakeStore) Tx(ctx context.Context) (store.Tx, error) {
	return &fakeTx{f: f}, nil
}

func (f *fakeStore) FindStudent(ctx context.Context, id int64) (domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeStore) FindCourse(ctx context.Context, id int64) (domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return c, nil
}

func (f *fakeStore) FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.schedules[courseID]
	return sc, ok, nil
}

func (f *fakeStore) ListStudents(ctx context.Context, skip, limit int) ([]domain.Student, error) {
	return nil, nil
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

// fakeTx writes straight through to the parent store's maps. It does not
// undo writes on Rollback: nothing in this package's tests depends on a
// failure after a partial write being reverted, and modelling real
// snapshot isolation would only obscure what each test checks.
type fakeTx struct {
	f *fakeStore
}

func (t *fakeTx) FindStudent(ctx context.Context, id int64) (domain.Student, error) {
	return t.f.FindStudent(ctx, id)
}

func (t *fakeTx) FindCourse(ctx context.Context, id int64) (domain.Course, error) {
	return t.f.FindCourse(ctx, id)
}

func (t *fakeTx) FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error) {
	return t.f.FindSchedule(ctx, courseID)
}

func (t *fakeTx) FindActiveEnrollment(ctx context.Context, studentID, courseID int64) (domain.Enrollment, bool, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	for _, e := range t.f.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == domain.StatusEnrolled {
			return e, true, nil
		}
	}
	return domain.Enrollment{}, false, nil
}

func (t *fakeTx) FindEnrollment(ctx context.Context, id int64) (domain.Enrollment, bool, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	e, ok := t.f.enrollments[id]
	return e, ok, nil
}

func (t *fakeTx) ListActiveEnrollments(ctx context.Context, studentID int64) ([]domain.Enrollment, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	var out []domain.Enrollment
	for _, e := range t.f.enrollments {
		if e.StudentID == studentID && e.Status == domain.StatusEnrolled {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *fakeTx) SumActiveCredits(ctx context.Context, studentID int64) (int, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	sum := 0
	for _, e := range t.f.enrollments {
		if e.StudentID == studentID && e.Status == domain.StatusEnrolled {
			sum += t.f.courses[e.CourseID].Credits
		}
	}
	return sum, nil
}

func (t *fakeTx) ConditionalIncrementEnrolled(ctx context.Context, courseID int64) (bool, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	c, ok := t.f.courses[courseID]
	if !ok || c.Enrolled >= c.Capacity {
		return false, nil
	}
	c.Enrolled++
	t.f.courses[courseID] = c
	return true, nil
}

func (t *fakeTx) ConditionalDecrementEnrolled(ctx context.Context, courseID int64) (bool, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	c, ok := t.f.courses[courseID]
	if !ok || c.Enrolled <= 0 {
		return false, nil
	}
	c.Enrolled--
	t.f.courses[courseID] = c
	return true, nil
}

func (t *fakeTx) InsertEnrollment(ctx context.Context, studentID, courseID int64, at time.Time) (domain.Enrollment, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	t.f.nextID++
	e := domain.Enrollment{ID: t.f.nextID, StudentID: studentID, CourseID: courseID, Status: domain.StatusEnrolled, EnrolledAt: at}
	t.f.enrollments[e.ID] = e
	return e, nil
}

func (t *fakeTx) UpdateEnrollmentStatus(ctx context.Context, id int64, status domain.EnrollmentStatus, at time.Time) (domain.Enrollment, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	e := t.f.enrollments[id]
	e.Status = status
	if status == domain.StatusCancelled {
		e.CancelledAt = &at
	}
	t.f.enrollments[id] = e
	return e, nil
}

func (t *fakeTx) InsertOutboxEvent(ctx context.Context, routingKey string, payload []byte) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	t.f.outbox = append(t.f.outbox, fakeOutboxEvent{routingKey: routingKey, payload: payload})
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }
