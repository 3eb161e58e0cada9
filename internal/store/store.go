// Package store defines the persistence ports the engine and query
// services depend on. The postgres subpackage is the only implementation;
// the engine's unit tests use an in-memory fake implementing the same
// interface, the way the teacher's service tests substitute a fake
// JoinRepository.
package store

import (
	"context"
	"time"

	"github.com/coursehub/enrollment-service/internal/domain"
)

// Store is the transactional unit of work the engine borrows for the
// duration of one enroll/cancel operation. Tx starts it; the returned Tx
// must be committed or rolled back by the caller.
type Store interface {
	Tx(ctx context.Context) (Tx, error)

	FindStudent(ctx context.Context, id int64) (domain.Student, error)
	FindCourse(ctx context.Context, id int64) (domain.Course, error)
	FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error)

	ListStudents(ctx context.Context, skip, limit int) ([]domain.Student, error)
	ListProfessors(ctx context.Context, skip, limit int) ([]domain.Professor, error)
	ListCourses(ctx context.Context, departmentID *int64, skip, limit int) ([]domain.Course, error)
	ListEnrollments(ctx context.Context, studentID int64, status *domain.EnrollmentStatus) ([]domain.Enrollment, error)
}

// Tx is the per-operation unit of work the engine drives. All primitives
// from spec.md §4.1 live here so they execute inside the same database
// transaction the engine commits at the end of Enroll/Cancel.
type Tx interface {
	FindStudent(ctx context.Context, id int64) (domain.Student, error)
	FindCourse(ctx context.Context, id int64) (domain.Course, error)
	FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error)
	FindActiveEnrollment(ctx context.Context, studentID, courseID int64) (domain.Enrollment, bool, error)
	FindEnrollment(ctx context.Context, id int64) (domain.Enrollment, bool, error)
	ListActiveEnrollments(ctx context.Context, studentID int64) ([]domain.Enrollment, error)
	SumActiveCredits(ctx context.Context, studentID int64) (int, error)

	// ConditionalIncrementEnrolled atomically performs:
	// "if enrolled < capacity, set enrolled = enrolled + 1 and return true;
	// otherwise return false." The only primitive permitted to reserve a
	// seat.
	ConditionalIncrementEnrolled(ctx context.Context, courseID int64) (bool, error)

	// ConditionalDecrementEnrolled atomically performs:
	// "if enrolled > 0, set enrolled = enrolled - 1 and return true; else
	// false."
	ConditionalDecrementEnrolled(ctx context.Context, courseID int64) (bool, error)

	InsertEnrollment(ctx context.Context, studentID, courseID int64, at time.Time) (domain.Enrollment, error)
	UpdateEnrollmentStatus(ctx context.Context, id int64, status domain.EnrollmentStatus, at time.Time) (domain.Enrollment, error)

	// InsertOutboxEvent records a notification event in the same
	// transaction as the state change that produced it, so a crash
	// between commit and publish never loses the event (and a rollback
	// never leaves a phantom one). See internal/outbox.
	InsertOutboxEvent(ctx context.Context, routingKey string, payload []byte) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ErrNotFound is a generic "no row matches" error. The postgres finders do
// not return it: they return the specific domain sentinel
// (ErrStudentNotFound etc.) or a found=false flag themselves, because the
// same low-level "no rows" condition means different things depending on
// which finder raised it.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }
