package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coursehub/enrollment-service/internal/concurrency"
	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/coursehub/enrollment-service/internal/metrics"
)

// Enroll implements spec.md §4.3: acquire course+student locks in sorted
// order, validate duplicate/credit/conflict/capacity in that order, reserve
// the seat atomically, insert the enrollment row, commit.
//
// Ordering is material: duplicate and credit are cheap point lookups;
// conflict requires walking the student's existing schedules; capacity is
// the contested resource and so runs last, immediately before commit, to
// minimise the window between deciding to reserve and reserving.
func (e *Engine) Enroll(ctx context.Context, studentID, courseID int64) (enrollment domain.Enrollment, err error) {
	defer func() { metrics.EnrollAttemptsTotal.WithLabelValues(enrollOutcome(err)).Inc() }()

	session := concurrency.Acquire(e.locks,
		concurrency.CourseKey(courseID),
		concurrency.StudentKey(studentID),
	)
	defer session.Release()

	tx, err := e.store.Tx(ctx)
	if err != nil {
		return domain.Enrollment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	student, err := tx.FindStudent(ctx, studentID)
	if err != nil {
		return domain.Enrollment{}, err
	}

	course, err := tx.FindCourse(ctx, courseID)
	if err != nil {
		return domain.Enrollment{}, err
	}

	if _, found, err := tx.FindActiveEnrollment(ctx, student.ID, course.ID); err != nil {
		return domain.Enrollment{}, err
	} else if found {
		return domain.Enrollment{}, domain.ErrAlreadyEnrolled
	}

	current, err := tx.SumActiveCredits(ctx, student.ID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if current+course.Credits > e.maxCredits {
		return domain.Enrollment{}, domain.NewCreditExceeded(current, course.Credits, e.maxCredits)
	}

	if conflicts, err := e.conflictingCourses(ctx, tx, student.ID, course.ID); err != nil {
		return domain.Enrollment{}, err
	} else if len(conflicts) > 0 {
		return domain.Enrollment{}, domain.NewTimeConflict(conflicts)
	}

	reserved, err := tx.ConditionalIncrementEnrolled(ctx, course.ID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if !reserved {
		reloaded, rerr := tx.FindCourse(ctx, course.ID)
		if rerr != nil {
			return domain.Enrollment{}, rerr
		}
		return domain.Enrollment{}, domain.NewCapacityExceeded(reloaded.Capacity, reloaded.Enrolled)
	}

	enrollment, err = tx.InsertEnrollment(ctx, student.ID, course.ID, time.Now().UTC())
	if err != nil {
		return domain.Enrollment{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"enrollment_id": enrollment.ID,
		"student_id":    student.ID,
		"course_id":     course.ID,
	})
	if err := tx.InsertOutboxEvent(ctx, "enrollment.created", payload); err != nil {
		return domain.Enrollment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Enrollment{}, err
	}
	return enrollment, nil
}

// conflictingCourses loads the course's own schedule (skipping the check
// entirely if it has none) and every schedule behind the student's current
// active enrollments, returning every course whose meeting time overlaps.
func (e *Engine) conflictingCourses(ctx context.Context, tx txReader, studentID, courseID int64) ([]domain.ConflictingCourse, error) {
	targetSchedule, hasSchedule, err := tx.FindSchedule(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !hasSchedule {
		return nil, nil
	}

	active, err := tx.ListActiveEnrollments(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var conflicts []domain.ConflictingCourse
	for _, enr := range active {
		existingSchedule, ok, err := tx.FindSchedule(ctx, enr.CourseID)
		if err != nil {
			return nil, err
		}
		if !ok || !existingSchedule.Overlaps(targetSchedule) {
			continue
		}
		existingCourse, err := tx.FindCourse(ctx, enr.CourseID)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, domain.ConflictingCourse{
			CourseID: existingCourse.ID,
			Name:     existingCourse.Name,
			Schedule: existingSchedule.String(),
		})
	}
	return conflicts, nil
}

// txReader is the subset of store.Tx the conflict check needs, kept narrow
// so it is trivial to satisfy from tests.
type txReader interface {
	FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error)
	FindCourse(ctx context.Context, id int64) (domain.Course, error)
	ListActiveEnrollments(ctx context.Context, studentID int64) ([]domain.Enrollment, error)
}

func enrollOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, domain.ErrCreditExceeded):
		return "credit_exceeded"
	case errors.Is(err, domain.ErrTimeConflict):
		return "time_conflict"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrStudentNotFound), errors.Is(err, domain.ErrCourseNotFound):
		return "not_found"
	default:
		return "error"
	}
}
