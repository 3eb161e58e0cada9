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

// Cancel implements spec.md §4.4: acquire student+enrollment locks in
// sorted order, verify the enrollment belongs to the caller and is still
// active, release the seat, mark the enrollment cancelled, commit.
//
// A caller cancelling someone else's enrollment, or an enrollment that is
// already cancelled, sees the same ErrEnrollmentNotFound as a genuinely
// missing id — ownership is never leaked through a distinct error.
func (e *Engine) Cancel(ctx context.Context, studentID, enrollmentID int64) (cancelled domain.Enrollment, err error) {
	defer func() { metrics.CancelAttemptsTotal.WithLabelValues(cancelOutcome(err)).Inc() }()

	session := concurrency.Acquire(e.locks,
		concurrency.StudentKey(studentID),
		concurrency.EnrollmentKey(enrollmentID),
	)
	defer session.Release()

	tx, err := e.store.Tx(ctx)
	if err != nil {
		return domain.Enrollment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	enrollment, found, err := tx.FindEnrollment(ctx, enrollmentID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if !found || enrollment.StudentID != studentID || enrollment.Status != domain.StatusEnrolled {
		return domain.Enrollment{}, domain.ErrEnrollmentNotFound
	}

	released, err := tx.ConditionalDecrementEnrolled(ctx, enrollment.CourseID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if !released {
		// The enrollment row proved an active seat existed; failing to
		// release it here means capacity bookkeeping already drifted
		// from the enrollment ledger, which is an internal error, not a
		// condition the caller can act on.
		return domain.Enrollment{}, domain.ErrInternal
	}

	cancelled, err = tx.UpdateEnrollmentStatus(ctx, enrollment.ID, domain.StatusCancelled, time.Now().UTC())
	if err != nil {
		return domain.Enrollment{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"enrollment_id": cancelled.ID,
		"student_id":    cancelled.StudentID,
		"course_id":     cancelled.CourseID,
	})
	if err := tx.InsertOutboxEvent(ctx, "enrollment.canceled", payload); err != nil {
		return domain.Enrollment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Enrollment{}, err
	}
	return cancelled, nil
}

func cancelOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrEnrollmentNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInternal):
		return "internal_error"
	default:
		return "error"
	}
}
