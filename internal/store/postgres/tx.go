package postgres

import (
	"context"
	"time"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Tx wraps a pgx.Tx and implements store.Tx. Every method here runs inside
// the transaction opened by Store.Tx, the same "one unit of work per
// operation" shape as the teacher's JoinEvent/CancelJoin.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) FindStudent(ctx context.Context, id int64) (domain.Student, error) {
	return findStudent(ctx, t.tx, id)
}

func (t *Tx) FindCourse(ctx context.Context, id int64) (domain.Course, error) {
	return findCourse(ctx, t.tx, id)
}

func (t *Tx) FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error) {
	return findSchedule(ctx, t.tx, courseID)
}

func (t *Tx) FindActiveEnrollment(ctx context.Context, studentID, courseID int64) (domain.Enrollment, bool, error) {
	return findActiveEnrollment(ctx, t.tx, studentID, courseID)
}

func (t *Tx) FindEnrollment(ctx context.Context, id int64) (domain.Enrollment, bool, error) {
	return findEnrollment(ctx, t.tx, id)
}

func (t *Tx) ListActiveEnrollments(ctx context.Context, studentID int64) ([]domain.Enrollment, error) {
	return listActiveEnrollments(ctx, t.tx, studentID)
}

func (t *Tx) SumActiveCredits(ctx context.Context, studentID int64) (int, error) {
	return sumActiveCredits(ctx, t.tx, studentID)
}

// ConditionalIncrementEnrolled is the seat-reservation primitive: a single
// UPDATE whose predicate (enrolled < capacity) and write are evaluated
// atomically by Postgres. This, not a read-then-write guarded only by the
// in-process course lock, is what keeps I-CAP across concurrent enrollers —
// see spec.md §4.3/§9.
func (t *Tx) ConditionalIncrementEnrolled(ctx context.Context, courseID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE courses
		SET enrolled = enrolled + 1
		WHERE id = $1 AND enrolled < capacity
	`, courseID)
	if err != nil {
		return false, wrapDBErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// ConditionalDecrementEnrolled is the mirror primitive used by Cancel. It
// is a safety net, not the primary mechanism: by the time Cancel reaches
// here the enrollment row already proved an active seat existed, so
// returning false means a prior operation already violated I-CAP.
func (t *Tx) ConditionalDecrementEnrolled(ctx context.Context, courseID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE courses
		SET enrolled = enrolled - 1
		WHERE id = $1 AND enrolled > 0
	`, courseID)
	if err != nil {
		return false, wrapDBErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *Tx) InsertEnrollment(ctx context.Context, studentID, courseID int64, at time.Time) (domain.Enrollment, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO enrollments (student_id, course_id, status, enrolled_at)
		VALUES ($1, $2, 'ENROLLED', $3)
		RETURNING id
	`, studentID, courseID, at).Scan(&id)
	if err != nil {
		return domain.Enrollment{}, wrapDBErr(err)
	}
	return domain.Enrollment{
		ID: id, StudentID: studentID, CourseID: courseID,
		Status: domain.StatusEnrolled, EnrolledAt: at,
	}, nil
}

func (t *Tx) UpdateEnrollmentStatus(ctx context.Context, id int64, status domain.EnrollmentStatus, at time.Time) (domain.Enrollment, error) {
	var e domain.Enrollment
	var st string
	var cancelledAt *time.Time
	if status == domain.StatusCancelled {
		cancelledAt = &at
	}
	err := t.tx.QueryRow(ctx, `
		UPDATE enrollments
		SET status = $2, cancelled_at = $3
		WHERE id = $1
		RETURNING id, student_id, course_id, status, enrolled_at, cancelled_at
	`, id, string(status), cancelledAt).Scan(&e.ID, &e.StudentID, &e.CourseID, &st, &e.EnrolledAt, &e.CancelledAt)
	if err != nil {
		return domain.Enrollment{}, wrapDBErr(err)
	}
	e.Status = domain.EnrollmentStatus(st)
	return e, nil
}

// InsertOutboxEvent writes a pending row for the outbox worker to publish.
// Mirrors the teacher's `INSERT INTO outbox (...) VALUES (..., 'pending')`
// call inside JoinEvent/CancelJoin.
func (t *Tx) InsertOutboxEvent(ctx context.Context, routingKey string, payload []byte) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO outbox (routing_key, payload, occurred_at, status)
		VALUES ($1, $2, NOW(), 'pending')
	`, routingKey, payload)
	return wrapDBErr(err)
}

func (t *Tx) Commit(ctx context.Context) error {
	return wrapDBErr(t.tx.Commit(ctx))
}

func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return wrapDBErr(err)
	}
	return nil
}
