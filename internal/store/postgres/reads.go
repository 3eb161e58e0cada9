package postgres

import (
	"context"
	"errors"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

func findStudent(ctx context.Context, q querier, id int64) (domain.Student, error) {
	var s domain.Student
	err := q.QueryRow(ctx, `
		SELECT id, student_id, name, email, department_id
		FROM students WHERE id = $1
	`, id).Scan(&s.ID, &s.StudentID, &s.Name, &s.Email, &s.DepartmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	if err != nil {
		return domain.Student{}, wrapDBErr(err)
	}
	return s, nil
}

func findCourse(ctx context.Context, q querier, id int64) (domain.Course, error) {
	var c domain.Course
	err := q.QueryRow(ctx, `
		SELECT id, code, name, credits, capacity, enrolled, professor_id, department_id
		FROM courses WHERE id = $1
	`, id).Scan(&c.ID, &c.Code, &c.Name, &c.Credits, &c.Capacity, &c.Enrolled, &c.ProfessorID, &c.DepartmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, wrapDBErr(err)
	}
	return c, nil
}

func findSchedule(ctx context.Context, q querier, courseID int64) (domain.Schedule, bool, error) {
	var sc domain.Schedule
	var day string
	var startMin, endMin int
	err := q.QueryRow(ctx, `
		SELECT course_id, day_of_week, start_minute, end_minute
		FROM schedules WHERE course_id = $1
	`, courseID).Scan(&sc.CourseID, &day, &startMin, &endMin)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Schedule{}, false, nil
	}
	if err != nil {
		return domain.Schedule{}, false, wrapDBErr(err)
	}
	sc.Day = domain.DayOfWeek(day)
	sc.StartTime = domain.Clock(startMin)
	sc.EndTime = domain.Clock(endMin)
	return sc, true, nil
}

func findEnrollment(ctx context.Context, q querier, id int64) (domain.Enrollment, bool, error) {
	var e domain.Enrollment
	var status string
	err := q.QueryRow(ctx, `
		SELECT id, student_id, course_id, status, enrolled_at, cancelled_at
		FROM enrollments WHERE id = $1
	`, id).Scan(&e.ID, &e.StudentID, &e.CourseID, &status, &e.EnrolledAt, &e.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, false, nil
	}
	if err != nil {
		return domain.Enrollment{}, false, wrapDBErr(err)
	}
	e.Status = domain.EnrollmentStatus(status)
	return e, true, nil
}

func findActiveEnrollment(ctx context.Context, q querier, studentID, courseID int64) (domain.Enrollment, bool, error) {
	var e domain.Enrollment
	var status string
	err := q.QueryRow(ctx, `
		SELECT id, student_id, course_id, status, enrolled_at, cancelled_at
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2 AND status = 'ENROLLED'
	`, studentID, courseID).Scan(&e.ID, &e.StudentID, &e.CourseID, &status, &e.EnrolledAt, &e.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, false, nil
	}
	if err != nil {
		return domain.Enrollment{}, false, wrapDBErr(err)
	}
	e.Status = domain.EnrollmentStatus(status)
	return e, true, nil
}

func listActiveEnrollments(ctx context.Context, q querier, studentID int64) ([]domain.Enrollment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, student_id, course_id, status, enrolled_at, cancelled_at
		FROM enrollments
		WHERE student_id = $1 AND status = 'ENROLLED'
		ORDER BY id
	`, studentID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		var e domain.Enrollment
		var status string
		if err := rows.Scan(&e.ID, &e.StudentID, &e.CourseID, &status, &e.EnrolledAt, &e.CancelledAt); err != nil {
			return nil, wrapDBErr(err)
		}
		e.Status = domain.EnrollmentStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(err)
	}
	return out, nil
}

func sumActiveCredits(ctx context.Context, q querier, studentID int64) (int, error) {
	var sum *int
	err := q.QueryRow(ctx, `
		SELECT SUM(c.credits)
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.student_id = $1 AND e.status = 'ENROLLED'
	`, studentID).Scan(&sum)
	if err != nil {
		return 0, wrapDBErr(err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (s *Store) ListStudents(ctx context.Context, skip, limit int) ([]domain.Student, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, name, email, department_id
		FROM students ORDER BY id OFFSET $1 LIMIT $2
	`, skip, limit)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []domain.Student
	for rows.Next() {
		var st domain.Student
		if err := rows.Scan(&st.ID, &st.StudentID, &st.Name, &st.Email, &st.DepartmentID); err != nil {
			return nil, wrapDBErr(err)
		}
		out = append(out, st)
	}
	return out, wrapDBErr(rows.Err())
}

func (s *Store) ListProfessors(ctx context.Context, skip, limit int) ([]domain.Professor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, department_id
		FROM professors ORDER BY id OFFSET $1 LIMIT $2
	`, skip, limit)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []domain.Professor
	for rows.Next() {
		var p domain.Professor
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.DepartmentID); err != nil {
			return nil, wrapDBErr(err)
		}
		out = append(out, p)
	}
	return out, wrapDBErr(rows.Err())
}

func (s *Store) ListCourses(ctx context.Context, departmentID *int64, skip, limit int) ([]domain.Course, error) {
	var rows pgx.Rows
	var err error
	if departmentID != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, code, name, credits, capacity, enrolled, professor_id, department_id
			FROM courses WHERE department_id = $1 ORDER BY id OFFSET $2 LIMIT $3
		`, *departmentID, skip, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, code, name, credits, capacity, enrolled, professor_id, department_id
			FROM courses ORDER BY id OFFSET $1 LIMIT $2
		`, skip, limit)
	}
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []domain.Course
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Credits, &c.Capacity, &c.Enrolled, &c.ProfessorID, &c.DepartmentID); err != nil {
			return nil, wrapDBErr(err)
		}
		out = append(out, c)
	}
	return out, wrapDBErr(rows.Err())
}

func (s *Store) ListEnrollments(ctx context.Context, studentID int64, status *domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, student_id, course_id, status, enrolled_at, cancelled_at
			FROM enrollments WHERE student_id = $1 AND status = $2 ORDER BY id
		`, studentID, string(*status))
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, student_id, course_id, status, enrolled_at, cancelled_at
			FROM enrollments WHERE student_id = $1 ORDER BY id
		`, studentID)
	}
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		var e domain.Enrollment
		var st string
		if err := rows.Scan(&e.ID, &e.StudentID, &e.CourseID, &st, &e.EnrolledAt, &e.CancelledAt); err != nil {
			return nil, wrapDBErr(err)
		}
		e.Status = domain.EnrollmentStatus(st)
		out = append(out, e)
	}
	return out, wrapDBErr(rows.Err())
}
