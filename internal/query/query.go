// Package query implements the read-only projections the HTTP layer
// serves: student schedules, paged course/professor/student listings, and
// per-student enrollment history. None of these touch the lock registry or
// a transaction — they are plain reads against the store, the same
// pass-through shape as the teacher's JoinService read methods.
package query

import (
	"context"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/coursehub/enrollment-service/internal/store"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

type Service struct {
	store store.Store
	cache domain.CacheRepository
}

// New builds a query service. c may be nil, in which case GetCourse skips
// populating the open-seat cache the enrollment handler fast-fails
// against.
func New(s store.Store, c domain.CacheRepository) *Service {
	return &Service{store: s, cache: c}
}

// clampLimit keeps callers inside [1, MaxLimit], defaulting to
// DefaultLimit when the caller passes zero.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

type ScheduleEntry struct {
	CourseID     int64  `json:"course_id"`
	CourseCode   string `json:"course_code"`
	CourseName   string `json:"course_name"`
	Credits      int    `json:"credits"`
	Capacity     int    `json:"capacity"`
	Enrolled     int    `json:"enrolled"`
	ProfessorID  int64  `json:"professor_id"`
	DepartmentID int64  `json:"department_id"`
	Schedule     string `json:"schedule"`
}

// StudentSchedule is the {student_id, student_name, total_credits,
// courses[]} projection over a student's active enrollments.
type StudentSchedule struct {
	StudentID    int64           `json:"student_id"`
	StudentName  string          `json:"student_name"`
	TotalCredits int             `json:"total_credits"`
	Courses      []ScheduleEntry `json:"courses"`
}

func (s *Service) GetStudentSchedule(ctx context.Context, studentID int64) (StudentSchedule, error) {
	student, err := s.store.FindStudent(ctx, studentID)
	if err != nil {
		return StudentSchedule{}, err
	}

	status := domain.StatusEnrolled
	enrollments, err := s.store.ListEnrollments(ctx, studentID, &status)
	if err != nil {
		return StudentSchedule{}, err
	}

	out := StudentSchedule{StudentID: student.ID, StudentName: student.Name}
	for _, enr := range enrollments {
		course, err := s.store.FindCourse(ctx, enr.CourseID)
		if err != nil {
			return StudentSchedule{}, err
		}
		out.TotalCredits += course.Credits

		entry := ScheduleEntry{
			CourseID:     course.ID,
			CourseCode:   course.Code,
			CourseName:   course.Name,
			Credits:      course.Credits,
			Capacity:     course.Capacity,
			Enrolled:     course.Enrolled,
			ProfessorID:  course.ProfessorID,
			DepartmentID: course.DepartmentID,
		}
		if sc, ok, err := s.store.FindSchedule(ctx, course.ID); err != nil {
			return StudentSchedule{}, err
		} else if ok {
			entry.Schedule = sc.String()
		}
		out.Courses = append(out.Courses, entry)
	}
	return out, nil
}

func (s *Service) GetStudent(ctx context.Context, id int64) (domain.Student, error) {
	return s.store.FindStudent(ctx, id)
}

// GetCourse also refreshes the open-seat cache the enrollment endpoint
// checks before touching Postgres, so a course's own catalog page being
// viewed is what keeps that fast-path warm.
func (s *Service) GetCourse(ctx context.Context, id int64) (domain.Course, error) {
	course, err := s.store.FindCourse(ctx, id)
	if err != nil {
		return domain.Course{}, err
	}
	if s.cache != nil {
		_ = s.cache.SetCourseOpen(ctx, course.ID, course.Capacity-course.Enrolled)
	}
	return course, nil
}

func (s *Service) ListStudents(ctx context.Context, skip, limit int) ([]domain.Student, error) {
	return s.store.ListStudents(ctx, skip, clampLimit(limit))
}

func (s *Service) ListProfessors(ctx context.Context, skip, limit int) ([]domain.Professor, error) {
	return s.store.ListProfessors(ctx, skip, clampLimit(limit))
}

func (s *Service) ListCourses(ctx context.Context, departmentID *int64, skip, limit int) ([]domain.Course, error) {
	return s.store.ListCourses(ctx, departmentID, skip, clampLimit(limit))
}

func (s *Service) ListEnrollments(ctx context.Context, studentID int64, status *domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	return s.store.ListEnrollments(ctx, studentID, status)
}
