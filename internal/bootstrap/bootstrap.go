// Package bootstrap seeds a fresh database with enough departments,
// professors, courses, schedules and students to exercise the API,
// restart-safe the same way the auth-service's postgres.SeedUsers is:
// departments, professors and courses upsert on their unique key (so
// RETURNING yields the existing id), and schedules and students are
// ON CONFLICT DO NOTHING, so running it twice adds no rows.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var departmentNames = []string{
	"Computer Science", "Mathematics", "Physics", "History", "Economics",
	"Biology", "Chemistry", "Philosophy", "Electrical Engineering", "Psychology",
}

var dayCycle = []string{"MON", "TUE", "WED", "THU", "FRI"}

// Counts controls how many rows of each kind to seed. Zero skips that
// kind entirely.
type Counts struct {
	Departments int
	Professors  int
	Courses     int
	Students    int
}

// Run seeds departments, professors, courses (each with one schedule) and
// students, in that dependency order. Like the auth-service's SeedUsers,
// it never aborts the run on a single bad row: each seed* helper logs and
// skips past its own insert failures, because a partially-seeded database
// is still useful for manual testing.
func Run(ctx context.Context, pool *pgxpool.Pool, c Counts, log zerolog.Logger) error {
	deptIDs := seedDepartments(ctx, pool, c.Departments, log)
	log.Info().Int("count", len(deptIDs)).Msg("departments seeded")

	if len(deptIDs) == 0 {
		return nil
	}

	profIDs := seedProfessors(ctx, pool, c.Professors, deptIDs, log)
	log.Info().Int("count", len(profIDs)).Msg("professors seeded")

	if len(profIDs) > 0 {
		courseIDs := seedCourses(ctx, pool, c.Courses, deptIDs, profIDs, log)
		log.Info().Int("count", len(courseIDs)).Msg("courses seeded")
	}

	studentCount := seedStudents(ctx, pool, c.Students, deptIDs, log)
	log.Info().Int("count", studentCount).Msg("students seeded")

	return nil
}

func seedDepartments(ctx context.Context, pool *pgxpool.Pool, n int, log zerolog.Logger) []int64 {
	var ids []int64
	for i := 0; i < n; i++ {
		name := departmentNames[i%len(departmentNames)]
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO departments (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name).Scan(&id)
		if err != nil {
			log.Warn().Err(err).Str("name", name).Msg("seed department failed, skipping")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func seedProfessors(ctx context.Context, pool *pgxpool.Pool, n int, deptIDs []int64, log zerolog.Logger) []int64 {
	var ids []int64
	for i := 0; i < n; i++ {
		dept := deptIDs[i%len(deptIDs)]
		name := fmt.Sprintf("Professor %d", i+1)
		email := fmt.Sprintf("professor%d@university.edu", i+1)
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO professors (name, email, department_id) VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name, email, dept).Scan(&id)
		if err != nil {
			log.Warn().Err(err).Str("email", email).Msg("seed professor failed, skipping")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func seedCourses(ctx context.Context, pool *pgxpool.Pool, n int, deptIDs, profIDs []int64, log zerolog.Logger) []int64 {
	var ids []int64
	for i := 0; i < n; i++ {
		dept := deptIDs[i%len(deptIDs)]
		prof := profIDs[i%len(profIDs)]
		code := fmt.Sprintf("CRS%04d", i+1)
		name := fmt.Sprintf("Course %d", i+1)
		credits := 3 + (i % 2)
		capacity := 20 + (i%4)*10

		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO courses (code, name, credits, capacity, enrolled, professor_id, department_id)
			VALUES ($1, $2, $3, $4, 0, $5, $6)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, code, name, credits, capacity, prof, dept).Scan(&id)
		if err != nil {
			log.Warn().Err(err).Str("code", code).Msg("seed course failed, skipping")
			continue
		}
		ids = append(ids, id)

		day := dayCycle[i%len(dayCycle)]
		startMinute := 480 + (i%6)*60 // 08:00 .. 13:00
		endMinute := startMinute + 50
		_, err = pool.Exec(ctx, `
			INSERT INTO schedules (course_id, day_of_week, start_minute, end_minute)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (course_id) DO NOTHING
		`, id, day, startMinute, endMinute)
		if err != nil {
			log.Warn().Err(err).Str("code", code).Msg("seed schedule failed, skipping")
		}
	}
	return ids
}

func seedStudents(ctx context.Context, pool *pgxpool.Pool, n int, deptIDs []int64, log zerolog.Logger) int {
	count := 0
	for i := 0; i < n; i++ {
		dept := deptIDs[i%len(deptIDs)]
		studentID := fmt.Sprintf("S%06d", i+1)
		name := fmt.Sprintf("Student %d", i+1)
		email := fmt.Sprintf("student%d@university.edu", i+1)

		tag, err := pool.Exec(ctx, `
			INSERT INTO students (student_id, name, email, department_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (student_id) DO NOTHING
		`, studentID, name, email, dept)
		if err != nil {
			log.Warn().Err(err).Str("student_id", studentID).Msg("seed student failed, skipping")
			continue
		}
		count += int(tag.RowsAffected())
	}
	return count
}
