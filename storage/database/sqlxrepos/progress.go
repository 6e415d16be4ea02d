package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) StudentCourseCounts(ctx context.Context, studentID, courseID int) (progress.Counts, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM assignments WHERE course_id = $2) AS total,
			COUNT(s.id) AS completed,
			COALESCE(SUM(s.grade), 0) AS grade_sum
		FROM submissions s JOIN assignments a ON a.id = s.assignment_id
		WHERE a.course_id = $2 AND s.student_id = $1 AND s.grade IS NOT NULL`
	var counts progress.Counts
	if err := repo.db.GetContext(ctx, &counts, q, studentID, courseID); err != nil {
		return progress.Counts{}, errors.Wrap(err, "counting student progress")
	}
	return counts, nil
}

func (repo *progressRepository) CourseCounts(ctx context.Context, courseID int) (progress.CourseCounts, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM enrollments WHERE course_id = $1) AS students,
			(SELECT COUNT(*) FROM assignments WHERE course_id = $1) AS assignments,
			COUNT(s.id) AS submissions,
			COUNT(s.grade) AS graded,
			COALESCE(SUM(s.grade), 0) AS grade_sum
		FROM submissions s JOIN assignments a ON a.id = s.assignment_id
		WHERE a.course_id = $1`
	var counts progress.CourseCounts
	if err := repo.db.GetContext(ctx, &counts, q, courseID); err != nil {
		return progress.CourseCounts{}, errors.Wrap(err, "counting course stats")
	}
	return counts, nil
}

func (repo *progressRepository) StudentCourses(ctx context.Context, studentID int) ([]progress.CourseRef, error) {
	const q = `
		SELECT c.id, c.title
		FROM courses c JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.id`
	courses := make([]progress.CourseRef, 0)
	if err := repo.db.SelectContext(ctx, &courses, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student courses")
	}
	return courses, nil
}

func (repo *progressRepository) CourseStudents(ctx context.Context, courseID int) ([]progress.StudentRef, error) {
	const q = `
		SELECT u.id, u.name, u.email
		FROM users u JOIN enrollments e ON e.student_id = u.id
		WHERE e.course_id = $1
		ORDER BY u.id`
	students := make([]progress.StudentRef, 0)
	if err := repo.db.SelectContext(ctx, &students, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course students")
	}
	return students, nil
}
