package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

const courseSelect = `
	SELECT c.id, c.title, c.description, c.teacher_id, u.name AS teacher_name, c.created_at
	FROM courses c JOIN users u ON u.id = c.teacher_id`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) query(ctx context.Context, q string, args ...interface{}) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	if err := repo.db.SelectContext(ctx, &courses, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	const q = `
		WITH c AS (
			INSERT INTO courses (title, description, teacher_id, created_at) VALUES ($1, $2, $3, $4) RETURNING *
		)
		SELECT c.id, c.title, c.description, c.teacher_id, u.name AS teacher_name, c.created_at
		FROM c JOIN users u ON u.id = c.teacher_id`
	var created course.Course
	if err := repo.db.GetContext(ctx, &created, q, c.Title, c.Description, c.TeacherID, c.CreatedAt.UTC()); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return created, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	return repo.query(ctx, courseSelect+` ORDER BY c.created_at DESC, c.id DESC`)
}

func (repo *courseRepository) QueryCoursesByTeacher(ctx context.Context, teacherID int) ([]course.Course, error) {
	return repo.query(ctx, courseSelect+` WHERE c.teacher_id = $1 ORDER BY c.created_at DESC, c.id DESC`, teacherID)
}

func (repo *courseRepository) QueryCoursesByStudent(ctx context.Context, studentID int) ([]course.Course, error) {
	return repo.query(ctx, courseSelect+`
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.created_at DESC, c.id DESC`, studentID)
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var c course.Course
	if err := repo.db.GetContext(ctx, &c, courseSelect+` WHERE c.id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course by ID")
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id, teacherID int) (bool, error) {
	n, err := rowsAffected(repo.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1 AND teacher_id = $2`, id, teacherID))
	if err != nil {
		return false, errors.Wrap(err, "deleting course")
	}
	return n > 0, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, studentID, courseID int) (bool, error) {
	const q = `
		INSERT INTO enrollments (student_id, course_id, enrollment_date) VALUES ($1, $2, $3)
		ON CONFLICT (student_id, course_id) DO NOTHING`
	n, err := rowsAffected(repo.db.ExecContext(ctx, q, studentID, courseID, core.NowFunc().UTC()))
	if err != nil {
		return false, trapFKErr(err, course.ErrNotFound, "inserting enrollment")
	}
	return n > 0, nil
}

func (repo *courseRepository) EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, studentID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo *courseRepository) QueryEnrolledStudents(ctx context.Context, courseID int) ([]course.Student, error) {
	const q = `
		SELECT u.id, u.name, u.email, e.enrollment_date
		FROM enrollments e JOIN users u ON u.id = e.student_id
		WHERE e.course_id = $1
		ORDER BY e.enrollment_date DESC, e.id DESC`
	students := make([]course.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return students, nil
}
