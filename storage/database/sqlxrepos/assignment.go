package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
)

const (
	assignmentColumns = `a.id, a.course_id, c.title AS course_title, c.teacher_id, a.title, a.description,
		a.due_date, a.file_path, a.max_points, a.created_at`
	assignmentSelect = `SELECT ` + assignmentColumns + ` FROM assignments a JOIN courses c ON c.id = a.course_id`

	submissionColumns = `s.id, s.assignment_id, s.student_id, u.name AS student_name, s.file_path,
		s.submission_date, s.grade, s.feedback`
	submissionSelect = `SELECT ` + submissionColumns + ` FROM submissions s JOIN users u ON u.id = s.student_id`
)

type assignmentRow struct {
	ID          int         `db:"id"`
	CourseID    int         `db:"course_id"`
	CourseTitle string      `db:"course_title"`
	TeacherID   int         `db:"teacher_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	DueDate     time.Time   `db:"due_date"`
	FilePath    null.String `db:"file_path"`
	MaxPoints   int         `db:"max_points"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r assignmentRow) unboil() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		CourseTitle: r.CourseTitle,
		TeacherID:   r.TeacherID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.UTC(),
		FilePath:    r.FilePath.String,
		MaxPoints:   r.MaxPoints,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type submissionRow struct {
	ID             int          `db:"id"`
	AssignmentID   int          `db:"assignment_id"`
	StudentID      int          `db:"student_id"`
	StudentName    string       `db:"student_name"`
	FilePath       string       `db:"file_path"`
	SubmissionDate time.Time    `db:"submission_date"`
	Grade          null.Float64 `db:"grade"`
	Feedback       null.String  `db:"feedback"`
}

func (r submissionRow) unboil() assignment.Submission {
	return assignment.Submission{
		ID:             r.ID,
		AssignmentID:   r.AssignmentID,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		FilePath:       r.FilePath,
		SubmissionDate: r.SubmissionDate.UTC(),
		Grade:          r.Grade.Ptr(),
		Feedback:       r.Feedback.String,
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) queryAssignments(ctx context.Context, q string, args ...interface{}) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.unboil())
	}
	return assignments, nil
}

func (repo *assignmentRepository) querySubmissions(ctx context.Context, q string, args ...interface{}) ([]assignment.Submission, error) {
	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.unboil())
	}
	return subs, nil
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	const q = `
		WITH a AS (
			INSERT INTO assignments (course_id, title, description, due_date, file_path, max_points, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT ` + assignmentColumns + ` FROM a JOIN courses c ON c.id = a.course_id`
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, q,
		a.CourseID, a.Title, a.Description, a.DueDate.UTC(),
		null.NewString(a.FilePath, a.FilePath != ""),
		a.MaxPoints, a.CreatedAt.UTC())
	if err != nil {
		return assignment.Assignment{}, trapFKErr(err, course.ErrNotFound, "inserting assignment")
	}
	return row.unboil(), nil
}

func (repo *assignmentRepository) QueryAssignmentsByCourse(ctx context.Context, courseID int) ([]assignment.Assignment, error) {
	return repo.queryAssignments(ctx, assignmentSelect+` WHERE a.course_id = $1 ORDER BY a.due_date, a.id`, courseID)
}

func (repo *assignmentRepository) QueryAllAssignments(ctx context.Context) ([]assignment.Assignment, error) {
	return repo.queryAssignments(ctx, assignmentSelect+` ORDER BY a.id`)
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id int) (assignment.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, assignmentSelect+` WHERE a.id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment by ID")
	}
	return row.unboil(), nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id int) error {
	n, err := rowsAffected(repo.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id))
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID int) (assignment.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, submissionSelect+` WHERE s.assignment_id = $1 AND s.student_id = $2`, assignmentID, studentID)
	if err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return row.unboil(), nil
}

func (repo *assignmentRepository) UpsertSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	const q = `
		WITH s AS (
			INSERT INTO submissions (assignment_id, student_id, file_path, submission_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (assignment_id, student_id)
			DO UPDATE SET file_path = EXCLUDED.file_path, submission_date = EXCLUDED.submission_date
			RETURNING *
		)
		SELECT ` + submissionColumns + ` FROM s JOIN users u ON u.id = s.student_id`
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, q, s.AssignmentID, s.StudentID, s.FilePath, s.SubmissionDate.UTC()); err != nil {
		return assignment.Submission{}, trapFKErr(err, assignment.ErrNotFound, "upserting submission")
	}
	return row.unboil(), nil
}

func (repo *assignmentRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID int) ([]assignment.Submission, error) {
	return repo.querySubmissions(ctx,
		submissionSelect+` WHERE s.assignment_id = $1 ORDER BY s.submission_date DESC, s.id DESC`, assignmentID)
}

func (repo *assignmentRepository) QuerySubmissionsByStudent(ctx context.Context, courseID, studentID int) ([]assignment.Submission, error) {
	return repo.querySubmissions(ctx, submissionSelect+`
		JOIN assignments a ON a.id = s.assignment_id
		WHERE a.course_id = $1 AND s.student_id = $2
		ORDER BY s.submission_date DESC, s.id DESC`, courseID, studentID)
}

func (repo *assignmentRepository) GradeSubmission(
	ctx context.Context,
	assignmentID, studentID int,
	grade float64,
	feedback string,
) (assignment.Submission, error) {
	const q = `
		WITH s AS (
			UPDATE submissions SET grade = $3, feedback = $4
			WHERE assignment_id = $1 AND student_id = $2
			RETURNING *
		)
		SELECT ` + submissionColumns + ` FROM s JOIN users u ON u.id = s.student_id`
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, q, assignmentID, studentID, grade, null.NewString(feedback, feedback != ""))
	if err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "grading submission")
	}
	return row.unboil(), nil
}
