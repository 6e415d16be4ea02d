package assignment

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

const DefaultMaxPoints = 100

type Assignment struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"course_id"`
	CourseTitle string    `json:"course_title,omitempty"`
	TeacherID   int       `json:"teacher_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	FilePath    string    `json:"file_path,omitempty"`
	MaxPoints   int       `json:"max_points"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsPastDue reports whether t is after the due date.
func (a Assignment) IsPastDue(t time.Time) bool {
	return t.After(a.DueDate)
}

type Submission struct {
	ID             int       `json:"id"`
	AssignmentID   int       `json:"assignment_id"`
	StudentID      int       `json:"student_id"`
	StudentName    string    `json:"student_name,omitempty"`
	FilePath       string    `json:"file_path"`
	SubmissionDate time.Time `json:"submission_date"`
	Grade          *float64  `json:"grade"` // nil: ungraded
	Feedback       string    `json:"feedback,omitempty"`
}

func (s Submission) IsGraded() bool {
	return s.Grade != nil
}

// NewAssignment holds the (multipart) form fields of a new Assignment.
type NewAssignment struct {
	Title       string `form:"title" validate:"required,notblank,max=255"`
	Description string `form:"description" validate:"required,notblank"`
	DueDate     string `form:"due_date" validate:"required"`
	MaxPoints   string `form:"max_points" validate:"omitempty,numeric"`

	dueDate   time.Time
	maxPoints int
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.MaxPoints = core.CleanString(na.MaxPoints)

	if err := validate.Struct(na); err != nil {
		return err
	}

	due, err := core.ParseDateTime(na.DueDate)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: "invalid date"})
	}
	na.dueDate = due

	na.maxPoints = DefaultMaxPoints
	if na.MaxPoints != "" {
		mp, err := strconv.Atoi(na.MaxPoints)
		if err != nil || mp <= 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "max_points", Error: "must be a positive number"})
		}
		na.maxPoints = mp
	}
	return nil
}

// GradeSubmission is the grading form. Grade must lie in [0, 100]; the ledger itself does not check it.
type GradeSubmission struct {
	SubmissionID int      `json:"submission_id" form:"submission_id"`
	StudentID    int      `json:"student_id" form:"student_id" validate:"required,min=1"`
	Grade        *float64 `json:"grade" form:"grade" validate:"required,min=0,max=100"`
	Feedback     string   `json:"feedback" form:"feedback" validate:"max=5000"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}
