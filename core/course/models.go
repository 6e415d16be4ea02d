package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Course struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	TeacherID   int       `json:"teacher_id" db:"teacher_id"`
	TeacherName string    `json:"teacher_name" db:"teacher_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Enrollment struct {
	ID             int       `json:"id" db:"id"`
	StudentID      int       `json:"student_id" db:"student_id"`
	CourseID       int       `json:"course_id" db:"course_id"`
	EnrollmentDate time.Time `json:"enrollment_date" db:"enrollment_date"`
}

// Student is an enrolled User as shown on a course roster.
type Student struct {
	ID             int       `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	EnrollmentDate time.Time `json:"enrollment_date" db:"enrollment_date"`
}

type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"max=5000"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type EnrollRequest struct {
	CourseID int `json:"course_id" form:"course_id" validate:"required,min=1"`
}

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(er)
}
