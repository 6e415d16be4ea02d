package assignment

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	ErrNotFound           = core.NewNotFoundError("assignment")
	ErrSubmissionNotFound = core.NewNotFoundError("submission")
	ErrPastDue            = errors.New("the due date for this assignment has passed")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// QueryAssignmentsByCourse lists the course assignments, earliest due date first.
		QueryAssignmentsByCourse(ctx context.Context, courseID int) ([]Assignment, error)
		// QueryAllAssignments lists every assignment with its course teacher.
		QueryAllAssignments(ctx context.Context) ([]Assignment, error)
		// GetAssignmentByID returns the assignment joined with its course title and teacher.
		GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int) error

		GetSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
		// UpsertSubmission inserts the submission, or updates file path and date of the existing one.
		// Grade and feedback of an existing submission are left untouched.
		UpsertSubmission(ctx context.Context, s Submission) (Submission, error)
		// QuerySubmissionsByAssignment lists submissions with the student name, latest first.
		QuerySubmissionsByAssignment(ctx context.Context, assignmentID int) ([]Submission, error)
		// QuerySubmissionsByStudent lists a student's submissions in a course.
		QuerySubmissionsByStudent(ctx context.Context, courseID, studentID int) ([]Submission, error)
		GradeSubmission(ctx context.Context, assignmentID, studentID int, grade float64, feedback string) (Submission, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAssignment, courseID int, filePath string) (Assignment, error)
		ListByCourse(ctx context.Context, courseID int) ([]Assignment, error)
		ListAll(ctx context.Context) ([]Assignment, error)
		GetByID(ctx context.Context, id int) (Assignment, error)
		Delete(ctx context.Context, id int) error
		Submit(ctx context.Context, assignmentID, studentID int, filePath string) (Submission, error)
		IsSubmitted(ctx context.Context, assignmentID, studentID int) (bool, error)
		GetSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
		ListSubmissions(ctx context.Context, assignmentID int) ([]Submission, error)
		ListSubmissionsByStudent(ctx context.Context, courseID, studentID int) ([]Submission, error)
		Grade(ctx context.Context, assignmentID int, gs GradeSubmission) (Submission, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, na NewAssignment, courseID int, filePath string) (Assignment, error) {
	a, err := svc.repo.CreateAssignment(ctx, Assignment{
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.dueDate,
		FilePath:    filePath,
		MaxPoints:   na.maxPoints,
		CreatedAt:   core.NowFunc(),
	})
	return a, errors.Wrap(err, "creating assignment")
}

func (svc *service) ListByCourse(ctx context.Context, courseID int) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByCourse(ctx, courseID)
}

func (svc *service) ListAll(ctx context.Context) ([]Assignment, error) {
	return svc.repo.QueryAllAssignments(ctx)
}

func (svc *service) GetByID(ctx context.Context, id int) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteAssignment(ctx, id)
}

// Submit stores the student's file. A first submission after the due date is refused;
// replacing an existing submission is allowed at any time and keeps its grade.
func (svc *service) Submit(ctx context.Context, assignmentID, studentID int, filePath string) (Submission, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	now := core.NowFunc()
	submitted, err := svc.IsSubmitted(ctx, assignmentID, studentID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "checking submission")
	}
	if !submitted && a.IsPastDue(now) {
		return Submission{}, core.NewValidationError(ErrPastDue)
	}

	s, err := svc.repo.UpsertSubmission(ctx, Submission{
		AssignmentID:   assignmentID,
		StudentID:      studentID,
		FilePath:       filePath,
		SubmissionDate: now,
	})
	return s, errors.Wrap(err, "saving submission")
}

func (svc *service) IsSubmitted(ctx context.Context, assignmentID, studentID int) (bool, error) {
	if _, err := svc.repo.GetSubmission(ctx, assignmentID, studentID); err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *service) GetSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error) {
	return svc.repo.GetSubmission(ctx, assignmentID, studentID)
}

func (svc *service) ListSubmissions(ctx context.Context, assignmentID int) ([]Submission, error) {
	return svc.repo.QuerySubmissionsByAssignment(ctx, assignmentID)
}

func (svc *service) ListSubmissionsByStudent(ctx context.Context, courseID, studentID int) ([]Submission, error) {
	return svc.repo.QuerySubmissionsByStudent(ctx, courseID, studentID)
}

// Grade records the grade. gs must have been validated (grade within [0, 100]).
// A non-zero SubmissionID must match the student's submission.
func (svc *service) Grade(ctx context.Context, assignmentID int, gs GradeSubmission) (Submission, error) {
	if gs.SubmissionID != 0 {
		s, err := svc.repo.GetSubmission(ctx, assignmentID, gs.StudentID)
		if err != nil {
			return Submission{}, err
		}
		if s.ID != gs.SubmissionID {
			return Submission{}, ErrSubmissionNotFound
		}
	}
	s, err := svc.repo.GradeSubmission(ctx, assignmentID, gs.StudentID, *gs.Grade, gs.Feedback)
	if err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return Submission{}, err
		}
		return Submission{}, errors.Wrap(err, "grading submission")
	}
	return s, nil
}
