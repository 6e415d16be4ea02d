package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var ErrNotFound = core.NewNotFoundError("course")

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses lists all courses with their teacher name, newest first.
		QueryCourses(ctx context.Context) ([]Course, error)
		QueryCoursesByTeacher(ctx context.Context, teacherID int) ([]Course, error)
		QueryCoursesByStudent(ctx context.Context, studentID int) ([]Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		// DeleteCourse deletes the course only if it belongs to teacherID, reporting whether a row went away.
		DeleteCourse(ctx context.Context, id, teacherID int) (bool, error)

		// CreateEnrollment is a no-op returning false when the pair is already enrolled.
		CreateEnrollment(ctx context.Context, studentID, courseID int) (bool, error)
		EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error)
		// QueryEnrolledStudents lists the roster, latest enrollment first.
		QueryEnrolledStudents(ctx context.Context, courseID int) ([]Student, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse, teacherID int) (Course, error)
		ListAll(ctx context.Context) ([]Course, error)
		ListByTeacher(ctx context.Context, teacherID int) ([]Course, error)
		ListByStudent(ctx context.Context, studentID int) ([]Course, error)
		GetByID(ctx context.Context, id int) (Course, error)
		Enroll(ctx context.Context, studentID, courseID int) (bool, error)
		IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
		ListEnrolledStudents(ctx context.Context, courseID int) ([]Student, error)
		Delete(ctx context.Context, courseID, teacherID int) (bool, error)
		CanAccess(ctx context.Context, sess *user.Session, c Course) (bool, error)
		IsOwner(sess *user.Session, c Course) bool
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewCourse, teacherID int) (Course, error) {
	c, err := svc.repo.CreateCourse(ctx, Course{
		Title:       nc.Title,
		Description: nc.Description,
		TeacherID:   teacherID,
		CreatedAt:   core.NowFunc(),
	})
	return c, errors.Wrap(err, "creating course")
}

func (svc *service) ListAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *service) ListByTeacher(ctx context.Context, teacherID int) ([]Course, error) {
	return svc.repo.QueryCoursesByTeacher(ctx, teacherID)
}

func (svc *service) ListByStudent(ctx context.Context, studentID int) ([]Course, error) {
	return svc.repo.QueryCoursesByStudent(ctx, studentID)
}

func (svc *service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// Enroll enrolls the student once; it returns false without error if already enrolled.
func (svc *service) Enroll(ctx context.Context, studentID, courseID int) (bool, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return false, err
	}
	created, err := svc.repo.CreateEnrollment(ctx, studentID, courseID)
	return created, errors.Wrap(err, "enrolling student")
}

func (svc *service) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	return svc.repo.EnrollmentExists(ctx, studentID, courseID)
}

func (svc *service) ListEnrolledStudents(ctx context.Context, courseID int) ([]Student, error) {
	return svc.repo.QueryEnrolledStudents(ctx, courseID)
}

// Delete removes the course if teacherID owns it. Ownership check and delete are a single statement.
func (svc *service) Delete(ctx context.Context, courseID, teacherID int) (bool, error) {
	deleted, err := svc.repo.DeleteCourse(ctx, courseID, teacherID)
	return deleted, errors.Wrap(err, "deleting course")
}

// CanAccess reports whether the session may see course-scoped pages: the course teacher or an enrolled student.
func (svc *service) CanAccess(ctx context.Context, sess *user.Session, c Course) (bool, error) {
	switch {
	case sess.IsTeacher():
		return c.TeacherID == sess.UserID, nil
	case sess.IsStudent():
		return svc.IsEnrolled(ctx, sess.UserID, c.ID)
	}
	return false, nil
}

func (svc *service) IsOwner(sess *user.Session, c Course) bool {
	return sess.IsTeacher() && c.TeacherID == sess.UserID
}
