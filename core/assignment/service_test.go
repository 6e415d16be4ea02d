package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

var now = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo    assignment.Repository
	svc     assignment.Service
	course  course.Course
	student user.User
}

func setup(t *testing.T) fixture {
	t.Cleanup(testutil.MockNow(now))

	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.com", "", user.RoleTeacher)
	repo := dummydb.NewAssignmentRepository(db)
	return fixture{
		repo:    repo,
		svc:     assignment.NewService(repo),
		course:  testutil.CreateCourse(t, dummydb.NewCourseRepository(db), "Algebra", teacher),
		student: testutil.CreateUser(t, usrRepo, "Student", "student@test.com", "", user.RoleStudent),
	}
}

func TestNewAssignment_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()
	tests := []struct {
		name    string
		na      assignment.NewAssignment
		wantErr bool
	}{
		{name: "valid", na: assignment.NewAssignment{Title: "HW", Description: "do it", DueDate: "2024-03-12T23:59"}},
		{name: "with points", na: assignment.NewAssignment{Title: "HW", Description: "do it", DueDate: "2024-03-12", MaxPoints: "20"}},
		{name: "no title", na: assignment.NewAssignment{Description: "do it", DueDate: "2024-03-12"}, wantErr: true},
		{name: "no description", na: assignment.NewAssignment{Title: "HW", DueDate: "2024-03-12"}, wantErr: true},
		{name: "bad date", na: assignment.NewAssignment{Title: "HW", Description: "do it", DueDate: "tomorrow"}, wantErr: true},
		{name: "zero points", na: assignment.NewAssignment{Title: "HW", Description: "do it", DueDate: "2024-03-12", MaxPoints: "0"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGradeSubmission_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()
	grade := func(g float64) *float64 { return &g }
	tests := []struct {
		name    string
		grade   *float64
		wantErr bool
	}{
		{name: "zero", grade: grade(0)},
		{name: "hundred", grade: grade(100)},
		{name: "negative", grade: grade(-1), wantErr: true},
		{name: "above hundred", grade: grade(100.5), wantErr: true},
		{name: "missing", grade: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := assignment.GradeSubmission{StudentID: 1, Grade: tt.grade}
			err := gs.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	validate, _ := testutil.NewValidator()

	late := assignment.NewAssignment{Title: "HW 2", Description: "later", DueDate: "2024-03-20"}
	require.NoError(t, late.Validate(validate))
	early := assignment.NewAssignment{Title: "HW 1", Description: "sooner", DueDate: "2024-03-15", MaxPoints: "50"}
	require.NoError(t, early.Validate(validate))

	a2, err := f.svc.Create(ctx, late, f.course.ID, "")
	require.NoError(t, err)
	assert.Equal(t, assignment.DefaultMaxPoints, a2.MaxPoints)
	assert.Equal(t, "Algebra", a2.CourseTitle)

	a1, err := f.svc.Create(ctx, early, f.course.ID, "assignments/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, 50, a1.MaxPoints)

	list, err := f.svc.ListByCourse(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []int{a1.ID, a2.ID}, []int{list[0].ID, list[1].ID})

	require.NoError(t, f.svc.Delete(ctx, a1.ID))
	_, err = f.svc.GetByID(ctx, a1.ID)
	assert.Equal(t, assignment.ErrNotFound, err)
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	open := testutil.CreateAssignment(t, f.repo, f.course, "open", now.Add(24*time.Hour))
	closed := testutil.CreateAssignment(t, f.repo, f.course, "closed", now.Add(-time.Hour))

	t.Run("before due date", func(t *testing.T) {
		s, err := f.svc.Submit(ctx, open.ID, f.student.ID, "submissions/a.pdf")
		require.NoError(t, err)
		assert.Equal(t, now, s.SubmissionDate)
		assert.False(t, s.IsGraded())

		submitted, err := f.svc.IsSubmitted(ctx, open.ID, f.student.ID)
		require.NoError(t, err)
		assert.True(t, submitted)
	})

	t.Run("late first submission", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, closed.ID, f.student.ID, "submissions/b.pdf")
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, assignment.ErrPastDue, verr.Err)

		submitted, err := f.svc.IsSubmitted(ctx, closed.ID, f.student.ID)
		require.NoError(t, err)
		assert.False(t, submitted)
	})

	t.Run("late resubmission keeps the grade", func(t *testing.T) {
		g := 85.0
		_, err := f.svc.Grade(ctx, open.ID, assignment.GradeSubmission{StudentID: f.student.ID, Grade: &g, Feedback: "good"})
		require.NoError(t, err)

		later := now.Add(48 * time.Hour) // past the due date
		restore := testutil.MockNow(later)
		defer restore()

		s, err := f.svc.Submit(ctx, open.ID, f.student.ID, "submissions/c.pdf")
		require.NoError(t, err)
		assert.Equal(t, later, s.SubmissionDate)
		assert.Equal(t, "submissions/c.pdf", s.FilePath)
		require.NotNil(t, s.Grade)
		assert.Equal(t, 85.0, *s.Grade)
		assert.Equal(t, "good", s.Feedback)

		subs, err := f.svc.ListSubmissions(ctx, open.ID)
		require.NoError(t, err)
		assert.Len(t, subs, 1)
		assert.Equal(t, "Student", subs[0].StudentName)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, 9999, f.student.ID, "x")
		assert.Equal(t, assignment.ErrNotFound, err)
	})
}

func TestService_Grade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.repo, f.course, "HW", now.Add(time.Hour))
	g := 70.0

	_, err := f.svc.Grade(ctx, a.ID, assignment.GradeSubmission{StudentID: f.student.ID, Grade: &g})
	assert.Equal(t, assignment.ErrSubmissionNotFound, errors.Cause(err))

	s, err := f.svc.Submit(ctx, a.ID, f.student.ID, "submissions/a.pdf")
	require.NoError(t, err)

	_, err = f.svc.Grade(ctx, a.ID, assignment.GradeSubmission{SubmissionID: s.ID + 1, StudentID: f.student.ID, Grade: &g})
	assert.Equal(t, assignment.ErrSubmissionNotFound, err)

	graded, err := f.svc.Grade(ctx, a.ID, assignment.GradeSubmission{SubmissionID: s.ID, StudentID: f.student.ID, Grade: &g})
	require.NoError(t, err)
	require.True(t, graded.IsGraded())
	assert.Equal(t, 70.0, *graded.Grade)

	subs, err := f.svc.ListSubmissionsByStudent(ctx, f.course.ID, f.student.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.True(t, subs[0].IsGraded())
}
