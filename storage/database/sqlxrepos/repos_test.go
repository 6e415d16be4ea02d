package sqlxrepos_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/database"
	"github.com/trezcool/darasa/storage/database/sqlxrepos"
	testutil "github.com/trezcool/darasa/tests"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties every table.
func openTestDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db, "up"))
	_, err = db.Exec(`TRUNCATE users, courses, enrollments, assignments, submissions,
		calendar_events, event_reminders, chat_messages RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	usr := testutil.CreateUser(t, repo, "Ada", "Ada@Example.com", "Sup3rS3cret!", user.RoleTeacher)
	assert.Equal(t, "ada@example.com", usr.Email)
	assert.True(t, usr.LastLogin.IsZero())

	_, err := repo.CreateUser(ctx, user.User{Name: "Other", Email: "ADA@example.com", Role: user.RoleStudent})
	assert.Equal(t, user.ErrEmailExists, err)

	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "ada@EXAMPLE.com"))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "ada@example.com", usr))

	got, err := repo.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("Sup3rS3cret!"))

	got.Bio = "math"
	got.LastLogin = time.Now().UTC()
	got, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "math", got.Bio)
	assert.False(t, got.LastLogin.IsZero())

	_, err = repo.GetUserByID(ctx, usr.ID+100)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestCourseAndAssignmentRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	assignments := sqlxrepos.NewAssignmentRepository(db)
	progress := sqlxrepos.NewProgressRepository(db)

	teacher := testutil.CreateUser(t, users, "Teach", "teach@example.com", "", user.RoleTeacher)
	student := testutil.CreateUser(t, users, "Stu", "stu@example.com", "", user.RoleStudent)
	c := testutil.CreateCourse(t, courses, "Algebra", teacher)
	assert.Equal(t, "Teach", c.TeacherName)

	created, err := courses.CreateEnrollment(ctx, student.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = courses.CreateEnrollment(ctx, student.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = courses.CreateEnrollment(ctx, student.ID, c.ID+100)
	assert.Equal(t, course.ErrNotFound, err)

	roster, err := courses.QueryEnrolledStudents(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Stu", roster[0].Name)

	a := testutil.CreateAssignment(t, assignments, c, "HW1", time.Now().Add(24*time.Hour))
	assert.Equal(t, "Algebra", a.CourseTitle)
	assert.Equal(t, teacher.ID, a.TeacherID)

	sub, err := assignments.UpsertSubmission(ctx, assignment.Submission{
		AssignmentID: a.ID, StudentID: student.ID, FilePath: "submissions/a.pdf", SubmissionDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, sub.IsGraded())

	_, err = assignments.GradeSubmission(ctx, a.ID, teacher.ID, 50, "")
	assert.Equal(t, assignment.ErrSubmissionNotFound, err)

	sub, err = assignments.GradeSubmission(ctx, a.ID, student.ID, 85, "good")
	require.NoError(t, err)
	require.NotNil(t, sub.Grade)
	assert.Equal(t, 85.0, *sub.Grade)

	sub, err = assignments.UpsertSubmission(ctx, assignment.Submission{
		AssignmentID: a.ID, StudentID: student.ID, FilePath: "submissions/b.pdf", SubmissionDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "submissions/b.pdf", sub.FilePath)
	require.NotNil(t, sub.Grade)
	assert.Equal(t, "good", sub.Feedback)

	counts, err := progress.StudentCourseCounts(ctx, student.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, 1, counts.Completed)
	assert.Equal(t, 85.0, counts.GradeSum)

	stats, err := progress.CourseCounts(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Students)
	assert.Equal(t, 1, stats.Graded)

	deleted, err := courses.DeleteCourse(ctx, c.ID, student.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = courses.DeleteCourse(ctx, c.ID, teacher.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = assignments.GetAssignmentByID(ctx, a.ID)
	assert.Equal(t, assignment.ErrNotFound, err)
}

func TestCalendarRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewCalendarRepository(db)

	teacher := testutil.CreateUser(t, users, "Teach", "teach@example.com", "", user.RoleTeacher)
	student := testutil.CreateUser(t, users, "Stu", "stu@example.com", "", user.RoleStudent)
	c := testutil.CreateCourse(t, courses, "Algebra", teacher)
	testutil.Enroll(t, courses, student, c)

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ev := calendar.Event{
		Title: "Exam", EventType: calendar.EventExam, Start: day, End: day.Add(2 * time.Hour),
		CourseID: &c.ID, CreatedBy: teacher.ID, CreatedAt: time.Now().UTC(),
	}
	created, err := repo.CreateEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", created.CourseTitle)
	require.NotNil(t, created.CourseTeacherID)
	assert.Equal(t, teacher.ID, *created.CourseTeacherID)

	ok, err := repo.CreateEventIfNotExists(ctx, ev)
	require.NoError(t, err)
	assert.False(t, ok)

	march := &calendar.DateRange{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC),
	}
	for _, role := range []user.Role{user.RoleTeacher, user.RoleStudent} {
		id := teacher.ID
		if role == user.RoleStudent {
			id = student.ID
		}
		events, err := repo.QueryEvents(ctx, calendar.EventFilter{UserID: id, Role: role, Range: march})
		require.NoError(t, err)
		assert.Len(t, events, 1, role)
	}

	rem, err := repo.CreateReminder(ctx, calendar.Reminder{UserID: student.ID, EventID: created.ID, ReminderTime: day.Add(-24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "Exam", rem.EventTitle)

	due, err := repo.QueryDueReminders(ctx, day)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "stu@example.com", due[0].UserEmail)
	assert.Equal(t, "Algebra", due[0].CourseTitle)

	require.NoError(t, repo.MarkReminderSent(ctx, rem.ID))
	due, err = repo.QueryDueReminders(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.Equal(t, calendar.ErrReminderNotFound, repo.DeleteReminder(ctx, rem.ID, teacher.ID))
	assert.NoError(t, repo.DeleteReminder(ctx, rem.ID, student.ID))
}

func TestCalendarSync_LongAssignmentTitle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	assignments := sqlxrepos.NewAssignmentRepository(db)

	teacher := testutil.CreateUser(t, users, "Teach", "teach@example.com", "", user.RoleTeacher)
	c := testutil.CreateCourse(t, courses, "Algebra", teacher)
	due := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	long := strings.Repeat("a", 255)
	testutil.CreateAssignment(t, assignments, c, long, due)
	testutil.CreateAssignment(t, assignments, c, "Homework", due)

	conf := core.NewTestConfig()
	svc := calendar.NewService(
		sqlxrepos.NewCalendarRepository(db),
		course.NewService(courses),
		assignment.NewService(assignments),
		emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger(conf)),
	)

	created, err := svc.SyncAssignmentsToCalendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	events, err := svc.EventsByCourse(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, long+" (Due)", events[0].Title)
}

func TestChatRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewChatRepository(db)

	teacher := testutil.CreateUser(t, users, "Teach", "teach@example.com", "", user.RoleTeacher)
	c := testutil.CreateCourse(t, courses, "Algebra", teacher)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_, err := repo.CreateMessage(ctx, chat.Message{
			CourseID: c.ID, UserID: teacher.ID, UserName: teacher.Name, UserRole: teacher.Role,
			Message: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	msgs, err := repo.QueryLatestMessages(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "c", msgs[0].Message)
	assert.Equal(t, "b", msgs[1].Message)
	assert.Equal(t, user.RoleTeacher, msgs[0].UserRole)
}
