package tests

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

var pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func TestAssignmentApi_SubmitAndGrade(t *testing.T) {
	env := setup(t)
	env.register(t, "Teach", "teach@example.com", user.RoleTeacher)
	stu := env.register(t, "Stu", "stu@example.com", user.RoleStudent)
	env.register(t, "Outsider", "out@example.com", user.RoleStudent)
	teacher := env.login(t, "teach@example.com")
	student := env.login(t, "stu@example.com")
	outsider := env.login(t, "out@example.com")

	c := env.createCourse(t, teacher, "Go")
	require.Equal(t, http.StatusCreated, env.enroll(t, student, c.ID).Code)

	due := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02T15:04")
	fields := map[string]string{"title": "Essay", "description": "Write it", "due_date": due}

	t.Run("student cannot create", func(t *testing.T) {
		rec := env.upload(t, coursePath(c.ID, "/assignments"), student, fields, "", "", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid due date", func(t *testing.T) {
		rec := env.upload(t, coursePath(c.ID, "/assignments"), teacher,
			map[string]string{"title": "Essay", "description": "Write it", "due_date": "someday"}, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := env.upload(t, coursePath(c.ID, "/assignments"), teacher, fields, "file", "brief.pdf", pdf)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a assignment.Assignment
	decode(t, rec, &a)
	assert.Equal(t, assignment.DefaultMaxPoints, a.MaxPoints)
	assert.NotEmpty(t, a.FilePath)

	t.Run("brief download", func(t *testing.T) {
		rec := env.do(http.MethodGet, assignmentPath(a.ID, "/file"), student)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pdf, rec.Body.Bytes())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	})

	t.Run("outsider cannot see", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, assignmentPath(a.ID, ""), outsider).Code)
	})

	t.Run("outsider cannot submit", func(t *testing.T) {
		rec := env.upload(t, assignmentPath(a.ID, "/submission"), outsider, nil, "file", "mine.pdf", pdf)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("file required", func(t *testing.T) {
		rec := env.upload(t, assignmentPath(a.ID, "/submission"), student, map[string]string{"x": "y"}, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec = env.upload(t, assignmentPath(a.ID, "/submission"), student, nil, "file", "mine.pdf", pdf)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s assignment.Submission
	decode(t, rec, &s)
	assert.Equal(t, stu.ID, s.StudentID)
	assert.Nil(t, s.Grade)

	t.Run("grade out of range", func(t *testing.T) {
		rec := env.do(http.MethodPost, assignmentPath(a.ID, "/grade"), teacher,
			marshalObj(t, map[string]interface{}{"student_id": stu.ID, "grade": 101}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("student cannot grade", func(t *testing.T) {
		rec := env.do(http.MethodPost, assignmentPath(a.ID, "/grade"), student,
			marshalObj(t, map[string]interface{}{"student_id": stu.ID, "grade": 100}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec = env.do(http.MethodPost, assignmentPath(a.ID, "/grade"), teacher,
		marshalObj(t, map[string]interface{}{"student_id": stu.ID, "grade": 85, "feedback": "Good"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &s)
	require.NotNil(t, s.Grade)
	assert.Equal(t, 85.0, *s.Grade)
	assert.Equal(t, "Good", s.Feedback)

	t.Run("submissions list", func(t *testing.T) {
		rec := env.do(http.MethodGet, assignmentPath(a.ID, "/submissions"), teacher)
		require.Equal(t, http.StatusOK, rec.Code)
		var subs []assignment.Submission
		decode(t, rec, &subs)
		require.Len(t, subs, 1)
		assert.Equal(t, "Stu", subs[0].StudentName)
	})

	t.Run("submission file", func(t *testing.T) {
		path := assignmentPath(a.ID, "/submissions/"+itoa(stu.ID)+"/file")
		assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, teacher).Code)
		assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, student).Code)
		assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, path, outsider).Code)
	})

	t.Run("course progress", func(t *testing.T) {
		rec := env.do(http.MethodGet, coursePath(c.ID, "/progress"), student)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var cp progress.CourseProgress
		decode(t, rec, &cp)
		assert.Equal(t, 1, cp.Total)
		assert.Equal(t, 1, cp.Completed)
		assert.Equal(t, 100.0, cp.Percentage)
		assert.Equal(t, 85.0, cp.GradeAverage)
		assert.Equal(t, "Go", cp.CourseTitle)
	})

	t.Run("course stats", func(t *testing.T) {
		rec := env.do(http.MethodGet, coursePath(c.ID, "/stats"), teacher)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.CourseStatsResponse
		decode(t, rec, &resp)
		assert.Equal(t, progress.CourseStats{
			Students: 1, Assignments: 1, Submissions: 1, AverageGrade: 85, SubmissionRate: 100,
		}, resp.Stats)
		require.Len(t, resp.Students, 1)
		assert.Equal(t, 100.0, resp.Students[0].Percentage)
	})

	t.Run("resubmission keeps the grade", func(t *testing.T) {
		rec := env.upload(t, assignmentPath(a.ID, "/submission"), student, nil, "file", "v2.pdf", pdf)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s2 assignment.Submission
		decode(t, rec, &s2)
		assert.Equal(t, s.ID, s2.ID)
		require.NotNil(t, s2.Grade)
		assert.Equal(t, 85.0, *s2.Grade)
	})
}

func TestAssignmentApi_DueDate(t *testing.T) {
	env := setup(t)
	teach := env.register(t, "Teach", "teach@example.com", user.RoleTeacher)
	env.register(t, "Early", "early@example.com", user.RoleStudent)
	env.register(t, "Late", "late@example.com", user.RoleStudent)
	teacher := env.login(t, "teach@example.com")
	early := env.login(t, "early@example.com")
	late := env.login(t, "late@example.com")

	c := env.createCourse(t, teacher, "Go")
	require.Equal(t, http.StatusCreated, env.enroll(t, early, c.ID).Code)
	require.Equal(t, http.StatusCreated, env.enroll(t, late, c.ID).Code)

	crs, err := env.crsRepo.GetCourseByID(bgCtx, c.ID)
	require.NoError(t, err)
	require.Equal(t, teach.ID, crs.TeacherID)
	due := time.Now().UTC().Add(-time.Hour)
	a := testutil.CreateAssignment(t, env.asgRepo, crs, "Essay", due)

	// early bird submits before the due date
	restore := testutil.MockNow(due.Add(-time.Hour))
	rec := env.upload(t, assignmentPath(a.ID, "/submission"), early, nil, "file", "v1.pdf", pdf)
	restore()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("late first submission", func(t *testing.T) {
		rec := env.upload(t, assignmentPath(a.ID, "/submission"), late, nil, "file", "late.pdf", pdf)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: assignment.ErrPastDue.Error()}),
		}, rec)
	})

	t.Run("late resubmission", func(t *testing.T) {
		rec := env.upload(t, assignmentPath(a.ID, "/submission"), early, nil, "file", "v2.pdf", pdf)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestAssignmentApi_UploadLimits(t *testing.T) {
	env := setup(t)
	env.register(t, "Teach", "teach@example.com", user.RoleTeacher)
	env.register(t, "Stu", "stu@example.com", user.RoleStudent)
	teacher := env.login(t, "teach@example.com")
	student := env.login(t, "stu@example.com")

	c := env.createCourse(t, teacher, "Go")
	require.Equal(t, http.StatusCreated, env.enroll(t, student, c.ID).Code)
	fields := map[string]string{
		"title": "Essay", "description": "Write it", "due_date": time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02"),
	}

	t.Run("assignment brief over 5MB", func(t *testing.T) {
		big := append(append([]byte{}, pdf...), bytes.Repeat([]byte{' '}, 5<<20)...)
		rec := env.upload(t, coursePath(c.ID, "/assignments"), teacher, fields, "file", "brief.pdf", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	rec := env.upload(t, coursePath(c.ID, "/assignments"), teacher, fields, "", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a assignment.Assignment
	decode(t, rec, &a)
	assert.Empty(t, a.FilePath)

	t.Run("no brief to download", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, assignmentPath(a.ID, "/file"), student).Code)
	})

	t.Run("submission over 10MB", func(t *testing.T) {
		big := append(append([]byte{}, pdf...), bytes.Repeat([]byte{' '}, 10<<20)...)
		rec := env.upload(t, assignmentPath(a.ID, "/submission"), student, nil, "file", "mine.pdf", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("submission under 10MB", func(t *testing.T) {
		body := append(append([]byte{}, pdf...), bytes.Repeat([]byte{' '}, 6<<20)...)
		rec := env.upload(t, assignmentPath(a.ID, "/submission"), student, nil, "file", "mine.pdf", body)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}
