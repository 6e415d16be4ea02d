package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/user"
)

func TestCalendarApi_Events(t *testing.T) {
	env := setup(t)
	env.register(t, "Teach", "teach@example.com", user.RoleTeacher)
	env.register(t, "Stu", "stu@example.com", user.RoleStudent)
	env.register(t, "Outsider", "out@example.com", user.RoleStudent)
	teacher := env.login(t, "teach@example.com")
	student := env.login(t, "stu@example.com")
	outsider := env.login(t, "out@example.com")

	c := env.createCourse(t, teacher, "Go")
	require.Equal(t, http.StatusCreated, env.enroll(t, student, c.ID).Code)

	day := time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02")
	form := map[string]interface{}{
		"title": "Midterm", "event_type": "exam", "start_date": day, "start_time": "10:00",
		"end_date": day, "end_time": "12:00", "location": "Room 1", "course_id": c.ID,
	}

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			form map[string]interface{}
		}{
			{name: "unknown type", form: map[string]interface{}{"title": "X", "event_type": "party", "start_date": day, "end_date": day}},
			{name: "end before start", form: map[string]interface{}{
				"title": "X", "event_type": "other", "start_date": day, "start_time": "10:00", "end_date": day, "end_time": "09:00",
			}},
			{name: "student without course", form: map[string]interface{}{"title": "X", "event_type": "other", "start_date": day, "end_date": day}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := env.do(http.MethodPost, "/v1/calendar/events", student, marshalObj(t, tt.form))
				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			})
		}
	})

	rec := env.do(http.MethodPost, "/v1/calendar/events", teacher, marshalObj(t, form))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e calendar.Event
	decode(t, rec, &e)
	assert.Equal(t, calendar.EventExam, e.EventType)

	t.Run("get", func(t *testing.T) {
		tests := []httpTest{
			{name: "enrolled student", path: eventPath(e.ID, ""), token: student, wantCode: http.StatusOK},
			{
				name: "outsider", path: eventPath(e.ID, ""), token: outsider, wantCode: http.StatusOK,
				wantData: marshalObj(t, httpErr{Error: core.ErrPermissionDenied.Error()}),
			},
			{
				name: "missing", path: eventPath(e.ID+100, ""), token: teacher, wantCode: http.StatusOK,
				wantData: marshalObj(t, httpErr{Error: calendar.ErrNotFound.Error()}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, env.do(http.MethodGet, tt.path, tt.token))
			})
		}
	})

	t.Run("listed for students of the course only", func(t *testing.T) {
		var events []calendar.Event
		rec := env.do(http.MethodGet, "/v1/calendar/events", student)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &events)
		require.Len(t, events, 1)
		assert.Equal(t, "Go", events[0].CourseTitle)

		rec = env.do(http.MethodGet, "/v1/calendar/events", outsider)
		require.Equal(t, http.StatusOK, rec.Code)
		events = nil
		decode(t, rec, &events)
		assert.Empty(t, events)
	})

	t.Run("range filter", func(t *testing.T) {
		var events []calendar.Event
		rec := env.do(http.MethodGet, "/v1/calendar/events?start="+day+"T00:00&end="+day+"T11:00", teacher)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &events)
		assert.Len(t, events, 1)

		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/v1/calendar/events?start=bad", teacher).Code)
	})

	t.Run("date only end includes the day", func(t *testing.T) {
		var events []calendar.Event
		rec := env.do(http.MethodGet, "/v1/calendar/events?start="+day+"&end="+day, teacher)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &events)
		assert.Len(t, events, 1)
	})

	t.Run("reversed range", func(t *testing.T) {
		next := time.Now().UTC().AddDate(0, 0, 4).Format("2006-01-02")
		rec := env.do(http.MethodGet, "/v1/calendar/events?start="+next+"&end="+day, teacher)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reminders", func(t *testing.T) {
		rec := env.do(http.MethodPost, eventPath(e.ID, "/reminders"), student, []byte(`{"reminder_days":10}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodPost, eventPath(e.ID, "/reminders"), student, []byte(`{"reminder_days":1,"reminder_hours":2}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var r calendar.Reminder
		decode(t, rec, &r)
		assert.Equal(t, e.Start.Add(-26*time.Hour), r.ReminderTime.UTC())

		var reminders []calendar.Reminder
		rec = env.do(http.MethodGet, "/v1/calendar/reminders", student)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &reminders)
		require.Len(t, reminders, 1)
		assert.Equal(t, "Midterm", reminders[0].EventTitle)

		path := "/v1/calendar/reminders/" + itoa(r.ID)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, path, outsider).Code)
		assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, student).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, path, student).Code)
	})

	t.Run("delete", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "student", path: eventPath(e.ID, ""), token: student, wantCode: http.StatusOK,
				wantData: marshalObj(t, httpErr{Error: core.ErrPermissionDenied.Error()}),
			},
			{
				name: "owner", path: eventPath(e.ID, ""), token: teacher, wantCode: http.StatusOK,
				wantData: marshalObj(t, echoapi.SuccessResponse{Success: "Event deleted."}),
			},
			{
				name: "already deleted", path: eventPath(e.ID, ""), token: teacher, wantCode: http.StatusOK,
				wantData: marshalObj(t, httpErr{Error: calendar.ErrNotFound.Error()}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, env.do(http.MethodDelete, tt.path, tt.token))
			})
		}
	})
}

func TestCalendarApi_Sync(t *testing.T) {
	env := setup(t)
	env.register(t, "Teach", "teach@example.com", user.RoleTeacher)
	env.register(t, "Stu", "stu@example.com", user.RoleStudent)
	teacher := env.login(t, "teach@example.com")
	student := env.login(t, "stu@example.com")

	c := env.createCourse(t, teacher, "Go")
	require.Equal(t, http.StatusCreated, env.enroll(t, student, c.ID).Code)
	due := time.Now().UTC().AddDate(0, 0, 1)
	rec := env.upload(t, coursePath(c.ID, "/assignments"), teacher, map[string]string{
		"title": "Essay", "description": "Write it", "due_date": due.Format("2006-01-02T15:04"),
	}, "", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/v1/calendar/sync", student).Code)

	for i, want := range []int{1, 0} {
		rec := env.do(http.MethodPost, "/v1/calendar/sync", teacher)
		require.Equal(t, http.StatusOK, rec.Code, "run %d", i)
		var resp echoapi.SyncResponse
		decode(t, rec, &resp)
		assert.Equal(t, want, resp.Created, "run %d", i)
	}

	var upcoming []calendar.Event
	rec = env.do(http.MethodGet, "/v1/calendar/upcoming?limit=5", student)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &upcoming)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Essay (Due)", upcoming[0].Title)
	assert.Equal(t, calendar.EventAssignment, upcoming[0].EventType)

	t.Run("month view syncs too", func(t *testing.T) {
		path := "/v1/calendar?year=" + itoa(due.Year()) + "&month=" + itoa(int(due.Month()))
		rec := env.do(http.MethodGet, path, teacher)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.MonthResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, due.Year(), resp.Year)
	})
}
