package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
)

type dashboardApi struct {
	courses     course.Service
	assignments assignment.Service
	progress    progress.Service
	calendar    calendar.Service
}

func registerDashboardAPI(g *echo.Group, authed echo.MiddlewareFunc, opts *Options) {
	api := dashboardApi{
		courses:     opts.CourseSvc,
		assignments: opts.AssignmentSvc,
		progress:    opts.ProgressSvc,
		calendar:    opts.CalendarSvc,
	}
	g.GET("/dashboard", api.dashboard, authed)
}

func (api *dashboardApi) dashboard(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	sess := getSession(ctx)

	upcoming, err := api.calendar.UpcomingEvents(rctx, sess, calendar.DefaultUpcomingLimit)
	if err != nil {
		return errors.Wrap(err, "querying upcoming events")
	}
	resp := Dashboard{Role: string(sess.Role), Upcoming: upcoming}

	if sess.IsTeacher() {
		courses, err := api.courses.ListByTeacher(rctx, sess.UserID)
		if err != nil {
			return errors.Wrap(err, "querying teacher courses")
		}
		resp.Teaching = make([]TeachingCourse, 0, len(courses))
		for _, c := range courses {
			stats, err := api.progress.TeacherCourseStats(rctx, c.ID)
			if err != nil {
				return errors.Wrap(err, "computing course stats")
			}
			resp.Teaching = append(resp.Teaching, TeachingCourse{Course: c, Stats: stats})
		}
		return ctx.JSON(http.StatusOK, resp)
	}

	courses, err := api.courses.ListByStudent(rctx, sess.UserID)
	if err != nil {
		return errors.Wrap(err, "querying student courses")
	}
	resp.Enrolled = make([]EnrolledCourse, 0, len(courses))
	for _, c := range courses {
		assignments, err := api.assignments.ListByCourse(rctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "querying assignments")
		}
		subs, err := api.assignments.ListSubmissionsByStudent(rctx, c.ID, sess.UserID)
		if err != nil {
			return errors.Wrap(err, "querying submissions")
		}
		byAssignment := make(map[int]assignment.Submission, len(subs))
		for _, s := range subs {
			byAssignment[s.AssignmentID] = s
		}

		ec := EnrolledCourse{Course: c, Assignments: make([]AssignmentStatus, 0, len(assignments))}
		for _, a := range assignments {
			st := AssignmentStatus{Assignment: a}
			if s, ok := byAssignment[a.ID]; ok {
				st.Submitted = true
				st.Grade = s.Grade
			}
			ec.Assignments = append(ec.Assignments, st)
		}
		resp.Enrolled = append(resp.Enrolled, ec)
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	Dashboard struct {
		Role     string           `json:"role"`
		Teaching []TeachingCourse `json:"teaching,omitempty"`
		Enrolled []EnrolledCourse `json:"enrolled,omitempty"`
		Upcoming []calendar.Event `json:"upcoming"`
	}

	TeachingCourse struct {
		course.Course
		Stats progress.CourseStats `json:"stats"`
	}

	EnrolledCourse struct {
		course.Course
		Assignments []AssignmentStatus `json:"assignments"`
	}

	AssignmentStatus struct {
		assignment.Assignment
		Submitted bool     `json:"submitted"`
		Grade     *float64 `json:"grade"`
	}
)
