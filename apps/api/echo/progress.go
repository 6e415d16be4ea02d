package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
)

type progressApi struct {
	svc         progress.Service
	courses     course.Service
	assignments assignment.Service
}

func registerProgressAPI(g *echo.Group, authed echo.MiddlewareFunc, opts *Options) {
	api := progressApi{
		svc:         opts.ProgressSvc,
		courses:     opts.CourseSvc,
		assignments: opts.AssignmentSvc,
	}

	g.GET("/progress", api.overall, authed, studentOnly)
	cg := g.Group("/courses/:id", authed)
	cg.GET("/progress", api.course, studentOnly)
	cg.GET("/stats", api.stats, teacherOnly)
	cg.GET("/students/:student_id", api.student, teacherOnly)
}

// Handlers

func (api *progressApi) overall(ctx echo.Context) error {
	p, err := api.svc.OverallProgress(ctx.Request().Context(), getSession(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "computing overall progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) course(ctx echo.Context) error {
	c, err := loadAccessibleCourse(ctx, api.courses)
	if err != nil {
		return err
	}
	p, err := api.svc.CourseProgress(ctx.Request().Context(), getSession(ctx).UserID, c.ID)
	if err != nil {
		return errors.Wrap(err, "computing course progress")
	}
	p.CourseTitle = c.Title
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) stats(ctx echo.Context) error {
	c, err := loadOwnedCourse(ctx, api.courses)
	if err != nil {
		return err
	}
	stats, err := api.svc.TeacherCourseStats(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "computing course stats")
	}
	students, err := api.svc.StudentProgressForCourse(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "computing student progress")
	}
	return ctx.JSON(http.StatusOK, CourseStatsResponse{Course: c, Stats: stats, Students: students})
}

func (api *progressApi) student(ctx echo.Context) error {
	c, err := loadOwnedCourse(ctx, api.courses)
	if err != nil {
		return err
	}
	studentID, err := paramID(ctx, "student_id")
	if err != nil {
		return err
	}
	enrolled, err := api.courses.IsEnrolled(ctx.Request().Context(), studentID, c.ID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return core.NewNotFoundError("student")
	}

	p, err := api.svc.CourseProgress(ctx.Request().Context(), studentID, c.ID)
	if err != nil {
		return errors.Wrap(err, "computing course progress")
	}
	p.CourseTitle = c.Title
	subs, err := api.assignments.ListSubmissionsByStudent(ctx.Request().Context(), c.ID, studentID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, StudentDetailResponse{StudentID: studentID, Progress: p, Submissions: subs})
}

type (
	CourseStatsResponse struct {
		Course   course.Course              `json:"course"`
		Stats    progress.CourseStats       `json:"stats"`
		Students []progress.StudentProgress `json:"students"`
	}

	StudentDetailResponse struct {
		StudentID   int                     `json:"student_id"`
		Progress    progress.CourseProgress `json:"progress"`
		Submissions []assignment.Submission `json:"submissions"`
	}
)
