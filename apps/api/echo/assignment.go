package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/services/metrics"
)

type assignmentApi struct {
	svc      assignment.Service
	courses  course.Service
	files    core.FileStorage
	logger   core.Logger
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, authed echo.MiddlewareFunc, opts *Options) {
	api := assignmentApi{
		svc:      opts.AssignmentSvc,
		courses:  opts.CourseSvc,
		files:    opts.Files,
		logger:   opts.Logger,
		validate: opts.Validate,
	}

	cg := g.Group("/courses/:id/assignments", authed)
	cg.GET("", api.query)
	cg.POST("", api.create, teacherOnly)

	ag := g.Group("/assignments/:id", authed)
	ag.GET("", api.retrieve)
	ag.DELETE("", api.destroy, teacherOnly)
	ag.GET("/file", api.file)
	ag.GET("/submission", api.submission, studentOnly)
	ag.POST("/submission", api.submit, studentOnly)
	ag.GET("/submissions", api.querySubmissions, teacherOnly)
	ag.POST("/grade", api.grade, teacherOnly)
	ag.GET("/submissions/:student_id/file", api.submissionFile)
}

// loadAssignment finds the :id assignment along with whether the session owns its course.
// Only the course teacher and enrolled students get through.
func (api *assignmentApi) loadAssignment(ctx echo.Context) (assignment.Assignment, bool, error) {
	id, err := paramID(ctx, "id")
	if err != nil {
		return assignment.Assignment{}, false, err
	}
	a, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return assignment.Assignment{}, false, err
	}

	sess := getSession(ctx)
	if sess.IsTeacher() {
		if a.TeacherID != sess.UserID {
			return assignment.Assignment{}, false, core.ErrPermissionDenied
		}
		return a, true, nil
	}
	enrolled, err := api.courses.IsEnrolled(ctx.Request().Context(), sess.UserID, a.CourseID)
	if err != nil {
		return assignment.Assignment{}, false, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return assignment.Assignment{}, false, core.ErrPermissionDenied
	}
	return a, false, nil
}

func (api *assignmentApi) loadOwnedAssignment(ctx echo.Context) (assignment.Assignment, error) {
	a, owner, err := api.loadAssignment(ctx)
	if err == nil && !owner {
		err = core.ErrPermissionDenied
	}
	return a, err
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	c, err := loadAccessibleCourse(ctx, api.courses)
	if err != nil {
		return err
	}
	assignments, err := api.svc.ListByCourse(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	c, err := loadOwnedCourse(ctx, api.courses)
	if err != nil {
		return err
	}

	var data assignment.NewAssignment
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := saveUpload(ctx, api.files, assignmentUpload, false)
	if err != nil {
		return err
	}
	a, err := api.svc.Create(ctx.Request().Context(), data, c.ID, p)
	if err != nil {
		deleteFile(ctx, api.files, api.logger, p)
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	a, _, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	a, err := api.loadOwnedAssignment(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	deleteFile(ctx, api.files, api.logger, a.FilePath)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) file(ctx echo.Context) error {
	a, _, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}
	return sendFile(ctx, api.files, a.FilePath)
}

func (api *assignmentApi) submission(ctx echo.Context) error {
	a, _, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.GetSubmission(ctx.Request().Context(), a.ID, getSession(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	a, _, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}
	sess := getSession(ctx)

	p, err := saveUpload(ctx, api.files, submissionUpload, true)
	if err != nil {
		return err
	}
	var prev string
	if old, gErr := api.svc.GetSubmission(ctx.Request().Context(), a.ID, sess.UserID); gErr == nil {
		prev = old.FilePath
	}

	s, err := api.svc.Submit(ctx.Request().Context(), a.ID, sess.UserID, p)
	if err != nil {
		deleteFile(ctx, api.files, api.logger, p)
		return errors.Wrap(err, "submitting")
	}
	if prev != "" && prev != s.FilePath {
		deleteFile(ctx, api.files, api.logger, prev)
	}
	metrics.Submissions.Inc()
	return ctx.JSON(http.StatusOK, s)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	a, err := api.loadOwnedAssignment(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.ListSubmissions(ctx.Request().Context(), a.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	a, err := api.loadOwnedAssignment(ctx)
	if err != nil {
		return err
	}

	var data assignment.GradeSubmission
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Grade(ctx.Request().Context(), a.ID, data)
	if err != nil {
		return errors.Wrap(err, "grading")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *assignmentApi) submissionFile(ctx echo.Context) error {
	a, owner, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}
	studentID, err := paramID(ctx, "student_id")
	if err != nil {
		return err
	}
	if !owner && !getSession(ctx).Is(studentID) {
		return core.ErrPermissionDenied
	}

	s, err := api.svc.GetSubmission(ctx.Request().Context(), a.ID, studentID)
	if err != nil {
		return err
	}
	return sendFile(ctx, api.files, s.FilePath)
}
