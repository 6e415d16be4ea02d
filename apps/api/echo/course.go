package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/course"
)

type courseApi struct {
	svc         course.Service
	assignments assignment.Service
	events      calendar.Service
	validate    *validator.Validate
}

func registerCourseAPI(g *echo.Group, authed echo.MiddlewareFunc, opts *Options) {
	api := courseApi{
		svc:         opts.CourseSvc,
		assignments: opts.AssignmentSvc,
		events:      opts.CalendarSvc,
		validate:    opts.Validate,
	}

	cg := g.Group("/courses", authed)
	cg.GET("", api.query)
	cg.GET("/mine", api.queryMine)
	cg.POST("", api.create, teacherOnly)
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.destroy, teacherOnly)
	cg.GET("/:id/students", api.queryStudents, teacherOnly)

	g.POST("/enrollments", api.enroll, authed, studentOnly)
}

// loadCourse finds the course of the :id path parameter.
func loadCourse(ctx echo.Context, svc course.Service) (course.Course, error) {
	id, err := paramID(ctx, "id")
	if err != nil {
		return course.Course{}, err
	}
	return svc.GetByID(ctx.Request().Context(), id)
}

// loadAccessibleCourse finds the :id course, if the session teaches it or is enrolled in it.
func loadAccessibleCourse(ctx echo.Context, svc course.Service) (course.Course, error) {
	c, err := loadCourse(ctx, svc)
	if err != nil {
		return course.Course{}, err
	}
	ok, err := svc.CanAccess(ctx.Request().Context(), getSession(ctx), c)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "checking course access")
	}
	if !ok {
		return course.Course{}, core.ErrPermissionDenied
	}
	return c, nil
}

// loadOwnedCourse finds the :id course, if the session teaches it.
func loadOwnedCourse(ctx echo.Context, svc course.Service) (course.Course, error) {
	c, err := loadCourse(ctx, svc)
	if err != nil {
		return course.Course{}, err
	}
	if !svc.IsOwner(getSession(ctx), c) {
		return course.Course{}, core.ErrPermissionDenied
	}
	return c, nil
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.ListAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) queryMine(ctx echo.Context) error {
	sess := getSession(ctx)
	var courses []course.Course
	var err error
	if sess.IsTeacher() {
		courses, err = api.svc.ListByTeacher(ctx.Request().Context(), sess.UserID)
	} else {
		courses, err = api.svc.ListByStudent(ctx.Request().Context(), sess.UserID)
	}
	if err != nil {
		return errors.Wrap(err, "querying own courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data, getSession(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := loadCourse(ctx, api.svc)
	if err != nil {
		return err
	}
	sess := getSession(ctx)

	resp := CourseDetail{Course: c, IsOwner: api.svc.IsOwner(sess, c)}
	if sess.IsStudent() {
		if resp.IsEnrolled, err = api.svc.IsEnrolled(ctx.Request().Context(), sess.UserID, c.ID); err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
	}
	if resp.IsOwner || resp.IsEnrolled {
		if resp.Assignments, err = api.assignments.ListByCourse(ctx.Request().Context(), c.ID); err != nil {
			return errors.Wrap(err, "querying assignments")
		}
		if resp.Events, err = api.events.EventsByCourse(ctx.Request().Context(), c.ID); err != nil {
			return errors.Wrap(err, "querying course events")
		}
	}
	if resp.IsOwner {
		if resp.Students, err = api.svc.ListEnrolledStudents(ctx.Request().Context(), c.ID); err != nil {
			return errors.Wrap(err, "querying students")
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	deleted, err := api.svc.Delete(ctx.Request().Context(), id, getSession(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if !deleted {
		// tell a missing course from somebody else's
		if _, err = api.svc.GetByID(ctx.Request().Context(), id); err != nil {
			return err
		}
		return core.ErrPermissionDenied
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryStudents(ctx echo.Context) error {
	c, err := loadOwnedCourse(ctx, api.svc)
	if err != nil {
		return err
	}
	students, err := api.svc.ListEnrolledStudents(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data course.EnrollRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	created, err := api.svc.Enroll(ctx.Request().Context(), getSession(ctx).UserID, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	if !created {
		return ctx.JSON(http.StatusOK, InfoResponse{Info: "You are already enrolled in this course."})
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "You have been enrolled in the course."})
}

type CourseDetail struct {
	course.Course
	IsOwner     bool                    `json:"is_owner"`
	IsEnrolled  bool                    `json:"is_enrolled"`
	Assignments []assignment.Assignment `json:"assignments,omitempty"`
	Events      []calendar.Event        `json:"events,omitempty"`
	Students    []course.Student        `json:"students,omitempty"`
}
