package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/calendar"
)

type calendarApi struct {
	svc      calendar.Service
	logger   core.Logger
	validate *validator.Validate
}

func registerCalendarAPI(g *echo.Group, authed echo.MiddlewareFunc, opts *Options) {
	api := calendarApi{
		svc:      opts.CalendarSvc,
		logger:   opts.Logger,
		validate: opts.Validate,
	}

	cg := g.Group("/calendar", authed)
	cg.GET("", api.month)
	cg.GET("/upcoming", api.upcoming)
	cg.POST("/sync", api.sync, teacherOnly)

	cg.GET("/events", api.query)
	cg.POST("/events", api.create)
	cg.GET("/events/:id", api.retrieve)
	cg.PUT("/events/:id", api.update)
	cg.DELETE("/events/:id", api.destroy)
	cg.POST("/events/:id/reminders", api.createReminder)

	cg.GET("/reminders", api.queryReminders)
	cg.DELETE("/reminders/:id", api.destroyReminder)
}

// jsonError renders err as {error} for the endpoints that always answer 200.
func (api *calendarApi) jsonError(ctx echo.Context, err error) error {
	cause := errors.Cause(err)
	switch {
	case core.IsNotFound(cause), cause == core.ErrPermissionDenied:
		return ctx.JSON(http.StatusOK, ErrorResponse{Error: cause.Error()})
	}
	api.logger.Error(serverErrorText, err, getSession(ctx))
	return ctx.JSON(http.StatusOK, ErrorResponse{Error: serverErrorText})
}

// Handlers

// month brings assignment due dates into the calendar, then lists the month's events.
func (api *calendarApi) month(ctx echo.Context) error {
	if _, err := api.svc.SyncAssignmentsToCalendar(ctx.Request().Context()); err != nil {
		api.logger.Error("syncing assignments to calendar", err)
	}

	year, _ := queryInt(ctx, "year")
	month, _ := queryInt(ctx, "month")
	m, events, err := api.svc.EventsForMonth(ctx.Request().Context(), getSession(ctx), year, month)
	if err != nil {
		return errors.Wrap(err, "querying month events")
	}
	return ctx.JSON(http.StatusOK, MonthResponse{Month: m, Events: events})
}

func (api *calendarApi) query(ctx echo.Context) error {
	var rng *calendar.DateRange
	if start, end := ctx.QueryParam("start"), ctx.QueryParam("end"); start != "" || end != "" {
		var err error
		if rng, err = calendar.ParseDateRange(start, end); err != nil {
			return err
		}
	}

	events, err := api.svc.EventsForUser(ctx.Request().Context(), getSession(ctx), rng)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *calendarApi) upcoming(ctx echo.Context) error {
	limit, _ := queryInt(ctx, "limit")
	events, err := api.svc.UpcomingEvents(ctx.Request().Context(), getSession(ctx), limit)
	if err != nil {
		return errors.Wrap(err, "querying upcoming events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *calendarApi) create(ctx echo.Context) error {
	var data calendar.EventForm
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.CreateEvent(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *calendarApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return api.jsonError(ctx, calendar.ErrNotFound)
	}
	e, err := api.svc.GetEvent(ctx.Request().Context(), getSession(ctx), id)
	if err != nil {
		return api.jsonError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, EventResponse{Event: e})
}

func (api *calendarApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	var data calendar.EventForm
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.UpdateEvent(ctx.Request().Context(), getSession(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *calendarApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return api.jsonError(ctx, calendar.ErrNotFound)
	}
	if err = api.svc.DeleteEvent(ctx.Request().Context(), getSession(ctx), id); err != nil {
		return api.jsonError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Event deleted."})
}

func (api *calendarApi) createReminder(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	var data calendar.ReminderForm
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.CreateReminder(ctx.Request().Context(), getSession(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "creating reminder")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *calendarApi) queryReminders(ctx echo.Context) error {
	reminders, err := api.svc.ActiveReminders(ctx.Request().Context(), getSession(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "querying reminders")
	}
	return ctx.JSON(http.StatusOK, reminders)
}

func (api *calendarApi) destroyReminder(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteReminder(ctx.Request().Context(), getSession(ctx), id); err != nil {
		return errors.Wrap(err, "deleting reminder")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *calendarApi) sync(ctx echo.Context) error {
	n, err := api.svc.SyncAssignmentsToCalendar(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "syncing assignments")
	}
	return ctx.JSON(http.StatusOK, SyncResponse{Created: n})
}

type (
	MonthResponse struct {
		calendar.Month
		Events []calendar.Event `json:"events"`
	}

	EventResponse struct {
		Event calendar.Event `json:"event"`
	}

	SyncResponse struct {
		Created int `json:"created"`
	}
)
