package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/services/metrics"
)

type chatApi struct {
	svc      chat.Service
	courses  course.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, authed echo.MiddlewareFunc, opts *Options) {
	api := chatApi{
		svc:      opts.ChatSvc,
		courses:  opts.CourseSvc,
		validate: opts.Validate,
	}

	cg := g.Group("/courses/:id/chat", authed)
	cg.GET("", api.query)
	cg.POST("", api.post)
}

// Handlers

func (api *chatApi) query(ctx echo.Context) error {
	c, err := loadAccessibleCourse(ctx, api.courses)
	if err != nil {
		return err
	}
	msgs, err := api.svc.ListRecent(ctx.Request().Context(), c.ID, chat.DefaultLimit)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

// post ignores blank messages with a 204.
func (api *chatApi) post(ctx echo.Context) error {
	c, err := loadAccessibleCourse(ctx, api.courses)
	if err != nil {
		return err
	}

	var data chat.NewMessage
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	msg, posted, err := api.svc.Post(ctx.Request().Context(), c.ID, getSession(ctx), data.Message)
	if err != nil {
		return errors.Wrap(err, "posting message")
	}
	if !posted {
		return ctx.NoContent(http.StatusNoContent)
	}
	metrics.ChatMessages.Inc()
	return ctx.JSON(http.StatusCreated, msg)
}
