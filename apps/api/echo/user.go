package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userApi struct {
	svc      user.Service
	auth     *authenticator
	files    core.FileStorage
	logger   core.Logger
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, authed echo.MiddlewareFunc, auth *authenticator, opts *Options) {
	api := userApi{
		svc:      opts.UserSvc,
		auth:     auth,
		files:    opts.Files,
		logger:   opts.Logger,
		validate: opts.Validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)
	ug.POST("/logout", api.logout)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", authed)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.retrieve)
	ag.PUT("/me", api.update)
	ag.PUT("/me/password", api.changePassword)
	ag.POST("/me/avatar", api.uploadAvatar)
	ag.GET("/:id/avatar", api.avatar)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.GenerateToken(api.auth.claims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	api.auth.setSessionCookie(ctx, token, api.auth.conf.Server.JWTExpirationDelta)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: &usr})
}

// logout clears the session cookie. Calling it without a session is fine.
func (api *userApi) logout(ctx echo.Context) error {
	api.auth.clearSessionCookie(ctx)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "You have been logged out."})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	api.auth.setSessionCookie(ctx, token, api.auth.conf.Server.JWTExpirationDelta)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.ChangePassword
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(usr, api.validate); err != nil {
		return err
	}

	if _, err = api.svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your password has been changed."})
}

func (api *userApi) uploadAvatar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	p, err := saveUpload(ctx, api.files, avatarUpload, true)
	if err != nil {
		return err
	}
	old := usr.Avatar
	usr, err = api.svc.SetAvatar(ctx.Request().Context(), usr, p)
	if err != nil {
		deleteFile(ctx, api.files, api.logger, p)
		return errors.Wrap(err, "setting avatar")
	}
	deleteFile(ctx, api.files, api.logger, old)
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) avatar(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return sendFile(ctx, api.files, usr.Avatar)
}

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" form:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
