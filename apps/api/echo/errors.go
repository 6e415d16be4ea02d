package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const serverErrorText = "something went wrong, please try again"

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errFileTooLarge       = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	errUnsupportedFile    = echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported file type")
	errFileRequired       = "a file is required"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)

		if code == http.StatusInternalServerError {
			args := []interface{}{errors.Wrap(err, "handling request")}
			if sess := getSession(ctx); sess.IsLoggedIn() {
				args = append(args, sess)
			}
			logger.Error(serverErrorText, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				message = echo.Map{"error": err.Error()}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// errorResponse maps err to an HTTP status and a JSON body.
func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	cause := errors.Cause(err)
	if cause == core.ErrPermissionDenied {
		return http.StatusForbidden, echo.Map{"error": cause.Error()}
	}
	if cause == user.ErrInvalidCredentials {
		return http.StatusBadRequest, echo.Map{"error": cause.Error()}
	}

	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		if m, ok := origErr.Message.(string); ok {
			return origErr.Code, echo.Map{"error": m}
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		if len(origErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, echo.Map{"error": origErr.Error()}
	case *core.NotFoundError:
		return http.StatusNotFound, echo.Map{"error": origErr.Error()}
	}
	// any other error is a server error
	return http.StatusInternalServerError, echo.Map{"error": serverErrorText}
}
