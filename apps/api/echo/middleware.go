package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/user"
)

func requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !getSession(ctx).IsLoggedIn() {
			return errUnauthorized
		}
		return next(ctx)
	}
}

func requireRole(role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess := getSession(ctx)
			if !sess.IsLoggedIn() {
				return errUnauthorized
			}
			if sess.Role != role {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

var (
	teacherOnly = requireRole(user.RoleTeacher)
	studentOnly = requireRole(user.RoleStudent)
)
