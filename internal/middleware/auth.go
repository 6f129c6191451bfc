package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type LoginChecker interface {
	IsLoggedIn() bool
}

// RequireSession rejects requests while no valid backend token is held.
func RequireSession(session LoginChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !session.IsLoggedIn() {
				return echo.NewHTTPError(http.StatusUnauthorized, "Iniciá sesión para continuar")
			}
			return next(c)
		}
	}
}
