package handler

import (
	"net/http"

	"travel-storefront/internal/dto"
	"travel-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type SessionHandler struct {
	session  service.Session
	notifier service.Notifier
}

func NewSessionHandler(session service.Session, notifier service.Notifier) *SessionHandler {
	return &SessionHandler{
		session:  session,
		notifier: notifier,
	}
}

func (h *SessionHandler) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.SessionResponse{LoggedIn: h.session.IsLoggedIn()})
}

func (h *SessionHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.session.Login(req.AccessToken); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "access_token is required")
	}

	return c.JSON(http.StatusOK, dto.SessionResponse{LoggedIn: h.session.IsLoggedIn()})
}

func (h *SessionHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	h.session.Logout(ctx)
	return c.NoContent(http.StatusNoContent)
}

// Notices drains the pending user notices.
func (h *SessionHandler) Notices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.notifier.Drain())
}
