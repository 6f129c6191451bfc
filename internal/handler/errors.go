package handler

import (
	"errors"
	"net/http"

	"travel-storefront/internal/client"
	"travel-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

// httpError maps service and backend errors onto echo errors carrying the
// message the user should see.
func httpError(err error) error {
	var validation *service.ValidationError

	switch {
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, validation.Message)
	case errors.Is(err, service.ErrLineNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Item no encontrado en el carrito")
	case errors.Is(err, client.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Sesión expirada")
	case errors.Is(err, service.ErrCheckoutAborted):
		return echo.NewHTTPError(http.StatusInternalServerError, "Error general al intentar finalizar la compra. Inténtelo de nuevo.")
	default:
		return echo.NewHTTPError(http.StatusBadGateway, client.UserMessage(err))
	}
}
