package handler

import (
	"net/http"

	"travel-storefront/internal/model"
	"travel-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// ListDestinations falls back to an empty catalog when the backend fails.
func (h *CatalogHandler) ListDestinations(c echo.Context) error {
	ctx := c.Request().Context()

	destinations, err := h.catalogService.Fetch(ctx)
	if err != nil {
		return c.JSON(http.StatusOK, []model.Destination{})
	}

	return c.JSON(http.StatusOK, destinations)
}

func (h *CatalogHandler) ListPaymentMethods(c echo.Context) error {
	ctx := c.Request().Context()

	methods, err := h.catalogService.PaymentMethods(ctx)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, methods)
}
