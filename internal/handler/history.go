package handler

import (
	"net/http"

	"travel-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type HistoryHandler struct {
	dashboardService service.DashboardService
	ledger           service.Ledger
	notifier         service.Notifier
}

func NewHistoryHandler(dashboardService service.DashboardService, ledger service.Ledger, notifier service.Notifier) *HistoryHandler {
	return &HistoryHandler{
		dashboardService: dashboardService,
		ledger:           ledger,
		notifier:         notifier,
	}
}

func (h *HistoryHandler) GetHistory(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, h.dashboardService.History(ctx))
}

func (h *HistoryHandler) GetLocalHistory(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, h.ledger.List(ctx))
}

func (h *HistoryHandler) ClearHistory(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.ledger.Clear(ctx); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "No se pudo limpiar el historial")
	}
	h.notifier.Notify(service.NoticeSuccess, "Historial de compras limpiado")

	return c.NoContent(http.StatusNoContent)
}
