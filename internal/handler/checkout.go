package handler

import (
	"net/http"

	"travel-storefront/internal/dto"
	"travel-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// Checkout answers 200 for any settled checkout, partial failures included;
// the outcome carries the counts.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var (
		outcome *service.CheckoutOutcome
		err     error
	)
	if req.Batch {
		outcome, err = h.checkoutService.CheckoutBatch(ctx, string(req.PaymentMethod))
	} else {
		outcome, err = h.checkoutService.Checkout(ctx, string(req.PaymentMethod))
	}
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, outcome)
}

func (h *CheckoutHandler) BuyNow(c echo.Context) error {
	ctx := c.Request().Context()

	lineID, err := lineIDParam(c)
	if err != nil {
		return err
	}

	var req dto.BuyNowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outcome, err := h.checkoutService.BuyNow(ctx, lineID, string(req.PaymentMethod))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, outcome)
}
