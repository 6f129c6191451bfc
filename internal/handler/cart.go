package handler

import (
	"net/http"
	"strconv"

	"travel-storefront/internal/dto"
	"travel-storefront/internal/model"
	"travel-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartStore service.CartStore
}

func NewCartHandler(cartStore service.CartStore) *CartHandler {
	return &CartHandler{
		cartStore: cartStore,
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	// catalog is best effort, items just keep the fields the server sent
	_ = h.cartStore.LoadCatalog(ctx)

	resp := dto.CartResponse{}
	items, err := h.cartStore.Refresh(ctx)
	if err != nil {
		resp.Warning = "No se pudo obtener el carrito"
	}
	resp.Items = items
	resp.Total = service.ComputeTotal(items).StringFixed(2)
	resp.AllSelected = h.cartStore.AllSelected()

	return c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	departure, ok := model.ParseDate(req.DepartureDate)
	if req.DepartureDate != "" && !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Fecha de salida inválida")
	}

	if err := h.cartStore.Add(ctx, req.DestinationID, req.Quantity, departure); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"status": "added",
	})
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	lineID, err := lineIDParam(c)
	if err != nil {
		return err
	}

	if err := h.cartStore.Remove(ctx, lineID); err != nil {
		return httpError(err)
	}

	return h.cartView(c)
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()

	lineID, err := lineIDParam(c)
	if err != nil {
		return err
	}

	var req dto.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	changed, err := h.cartStore.UpdateQuantity(ctx, lineID, req.Quantity)
	if err != nil {
		return httpError(err)
	}

	item, _ := h.cartStore.Item(lineID)
	return c.JSON(http.StatusOK, dto.UpdateQuantityResponse{
		Changed: changed,
		Item:    item,
		Total:   h.cartStore.Total().StringFixed(2),
	})
}

func (h *CartHandler) UpdateDate(c echo.Context) error {
	ctx := c.Request().Context()

	lineID, err := lineIDParam(c)
	if err != nil {
		return err
	}

	var req dto.UpdateDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	departure, _ := model.ParseDate(req.DepartureDate)
	if err := h.cartStore.UpdateDate(ctx, lineID, departure); err != nil {
		return httpError(err)
	}

	return h.cartView(c)
}

func (h *CartHandler) SetSelected(c echo.Context) error {
	lineID, err := lineIDParam(c)
	if err != nil {
		return err
	}

	var req dto.SelectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.cartStore.SetSelected(lineID, req.Selected); err != nil {
		return httpError(err)
	}

	return h.cartView(c)
}

func (h *CartHandler) SelectAll(c echo.Context) error {
	var req dto.SelectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	h.cartStore.SelectAll(req.Selected)
	return h.cartView(c)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.cartStore.Clear(ctx); err != nil {
		return httpError(err)
	}

	return h.cartView(c)
}

// cartView renders the local cart state without another backend call.
func (h *CartHandler) cartView(c echo.Context) error {
	items := h.cartStore.Items()
	return c.JSON(http.StatusOK, dto.CartResponse{
		Items:       items,
		Total:       service.ComputeTotal(items).StringFixed(2),
		AllSelected: h.cartStore.AllSelected(),
	})
}

func lineIDParam(c echo.Context) (int64, error) {
	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || lineID <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid cart line id")
	}
	return lineID, nil
}
