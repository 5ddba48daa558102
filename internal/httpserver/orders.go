package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

type OrdersHTTP struct {
	Svc *service.OrderService
}

func (h *OrdersHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	var paid *bool
	if raw := c.QueryParam("paid"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			l.Warn("list_orders_error", "status", 400, "reason", "paid is not a boolean", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "paid must be true or false")
		}
		paid = &v
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	rows, total, err := h.Svc.ListOrders(ctx, paid, offset, limit)
	if err != nil {
		return httpError(l, "list_orders_error", err, "cannot list orders")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": rows,
		"meta": util.Meta(page, limit, total),
	})
}

func (h *OrdersHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.get")

	id, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	order, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		return httpError(l, "get_order_error", err, "cannot load order")
	}
	return c.JSON(http.StatusOK, order)
}
