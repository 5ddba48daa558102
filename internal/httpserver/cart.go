package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	msgAdded    = "%s a été ajouté au panier."
	msgRemoved  = "Article supprimé du panier."
	msgUpdated  = "Panier mis à jour."
	msgBadQty   = "Quantité invalide."
	cartPath    = "/cart/"
	catalogPath = "/"
)

type CartHTTP struct {
	*site
	Svc *service.CartService
}

func cartResponse(v *service.CartView) transport.CartResponse {
	out := transport.CartResponse{Items: make([]transport.CartLineResponse, 0, len(v.Lines)), Total: v.Total, Count: v.Count}
	for _, line := range v.Lines {
		out.Items = append(out.Items, transport.CartLineResponse{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}
	return out
}

func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	id, err := parseID(c)
	if err != nil {
		l.Warn("add_cart_error", "status", 404, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	s := session.FromEcho(c)
	product, qty, err := h.Svc.Add(ctx, s.Key, s.Cart(), id)
	if err != nil {
		return httpError(l, "add_cart_error", err, "cannot add to cart")
	}
	s.AddMessage(session.LevelSuccess, fmt.Sprintf(msgAdded, product.Name))

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]any{
			"product_id": product.ID,
			"quantity":   qty,
			"count":      s.Cart().Count(),
		})
	}
	return c.Redirect(http.StatusSeeOther, catalogPath)
}

func (h *CartHTTP) view(c echo.Context) (*service.CartView, error) {
	return h.Svc.View(c.Request().Context(), session.FromEcho(c).Cart())
}

func (h *CartHTTP) View(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.view")

	v, err := h.view(c)
	if err != nil {
		return httpError(l, "view_cart_error", err, "cannot load cart")
	}
	return h.render(c, http.StatusOK, "cart.html", "Panier", v)
}

func (h *CartHTTP) ViewJSON(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.view_json")

	v, err := h.view(c)
	if err != nil {
		return httpError(l, "view_cart_error", err, "cannot load cart")
	}
	return c.JSON(http.StatusOK, cartResponse(v))
}

func (h *CartHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update")

	id, err := parseID(c)
	if err != nil {
		l.Warn("update_cart_error", "status", 404, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var req transport.UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_cart_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	s := session.FromEcho(c)
	res, err := h.Svc.Update(ctx, s.Cart(), id, req.Action, req.Quantity.Value())
	if err != nil {
		if !errors.Is(err, service.ErrValidation) {
			return httpError(l, "update_cart_error", err, "cannot update cart")
		}
		l.Warn("update_cart_error", "status", 400, "reason", "invalid quantity", "quantity", req.Quantity.Raw)
		s.AddMessage(session.LevelWarning, msgBadQty)
		if wantsJSON(c) {
			return jsonError(c, http.StatusBadRequest, msgBadQty)
		}
		return c.Redirect(http.StatusSeeOther, cartPath)
	}

	switch res {
	case domain.UpdateRemoved:
		s.AddMessage(session.LevelInfo, msgRemoved)
	case domain.UpdateSet:
		s.AddMessage(session.LevelSuccess, msgUpdated)
	}

	if wantsJSON(c) {
		v, err := h.view(c)
		if err != nil {
			return httpError(l, "update_cart_error", err, "cannot load cart")
		}
		return c.JSON(http.StatusOK, cartResponse(v))
	}
	return c.Redirect(http.StatusSeeOther, cartPath)
}
