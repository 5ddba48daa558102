package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/receipt"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	SignatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type CheckoutHTTP struct {
	*site
	Svc     *service.CheckoutService
	Orders  *service.OrderService
	BaseURL string
}

func (h *CheckoutHTTP) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create_session")

	if !h.Svc.Configured() {
		l.Error("checkout_error", "status", 500, "reason", "payment provider not configured")
		return jsonError(c, http.StatusInternalServerError, "payment provider not configured")
	}

	s := session.FromEcho(c)
	res, err := h.Svc.CreateCheckoutSession(ctx, service.CheckoutInput{
		Cart:       s.Cart(),
		SessionKey: s.Key,
		UserID:     auth.UserID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			l.Warn("checkout_error", "status", 400, "reason", "empty cart")
			if wantsJSON(c) {
				return jsonError(c, http.StatusBadRequest, "cart is empty")
			}
			return c.Redirect(http.StatusSeeOther, cartPath)
		case errors.Is(err, service.ErrNotFound):
			l.Warn("checkout_error", "status", 404, "error", err)
			return jsonError(c, http.StatusNotFound, "a product in the cart no longer exists")
		case errors.Is(err, service.ErrPayment):
			l.Error("checkout_error", "status", 502, "error", err)
			return jsonError(c, http.StatusBadGateway, "payment provider error")
		case errors.Is(err, service.ErrNotConfigured):
			return jsonError(c, http.StatusInternalServerError, "payment provider not configured")
		}
		l.Error("checkout_error", "status", 500, "error", err)
		return jsonError(c, http.StatusInternalServerError, "checkout failed")
	}

	s.RememberOrder(res.OrderID)
	l.Info("checkout_session_created", "order_id", res.OrderID, "session_id", res.SessionID)
	return c.JSON(http.StatusOK, transport.CheckoutResponse{ID: res.SessionID, URL: res.URL})
}

type successPage struct {
	Orders []uint
}

func (h *CheckoutHTTP) Success(c echo.Context) error {
	return h.render(c, http.StatusOK, "success.html", "Paiement réussi", successPage{
		Orders: session.FromEcho(c).Orders(),
	})
}

func (h *CheckoutHTTP) Cancel(c echo.Context) error {
	return h.render(c, http.StatusOK, "cancel.html", "Paiement annulé", nil)
}

func (h *CheckoutHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.webhook")

	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	if err := h.Svc.ConfirmPayment(ctx, payload, c.Request().Header.Get(SignatureHeader)); err != nil {
		return httpError(l, "webhook_error", err, "cannot process event")
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

// Receipt serves the PDF receipt to the session that placed the order and
// to admins. Anyone else gets a 404.
func (h *CheckoutHTTP) Receipt(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.receipt")

	id, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if !session.FromEcho(c).OwnsOrder(id) && !auth.IsAdmin(c) {
		l.Warn("receipt_error", "status", 404, "reason", "order not owned", "order_id", id)
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	order, err := h.Orders.GetOrder(ctx, id)
	if err != nil {
		return httpError(l, "receipt_error", err, "cannot load order")
	}

	var buf bytes.Buffer
	link := fmt.Sprintf("%s/orders/%d/receipt.pdf", h.BaseURL, order.ID)
	if err := receipt.Render(&buf, order, receipt.Options{ShopName: h.shopName, Link: link}); err != nil {
		l.Error("receipt_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot render receipt")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=commande-%d.pdf", order.ID))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
