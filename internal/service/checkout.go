package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tracing"
)

const (
	placeholderFirstName = "Client"
	placeholderLastName  = "Anonyme"
	placeholderEmail     = "pending@checkout.local"
)

// CartClearer empties the cart stored under a session key.
type CartClearer interface {
	ClearCart(ctx context.Context, key string) error
}

type CheckoutService struct {
	Repo      *repo.GormRepo
	Gateway   payment.Gateway // nil when no provider is configured
	Publisher mykafka.Publisher
	Sessions  CartClearer
	BaseURL   string

	// PaymentBudget bounds the whole provider call, retries included, so the
	// caller still gets an answer before the server write deadline.
	PaymentBudget time.Duration
}

type CheckoutInput struct {
	Cart       *domain.Cart
	SessionKey string
	UserID     *uuid.UUID
}

type CheckoutResult struct {
	OrderID   uint
	SessionID string
	URL       string
}

func (s *CheckoutService) Configured() bool {
	return s.Gateway != nil
}

// CreateCheckoutSession turns the cart into an unpaid Order and opens a
// hosted payment session for it. When the provider call fails the Order is
// deleted again. The cart is left as is; it is emptied once the payment is
// confirmed.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.create_session")
	defer span.End()
	l := logging.FromContext(ctx).With("svc", "checkout.create_session")

	if s.Gateway == nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("not_configured").Inc()
		return nil, fmt.Errorf("payment provider: %w", ErrNotConfigured)
	}
	if in.Cart == nil || in.Cart.Empty() {
		metrics.CheckoutSessionsTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	entries := in.Cart.Entries()
	products, err := s.Repo.GetProductsByIDs(ctx, in.Cart.ProductIDs())
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(entries))
	lineItems := make([]payment.LineItem, 0, len(entries))
	for _, e := range entries {
		p, ok := products[e.ProductID]
		if !ok {
			metrics.CheckoutSessionsTotal.WithLabelValues("missing_product").Inc()
			return nil, fmt.Errorf("product %d: %w", e.ProductID, ErrNotFound)
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  uint(e.Quantity),
		})
		lineItems = append(lineItems, payment.LineItem{
			Name:       p.Name,
			UnitAmount: domain.ToMinorUnits(p.Price),
			Quantity:   int64(e.Quantity),
		})
	}

	order := &models.Order{
		FirstName:  placeholderFirstName,
		LastName:   placeholderLastName,
		Email:      placeholderEmail,
		UserID:     in.UserID,
		SessionKey: in.SessionKey,
		Items:      items,
	}
	if err := s.Repo.CreateOrderWithItems(ctx, order); err != nil {
		l.Error("create_order_error", "status", 500, "error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}
	orderRef := strconv.FormatUint(uint64(order.ID), 10)
	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)), attribute.Int("order.items", len(items)))

	payCtx := ctx
	if s.PaymentBudget > 0 {
		var cancel context.CancelFunc
		payCtx, cancel = context.WithTimeout(ctx, s.PaymentBudget)
		defer cancel()
	}
	start := time.Now()
	ps, err := s.Gateway.CreateSession(payCtx, payment.SessionRequest{
		LineItems:  lineItems,
		SuccessURL: s.BaseURL + "/checkout/success/",
		CancelURL:  s.BaseURL + "/checkout/cancel/",
		OrderID:    orderRef,
	})
	metrics.PaymentRequestLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment session")
		l.Error("create_payment_session_error", "status", 502, "order_id", order.ID, "transient", errors.Is(err, payment.ErrTransient), "error", err)

		if derr := s.Repo.DeleteOrder(context.WithoutCancel(ctx), order.ID); derr != nil {
			l.Error("checkout_compensation_error", "order_id", order.ID, "error", derr)
		}
		metrics.CheckoutSessionsTotal.WithLabelValues("payment_error").Inc()
		publish(ctx, s.Publisher, orderRef, mykafka.EventCheckoutFailed, map[string]any{
			"order_id": order.ID,
			"reason":   err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrPayment, err)
	}

	if err := s.Repo.SetPaymentSessionID(ctx, order.ID, ps.ID); err != nil {
		l.Warn("set_payment_session_error", "order_id", order.ID, "error", err)
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("ok").Inc()
	publish(ctx, s.Publisher, orderRef, mykafka.EventOrderCreated, map[string]any{
		"order_id":   order.ID,
		"session_id": ps.ID,
		"total":      order.Total().StringFixed(2),
		"items":      len(items),
	})
	return &CheckoutResult{OrderID: order.ID, SessionID: ps.ID, URL: ps.URL}, nil
}

// ConfirmPayment handles a signed provider event. Only completed, paid
// checkout sessions change state: the Order is marked paid and the cart of
// the session that placed it is emptied. Replayed events are no-ops.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, payload []byte, signature string) error {
	ctx, span := tracing.StartSpan(ctx, "checkout.confirm_payment")
	defer span.End()
	l := logging.FromContext(ctx).With("svc", "checkout.confirm_payment")

	if s.Gateway == nil {
		return fmt.Errorf("payment provider: %w", ErrNotConfigured)
	}

	ev, err := s.Gateway.ParseEvent(payload, signature)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	span.SetAttributes(attribute.String("event.type", ev.Type), attribute.String("event.id", ev.ID))

	if ev.Type != payment.EventCheckoutCompleted && ev.Type != payment.EventAsyncPaymentSucceded {
		metrics.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		return nil
	}
	if !ev.Paid {
		metrics.WebhookEventsTotal.WithLabelValues("unpaid").Inc()
		l.Info("payment_not_settled", "event_id", ev.ID, "order_ref", ev.OrderID)
		return nil
	}

	id, err := strconv.ParseUint(ev.OrderID, 10, 64)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("order reference %q: %w", ev.OrderID, ErrValidation)
	}

	order, err := s.Repo.GetOrder(ctx, uint(id))
	if err != nil {
		if repo.IsNotFound(err) {
			metrics.WebhookEventsTotal.WithLabelValues("unknown_order").Inc()
			l.Warn("confirm_payment_unknown_order", "order_id", id, "event_id", ev.ID)
			return nil
		}
		return err
	}
	if order.Paid {
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	// Clear before marking paid so a failed clear is retried with the event.
	if s.Sessions != nil {
		if err := s.Sessions.ClearCart(ctx, order.SessionKey); err != nil {
			l.Error("clear_cart_error", "order_id", order.ID, "error", err)
			return fmt.Errorf("clear cart: %w", err)
		}
	}

	_, changed, err := s.Repo.MarkOrderPaid(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if !changed {
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	metrics.WebhookEventsTotal.WithLabelValues("paid").Inc()
	metrics.OrdersPaidTotal.Inc()
	l.Info("order_paid", "order_id", order.ID, "event_id", ev.ID)
	publish(ctx, s.Publisher, ev.OrderID, mykafka.EventOrderPaid, map[string]any{
		"order_id":   order.ID,
		"session_id": ev.SessionID,
		"total":      order.Total().StringFixed(2),
	})
	return nil
}
