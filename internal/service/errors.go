package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
)

var (
	ErrValidation    = errors.New("validation")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotConfigured = errors.New("not configured")
	ErrPayment       = errors.New("payment failed")

	ErrEmptyCart = fmt.Errorf("cart is empty: %w", ErrValidation)
)

const publishTimeout = 3 * time.Second

// publish sends an event without letting broker trouble fail the caller.
func publish(ctx context.Context, p mykafka.Publisher, key, eventType string, payload any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, key, eventType, payload); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "event", eventType, "key", key, "error", err)
	}
}
