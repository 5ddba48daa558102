package config

import (
	"fmt"
	"log"
	"strings"
)

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

// Validate reports every required key that is unset in one error, then
// settings that contradict each other.
func (c Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(c.JWTAccessSecret) == 0 {
		missing = append(missing, "JWT_SECRET")
	}
	if len(c.JWTRefreshSecret) == 0 {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}
	if c.PaymentConfigured() && c.PaymentWebhookSecret == "" {
		missing = append(missing, "PAYMENT_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}

	if c.PaymentConfigured() && c.CheckoutTimeout >= c.ServerWriteTimeout {
		return fmt.Errorf("CHECKOUT_TIMEOUT (%s) must be shorter than HTTP_WRITE_TIMEOUT (%s)", c.CheckoutTimeout, c.ServerWriteTimeout)
	}

	switch c.SessionBackend {
	case "db", "redis":
	default:
		return fmt.Errorf("SESSION_BACKEND must be db or redis, got %q", c.SessionBackend)
	}
	return nil
}
