package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "spaces and blanks", in: " a:1 , ,b:2,", want: []string{"a:1", "b:2"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CSV(tt.in))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("PAYMENT_TIMEOUT", "")
	t.Setenv("CHECKOUT_TIMEOUT", "")
	t.Setenv("HTTP_WRITE_TIMEOUT", "")
	t.Setenv("PAYMENT_SECRET_KEY", "")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg := Load()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "db", cfg.SessionBackend)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 12*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, 15*time.Second, cfg.ServerWriteTimeout)
	assert.Equal(t, "eur", cfg.PaymentCurrency)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.False(t, cfg.PaymentConfigured())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("PAYMENT_SECRET_KEY", "sk_test_123")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example/")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SessionCookieSecure)
	assert.True(t, cfg.PaymentConfigured())
	assert.Equal(t, "https://shop.example", cfg.PublicBaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestEnvDefaults_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "-5s")

	assert.Equal(t, 7, EnvIntDefault("X_INT", 7))
	assert.True(t, EnvBoolDefault("X_BOOL", true))
	assert.Equal(t, time.Minute, EnvDurationDefault("X_DUR", time.Minute))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		DatabaseURL:      "postgres://shop@localhost/shop",
		JWTAccessSecret:  []byte("a"),
		JWTRefreshSecret: []byte("r"),
		SessionBackend:   "db",
	}
	assert.NoError(t, valid.Validate())

	empty := Config{SessionBackend: "db"}
	err := empty.Validate()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "DATABASE_URL, JWT_SECRET, JWT_REFRESH_SECRET")
	}

	noWebhook := valid
	noWebhook.PaymentSecretKey = "sk_test"
	assert.ErrorContains(t, noWebhook.Validate(), "PAYMENT_WEBHOOK_SECRET")

	paid := valid
	paid.PaymentSecretKey = "sk_test"
	paid.PaymentWebhookSecret = "whsec_test"
	paid.CheckoutTimeout = 12 * time.Second
	paid.ServerWriteTimeout = 15 * time.Second
	assert.NoError(t, paid.Validate())

	slow := paid
	slow.CheckoutTimeout = 30 * time.Second
	assert.ErrorContains(t, slow.Validate(), "CHECKOUT_TIMEOUT")

	badBackend := valid
	badBackend.SessionBackend = "memcached"
	assert.ErrorContains(t, badBackend.Validate(), "SESSION_BACKEND")
}
