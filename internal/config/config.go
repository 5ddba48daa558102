package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	ServerPort  int

	ServerWriteTimeout time.Duration
	LogLevel           string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte

	SessionBackend      string
	SessionTTL          time.Duration
	SessionCookieSecure bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PaymentSecretKey     string
	PaymentWebhookSecret string
	PaymentTimeout       time.Duration
	PaymentMaxRetries    int
	PaymentCurrency      string
	CheckoutTimeout      time.Duration
	PublicBaseURL        string

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	MediaRoot string
	ShopName  string

	TracingStdout bool
	RateLimitRPS  int
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),

		ServerWriteTimeout: EnvDurationDefault("HTTP_WRITE_TIMEOUT", 15*time.Second),
		LogLevel:           os.Getenv("LOG_LEVEL"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		SessionBackend:      EnvDefault("SESSION_BACKEND", "db"),
		SessionTTL:          EnvDurationDefault("SESSION_TTL", 14*24*time.Hour),
		SessionCookieSecure: EnvBoolDefault("SESSION_COOKIE_SECURE", false),

		RedisAddr:     EnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),

		PaymentSecretKey:     os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentTimeout:       EnvDurationDefault("PAYMENT_TIMEOUT", 4*time.Second),
		PaymentMaxRetries:    EnvIntDefault("PAYMENT_MAX_RETRIES", 2),
		PaymentCurrency:      EnvDefault("PAYMENT_CURRENCY", "eur"),
		CheckoutTimeout:      EnvDurationDefault("CHECKOUT_TIMEOUT", 12*time.Second),
		PublicBaseURL:        strings.TrimRight(EnvDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "shop_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		ShopName:  EnvDefault("SHOP_NAME", "Boutique"),
		MediaRoot: EnvDefault("MEDIA_ROOT", "./media"),

		TracingStdout: EnvBoolDefault("TRACING_STDOUT", false),
		RateLimitRPS:  EnvIntDefault("RATE_LIMIT_RPS", 5),
	}
}

// PaymentConfigured reports whether checkout can reach the payment provider.
func (c Config) PaymentConfigured() bool {
	return c.PaymentSecretKey != ""
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
