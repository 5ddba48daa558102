package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/report"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tracing"
)

const purgeInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.TracingStdout)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	reports, err := report.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("report db: %v", err)
	}

	store, stopPurge := sessionStore(cfg, gdb, logger)
	sessions := session.NewManager(store, cfg.SessionTTL, cfg.SessionCookieSecure)

	var publisher mykafka.Publisher = mykafka.Nop{}
	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = producer
	} else {
		logger.Warn("kafka disabled", "reason", "KAFKA_BROKERS is empty")
	}

	r := &repo.GormRepo{DB: gdb}
	catalog := &service.CatalogService{
		Repo:      r,
		Media:     &media.Store{Root: cfg.MediaRoot},
		Publisher: publisher,
	}
	if cfg.ESURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		cancel()
		if err != nil {
			logger.Error("elasticsearch unavailable", "reason", "search falls back to the database", "error", err)
		} else {
			catalog.Index = &es.ProductIndex{Client: client, Index: cfg.ESIndex}
		}
	}

	checkout := &service.CheckoutService{
		Repo:      r,
		Publisher: publisher,
		Sessions:  sessions,
		BaseURL:   cfg.PublicBaseURL,

		PaymentBudget: cfg.CheckoutTimeout,
	}
	if cfg.PaymentConfigured() {
		checkout.Gateway = payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.PaymentSecretKey,
			WebhookSecret: cfg.PaymentWebhookSecret,
			Currency:      cfg.PaymentCurrency,
			Timeout:       cfg.PaymentTimeout,
			MaxRetries:    cfg.PaymentMaxRetries,
		})
	} else {
		logger.Warn("payment provider not configured", "reason", "PAYMENT_SECRET_KEY is empty")
	}

	e, err := httpserver.New(&httpserver.Deps{
		Logger:   logger,
		DB:       gdb,
		Sessions: sessions,
		Catalog:  catalog,
		Cart:     &service.CartService{Repo: r, Publisher: publisher},
		Checkout: checkout,
		Orders:   &service.OrderService{Repo: r, Report: reports},
		Auth: &service.AuthService{
			Repo:          r,
			JWTSecret:     cfg.JWTAccessSecret,
			RefreshSecret: cfg.JWTRefreshSecret,
			Publisher:     publisher,
		},
		JWTSecret:    cfg.JWTAccessSecret,
		CookieSecure: cfg.SessionCookieSecure,
		ShopName:     cfg.ShopName,
		BaseURL:      cfg.PublicBaseURL,
		RateLimitRPS: float64(cfg.RateLimitRPS),
		MediaRoot:    cfg.MediaRoot,
		Metrics:      promhttp.Handler(),
	})
	if err != nil {
		log.Fatalf("http server: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ServerWriteTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	stopPurge()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}
	if err := reports.Close(); err != nil {
		logger.Error("report db close error", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}

	logger.Info("storefront stopped")
}

// sessionStore picks the session backend. The database backend gets a
// background sweep for expired rows; redis expires keys on its own.
func sessionStore(cfg config.Config, gdb *gorm.DB, logger *slog.Logger) (session.Store, func()) {
	if cfg.SessionBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		return session.NewRedisStore(client), func() { _ = client.Close() }
	}

	store := &session.GormStore{DB: gdb}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		t := time.NewTicker(purgeInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := store.PurgeExpired(ctx)
				if err != nil {
					logger.Error("session_purge_error", "error", err)
					continue
				}
				logger.Info("session_purge", "deleted", n)
			}
		}
	}()
	return store, cancel
}
