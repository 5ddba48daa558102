package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	metricsmw "github.com/Skotchmaster/storefront/internal/middleware/metrics"
	"github.com/Skotchmaster/storefront/internal/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
)

const WebhookPath = "/webhooks/payment"

type Deps struct {
	Logger   *slog.Logger
	DB       *gorm.DB
	Sessions *session.Manager

	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Auth     *service.AuthService

	JWTSecret    []byte
	CookieSecure bool
	ShopName     string
	BaseURL      string
	RateLimitRPS float64

	// MediaRoot is served under /media when set.
	MediaRoot string

	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

// New builds the echo instance with the full middleware chain and every
// route registered.
func New(d *Deps) (*echo.Echo, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(metricsmw.HTTP)
	e.Use(d.Sessions.Middleware())
	e.Use(csrf.Middleware(csrf.Config{
		Secure:    d.CookieSecure,
		SkipPaths: []string{WebhookPath},
	}))

	Register(e, d)
	return e, nil
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	if d.MediaRoot != "" {
		e.Static("/media", d.MediaRoot)
	}

	s := &site{shopName: d.ShopName}
	authMW := auth.NewAutoRefreshMiddleware(d.JWTSecret, d.Auth, d.CookieSecure)

	catalog := &CatalogHTTP{site: s, Svc: d.Catalog}
	cart := &CartHTTP{site: s, Svc: d.Cart}
	checkout := &CheckoutHTTP{site: s, Svc: d.Checkout, Orders: d.Orders, BaseURL: d.BaseURL}
	accounts := &AuthHTTP{site: s, Svc: d.Auth, Secure: d.CookieSecure}
	orders := &OrdersHTTP{Svc: d.Orders}

	e.POST(WebhookPath, checkout.Webhook)

	pages := e.Group("", authMW.Optional)
	pages.GET("/", catalog.Home)
	pages.GET("/cart", cart.View)
	pages.POST("/cart/add/:id", cart.Add)
	pages.POST("/cart/update/:id", cart.Update)
	pages.POST("/checkout/session", checkout.CreateSession)
	pages.GET("/checkout/success", checkout.Success)
	pages.GET("/checkout/cancel", checkout.Cancel)
	pages.GET("/orders/:id/receipt.pdf", checkout.Receipt)

	rps := d.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	acc := pages.Group("/accounts", ratelimit.Posts(rps, int(rps)*2))
	acc.GET("/register", accounts.RegisterForm)
	acc.POST("/register", accounts.Register)
	acc.GET("/login", accounts.LoginForm)
	acc.POST("/login", accounts.Login)
	acc.POST("/logout", accounts.Logout)
	acc.POST("/refresh", accounts.Refresh)

	api := e.Group("/api/v1")
	api.GET("/products", catalog.GetProducts)
	api.GET("/products/search", catalog.SearchProducts)
	api.GET("/products/:id", catalog.GetProduct)
	api.GET("/cart", cart.ViewJSON)

	admin := e.Group("/admin/api", authMW.RequireAdmin)
	admin.POST("/products", catalog.CreateProduct)
	admin.PATCH("/products/:id", catalog.PatchProduct)
	admin.DELETE("/products/:id", catalog.DeleteProduct)
	admin.POST("/products/:id/image", catalog.UploadImage)
	admin.GET("/orders", orders.ListOrders)
	admin.GET("/orders/:id", orders.GetOrder)
}
