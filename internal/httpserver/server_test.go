package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/report"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

const (
	goodSignature = "t=1,v1=good"
	echoLocation  = "Location"
)

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

type fakeGateway struct {
	session *payment.Session
	err     error
	event   *payment.Event
}

func (g *fakeGateway) CreateSession(_ context.Context, _ payment.SessionRequest) (*payment.Session, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

func (g *fakeGateway) ParseEvent(_ []byte, signature string) (*payment.Event, error) {
	if signature != goodSignature {
		return nil, payment.ErrInvalidSignature
	}
	return g.event, nil
}

type harness struct {
	e       *echo.Echo
	db      *gorm.DB
	deps    *Deps
	gateway *fakeGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gdb := testutil.NewDB(t)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	r := &repo.GormRepo{DB: gdb}
	sessions := session.NewManager(&session.GormStore{DB: gdb}, time.Hour, false)
	gateway := &fakeGateway{session: &payment.Session{ID: "cs_test", URL: "https://pay.example/cs_test"}}

	deps := &Deps{
		Logger:   logging.NewWithWriter("error", io.Discard),
		DB:       gdb,
		Sessions: sessions,
		Catalog:  &service.CatalogService{Repo: r, Media: &media.Store{Root: t.TempDir()}, Publisher: mykafka.Nop{}},
		Cart:     &service.CartService{Repo: r, Publisher: mykafka.Nop{}},
		Checkout: &service.CheckoutService{
			Repo:      r,
			Gateway:   gateway,
			Publisher: mykafka.Nop{},
			Sessions:  sessions,
			BaseURL:   "http://shop.test",
		},
		Orders: &service.OrderService{Repo: r, Report: report.New(sqlx.NewDb(sqlDB, "sqlite3"))},
		Auth: &service.AuthService{
			Repo:          r,
			JWTSecret:     []byte("access"),
			RefreshSecret: []byte("refresh"),
		},
		JWTSecret:    []byte("access"),
		ShopName:     "Boutique Test",
		BaseURL:      "http://shop.test",
		RateLimitRPS: 1000,
		Metrics:      promhttp.Handler(),
	}

	e, err := New(deps)
	require.NoError(t, err)
	return &harness{e: e, db: gdb, deps: deps, gateway: gateway}
}

// client is a tiny browser: it keeps cookies and sends the CSRF header.
type client struct {
	t       *testing.T
	h       *harness
	cookies map[string]string
}

func (h *harness) client(t *testing.T) *client {
	t.Helper()

	c := &client{t: t, h: h, cookies: map[string]string{}}
	rec := c.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, c.cookies["XSRF-TOKEN"])
	return c
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if req.Header.Get("X-CSRF-Token") == "" && c.cookies["XSRF-TOKEN"] != "" {
		req.Header.Set("X-CSRF-Token", c.cookies["XSRF-TOKEN"])
	}

	rec := httptest.NewRecorder()
	c.h.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return rec
}

func (c *client) get(path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return c.do(req)
}

func (c *client) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	return c.do(req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
