package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const (
	DefaultCookieName = "sessionid"
	contextKey        = "session"
)

type Manager struct {
	Store      Store
	TTL        time.Duration
	CookieName string
	Secure     bool

	// Now defaults to time.Now.
	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// needsRefresh reports whether more than half of the TTL has passed since
// the session was last written. Such sessions are saved again on read so
// browsing alone keeps them alive.
func (m *Manager) needsRefresh(s *Session) bool {
	saved := s.savedAt()
	return saved.IsZero() || m.now().Sub(saved) > m.TTL/2
}

func NewManager(store Store, ttl time.Duration, secure bool) *Manager {
	return &Manager{Store: store, TTL: ttl, CookieName: DefaultCookieName, Secure: secure}
}

// Load returns the session named by key, or a fresh one with a new key when
// key is empty, unknown or expired. Client-chosen keys are never adopted.
func (m *Manager) Load(ctx context.Context, key string) (*Session, error) {
	if _, err := uuid.Parse(key); key == "" || err != nil {
		return New(uuid.NewString()), nil
	}
	raw, err := m.Store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return New(uuid.NewString()), nil
		}
		return nil, err
	}
	s, err := decode(key, raw)
	if err != nil {
		logging.FromContext(ctx).Warn("session_decode_error", "error", err)
		return New(uuid.NewString()), nil
	}
	if m.needsRefresh(s) {
		s.dirty = true
	}
	return s, nil
}

func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s.deleted {
		return nil
	}
	s.data.SavedAt = m.now().Unix()
	raw, err := s.encode()
	if err != nil {
		return err
	}
	if err := m.Store.Save(ctx, s.Key, raw, m.TTL); err != nil {
		return err
	}
	s.markClean()
	return nil
}

// Destroy drops the stored session; the cookie is expired on the response.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	s.deleted = true
	return m.Store.Delete(ctx, s.Key)
}

// ClearCart empties the cart of a session other than the current request's.
// A missing session is not an error.
func (m *Manager) ClearCart(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	raw, err := m.Store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	s, err := decode(key, raw)
	if err != nil {
		return err
	}
	s.Cart().Clear()
	if !s.Dirty() {
		return nil
	}
	return m.Save(ctx, s)
}

func (m *Manager) cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     m.CookieName,
		Value:    s.Key,
		Path:     "/",
		Expires:  m.now().Add(m.TTL),
		MaxAge:   int(m.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Middleware attaches the visitor session to the echo context and writes it
// back right before the response header goes out, so the store is up to date
// by the time the client sees a redirect.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := ""
			if ck, err := c.Cookie(m.CookieName); err == nil {
				key = ck.Value
			}

			s, err := m.Load(ctx, key)
			if err != nil {
				logging.FromContext(ctx).Error("session_load_error", "status", 500, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}
			Attach(c, s)

			c.Response().Before(func() {
				m.commit(c, s)
			})

			return next(c)
		}
	}
}

func (m *Manager) commit(c echo.Context, s *Session) {
	if s.deleted {
		c.SetCookie(m.expiredCookie())
		return
	}
	if !s.Dirty() {
		return
	}
	if err := m.Save(c.Request().Context(), s); err != nil {
		logging.FromContext(c.Request().Context()).Error("session_save_error", "error", err)
		return
	}
	c.SetCookie(m.cookie(s))
}

func Attach(c echo.Context, s *Session) {
	c.Set(contextKey, s)
}

// FromEcho returns the request session, attaching an empty one if the
// middleware did not run.
func FromEcho(c echo.Context) *Session {
	if s, ok := c.Get(contextKey).(*Session); ok && s != nil {
		return s
	}
	s := New(uuid.NewString())
	Attach(c, s)
	return s
}
