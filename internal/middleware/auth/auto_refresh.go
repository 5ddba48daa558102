package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

var errNoCredentials = errors.New("no credentials")

// Refresher rotates a refresh token into a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*transport.LoginResult, error)
}

type AutoRefreshMiddleware struct {
	JWTSecret []byte
	Refresher Refresher
	Secure    bool
}

func NewAutoRefreshMiddleware(secret []byte, refresher Refresher, secure bool) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{JWTSecret: secret, Refresher: refresher, Secure: secure}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

// Optional identifies the user when possible and lets anonymous visitors
// through.
func (m *AutoRefreshMiddleware) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.identify(c)
		switch {
		case err == nil:
			setUserContext(c, claims)
		case !errors.Is(err, errNoCredentials):
			logging.FromContext(c.Request().Context()).Debug("optional_auth", "reason", err.Error())
			m.clearAuthCookies(c)
		}
		return next(c)
	}
}

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *AutoRefreshMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *AutoRefreshMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.identify(c)
		if err != nil {
			if !errors.Is(err, errNoCredentials) {
				m.clearAuthCookies(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		if validator != nil {
			if err := validator(claims); err != nil {
				return err
			}
		}
		setUserContext(c, claims)
		return next(c)
	}
}

// identify reads the access cookie and, when it is expired or gone, tries
// to rotate the refresh cookie.
func (m *AutoRefreshMiddleware) identify(c echo.Context) (*tokens.AccessClaims, error) {
	accessCookie, err := c.Cookie(tokens.AccessCookie)
	if err == nil && accessCookie.Value != "" {
		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, err
		}
	}

	refreshCookie, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || refreshCookie.Value == "" {
		return nil, errNoCredentials
	}
	if m.Refresher == nil {
		return nil, errNoCredentials
	}

	res, err := m.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
	if err != nil {
		return nil, err
	}
	SetAuthCookies(c, res, m.Secure)

	return tokens.AccessClaimsFromToken(res.AccessToken, m.JWTSecret)
}

func SetAuthCookies(c echo.Context, res *transport.LoginResult, secure bool) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, secure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, secure))
}

func ClearAuthCookies(c echo.Context, secure bool) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", secure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", secure))
}

func (m *AutoRefreshMiddleware) clearAuthCookies(c echo.Context) {
	ClearAuthCookies(c, m.Secure)
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	if id, err := uuid.Parse(claims.Subject); err == nil {
		c.Set(ctxUserID, id)
	}
	c.Set(ctxRole, claims.Role)
}

// UserID returns the authenticated user, or nil for anonymous requests.
func UserID(c echo.Context) *uuid.UUID {
	id, ok := c.Get(ctxUserID).(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(ctxRole).(string)
	return role == models.RoleAdmin
}
