package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	loginPath       = "/accounts/login/"
	msgRegistered   = "Votre compte a été créé. Vous pouvez vous connecter."
	msgLoggedOut    = "Vous êtes déconnecté."
	msgBadLogin     = "Nom d'utilisateur ou mot de passe incorrect."
	msgUsernameUsed = "Ce nom d'utilisateur est déjà pris."
)

type AuthHTTP struct {
	*site
	Svc    *service.AuthService
	Secure bool
}

type authForm struct {
	Username string
	Email    string
	Error    string
}

func (h *AuthHTTP) RegisterForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "register.html", "Inscription", authForm{})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Register(ctx, req); err != nil {
		code := statusFor(err)
		if code >= 500 {
			return httpError(l, "register_error", err, "cannot register")
		}
		l.Warn("register_error", "status", code, "error", err)

		msg := err.Error()
		if errors.Is(err, service.ErrConflict) {
			msg = msgUsernameUsed
		}
		if wantsJSON(c) {
			return jsonError(c, code, msg)
		}
		return h.render(c, code, "register.html", "Inscription", authForm{Username: req.Username, Email: req.Email, Error: msg})
	}

	l.Info("register_success", "username", req.Username)
	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, map[string]string{"username": req.Username})
	}
	session.FromEcho(c).AddMessage(session.LevelSuccess, msgRegistered)
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *AuthHTTP) LoginForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "login.html", "Connexion", authForm{})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrUnauthorized) {
			return httpError(l, "login_error", err, "cannot log in")
		}
		if wantsJSON(c) {
			return jsonError(c, http.StatusUnauthorized, msgBadLogin)
		}
		return h.render(c, http.StatusUnauthorized, "login.html", "Connexion", authForm{Username: req.Username, Error: msgBadLogin})
	}

	auth.SetAuthCookies(c, res, h.Secure)
	l.Info("login_success", "username", req.Username, "admin", res.IsAdmin)
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]any{"access_exp": res.AccessExp.Unix(), "is_admin": res.IsAdmin})
	}
	return c.Redirect(http.StatusSeeOther, catalogPath)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		if err := h.Svc.LogOut(ctx, ck.Value); err != nil {
			l.Error("logout_error", "status", 500, "error", err)
		}
	}
	auth.ClearAuthCookies(c, h.Secure)

	if wantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	session.FromEcho(c).AddMessage(session.LevelInfo, msgLoggedOut)
	return c.Redirect(http.StatusSeeOther, catalogPath)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	ck, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || ck.Value == "" {
		l.Warn("refresh_error", "status", 401, "reason", "refresh token missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, ck.Value)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			auth.ClearAuthCookies(c, h.Secure)
		}
		return httpError(l, "refresh_error", err, "cannot refresh")
	}

	auth.SetAuthCookies(c, res, h.Secure)
	return c.JSON(http.StatusOK, map[string]any{
		"access_exp":  res.AccessExp.Unix(),
		"refresh_exp": res.RefreshExp.Unix(),
	})
}
