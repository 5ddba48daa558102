package httpserver

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"home.html", "cart.html", "success.html", "cancel.html", "login.html", "register.html"}

// Renderer executes one template set per page, each sharing base.html.
type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) + " €" },
		"add":   func(a, b int) int { return a + b },
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+p)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", p, err)
		}
		r.templates[p] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}

type pageData struct {
	Title     string
	ShopName  string
	CSRFToken string
	Messages  []session.Message
	CartCount int
	LoggedIn  bool
	IsAdmin   bool
	Data      any
}

// render fills the layout fields and consumes the queued session messages.
func (s *site) render(c echo.Context, code int, name, title string, data any) error {
	sess := session.FromEcho(c)
	return c.Render(code, name, pageData{
		Title:     title,
		ShopName:  s.shopName,
		CSRFToken: csrf.Token(c),
		Messages:  sess.PopMessages(),
		CartCount: sess.Cart().Count(),
		LoggedIn:  auth.UserID(c) != nil,
		IsAdmin:   auth.IsAdmin(c),
		Data:      data,
	})
}
