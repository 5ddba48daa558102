package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/testutil"
)

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func register(c *client, username, password string) int {
	return c.postForm("/accounts/register/", url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password1": {password},
		"password2": {password},
	}).Code
}

func login(c *client, username, password string) int {
	return c.postForm("/accounts/login/", url.Values{"username": {username}, "password": {password}}).Code
}

func TestAccounts_RegisterLoginLogout(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)

	assert.Equal(t, http.StatusOK, c.get("/accounts/register/").Code)

	rec := c.postForm("/accounts/register/", url.Values{
		"username":  {"alice"},
		"password1": {"correct-horse"},
		"password2": {"battery-staple"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "passwords do not match")

	rec = c.postForm("/accounts/register", url.Values{
		"username":  {"alice"},
		"password1": {"correct-horse"},
		"password2": {"correct-horse"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/accounts/login/", rec.Header().Get(echoLocation))

	page := c.get("/accounts/login/")
	assert.Contains(t, page.Body.String(), "Votre compte a été créé.")

	assert.Equal(t, http.StatusConflict, register(c, "alice", "correct-horse"))

	rec = c.postForm("/accounts/login/", url.Values{"username": {"alice"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, c.cookies["accessToken"])

	require.Equal(t, http.StatusSeeOther, login(c, "alice", "correct-horse"))
	assert.NotEmpty(t, c.cookies["accessToken"])
	assert.NotEmpty(t, c.cookies["refreshToken"])
	assert.Contains(t, c.get("/").Body.String(), "Déconnexion")

	rec = c.postForm("/accounts/logout/", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, c.cookies["accessToken"])
	assert.Empty(t, c.cookies["refreshToken"])

	home := c.get("/").Body.String()
	assert.Contains(t, home, "Vous êtes déconnecté.")
	assert.NotContains(t, home, "Déconnexion")
}

func TestAccounts_RefreshRotatesTokens(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)
	require.Equal(t, http.StatusSeeOther, register(c, "bob", "correct-horse"))
	require.Equal(t, http.StatusSeeOther, login(c, "bob", "correct-horse"))
	before := c.cookies["refreshToken"]

	rec := c.postForm("/accounts/refresh/", nil, "Accept", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, before, c.cookies["refreshToken"])

	// the old token was revoked by the rotation
	c.cookies["refreshToken"] = before
	rec = c.postForm("/accounts/refresh/", nil, "Accept", "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccounts_ExpiredAccessTokenIsRefreshed(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)
	require.Equal(t, http.StatusSeeOther, register(c, "carol", "correct-horse"))
	require.Equal(t, http.StatusSeeOther, login(c, "carol", "correct-horse"))

	delete(c.cookies, "accessToken")
	page := c.get("/")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Déconnexion")
	assert.NotEmpty(t, c.cookies["accessToken"])
}

func TestAdminAPI(t *testing.T) {
	h := newHarness(t)
	created, err := h.deps.Auth.ProvisionAdmin(context.Background(), "admin", "admin@example.com", "admin-password")
	require.NoError(t, err)
	require.True(t, created)

	anon := h.client(t)
	rec := anon.sendJSON(http.MethodPost, "/admin/api/products", `{"name":"Lamp","price":"49.90"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := h.client(t)
	require.Equal(t, http.StatusSeeOther, register(user, "dave", "correct-horse"))
	require.Equal(t, http.StatusSeeOther, login(user, "dave", "correct-horse"))
	rec = user.sendJSON(http.MethodPost, "/admin/api/products", `{"name":"Lamp","price":"49.90"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := h.client(t)
	require.Equal(t, http.StatusSeeOther, login(admin, "admin", "admin-password"))

	rec = admin.sendJSON(http.MethodPost, "/admin/api/products", `{"name":"","price":"49.90"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = admin.sendJSON(http.MethodPost, "/admin/api/products", `{"name":"Lamp","description":"Desk lamp","price":"49.90"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := uint(decode(t, rec)["id"].(float64))
	path := "/admin/api/products/" + itoa(id)

	rec = admin.sendJSON(http.MethodPatch, path, `{"price":"39.90"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decimal.RequireFromString("39.90").Equal(decimal.RequireFromString(decode(t, rec)["price"].(string))))

	rec = anon.get("/api/v1/products/" + itoa(id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lamp", decode(t, rec)["name"])

	rec = anon.get("/api/v1/products/search?q=lamp")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)

	assert.Equal(t, http.StatusBadRequest, anon.get("/api/v1/products/search?q=").Code)

	rec = admin.sendJSON(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, anon.get("/api/v1/products/"+itoa(id)).Code)
}

func TestAdminAPI_Orders(t *testing.T) {
	h := newHarness(t)
	_, err := h.deps.Auth.ProvisionAdmin(context.Background(), "admin", "admin@example.com", "admin-password")
	require.NoError(t, err)

	anon := h.client(t)
	rec := anon.sendJSON(http.MethodGet, "/admin/api/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	shopper := h.client(t)
	mug := testutil.SeedProduct(t, h.db, "Mug", "12.50")
	shopper.postForm("/cart/add/"+itoa(mug.ID), nil)
	require.Equal(t, http.StatusOK, checkout(shopper).Code)

	admin := h.client(t)
	require.Equal(t, http.StatusSeeOther, login(admin, "admin", "admin-password"))

	rec = admin.get("/admin/api/orders?paid=false")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.EqualValues(t, 1, row["item_count"])
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["total"])

	rec = admin.get("/admin/api/orders?paid=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["data"])

	assert.Equal(t, http.StatusBadRequest, admin.get("/admin/api/orders?paid=maybe").Code)

	id := uint(row["id"].(float64))
	rec = admin.get("/admin/api/orders/" + itoa(id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	// admins may read any receipt
	assert.Equal(t, http.StatusOK, admin.get("/orders/"+itoa(id)+"/receipt.pdf").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)

	assert.Equal(t, http.StatusOK, c.get("/health/live").Code)
	assert.Equal(t, http.StatusOK, c.get("/health/ready").Code)

	rec := c.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
