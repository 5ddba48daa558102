package repo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func newRepo(t *testing.T) *GormRepo {
	t.Helper()
	return &GormRepo{DB: testutil.NewDB(t)}
}

func TestGetProducts_NewestFirst(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	a := testutil.SeedProduct(t, r.DB, "first", "1.00")
	b := testutil.SeedProduct(t, r.DB, "second", "2.00")
	c := testutil.SeedProduct(t, r.DB, "third", "3.00")

	total, items, err := r.GetProducts(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, c.ID, items[0].ID)
	assert.Equal(t, b.ID, items[1].ID)

	_, items, err = r.GetProducts(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)
}

func TestGetProductsByIDs_SkipsMissing(t *testing.T) {
	r := newRepo(t)
	p := testutil.SeedProduct(t, r.DB, "mug", "9.90")

	got, err := r.GetProductsByIDs(context.Background(), []uint{p.ID, 9999})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[p.ID].Price.Equal(decimal.RequireFromString("9.90")))
}

func TestPatchProduct_KeepsCreatedAt(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, r.DB, "lamp", "20.00")

	name := "desk lamp"
	price := decimal.RequireFromString("25.50")
	got, err := r.PatchProduct(ctx, p.ID, transport.PatchProductRequest{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "desk lamp", got.Name)

	reloaded, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Price.Equal(price))
	assert.WithinDuration(t, p.CreatedAt, reloaded.CreatedAt, time.Second)

	_, err = r.PatchProduct(ctx, 4242, transport.PatchProductRequest{Name: &name})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSearchProducts_Fallback(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	testutil.SeedProduct(t, r.DB, "Blue Mug", "5.00")
	testutil.SeedProduct(t, r.DB, "Red Chair", "50.00")
	testutil.SeedProduct(t, r.DB, "100% cotton", "12.00")

	total, items, err := r.SearchProducts(ctx, "mug", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Blue Mug", items[0].Name)

	total, _, err = r.SearchProducts(ctx, "%", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "wildcards are matched literally")
}

func TestCreateOrderWithItems_AndDeleteProductGuard(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, r.DB, "book", "10.00")

	order := &models.Order{
		FirstName: "Client", LastName: "Anonyme", Email: "pending@checkout.local",
		Items: []models.OrderItem{{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 2}},
	}
	require.NoError(t, r.CreateOrderWithItems(ctx, order))
	require.NotZero(t, order.ID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	got, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, got.Paid)
	assert.True(t, got.Total().Equal(decimal.RequireFromString("20")))

	assert.ErrorIs(t, r.DeleteProduct(ctx, p.ID), ErrProductInUse)

	require.NoError(t, r.DeleteOrder(ctx, order.ID))
	var items int64
	require.NoError(t, r.DB.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, items)

	require.NoError(t, r.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, r.DeleteProduct(ctx, p.ID), gorm.ErrRecordNotFound)
}

func TestCreateOrderWithItems_RollsBackOnItemFailure(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	order := &models.Order{
		FirstName: "Client", LastName: "Anonyme", Email: "x@y.z",
		Items: []models.OrderItem{{ProductID: 1, Name: "bad", Price: decimal.NewFromInt(1), Quantity: 0}},
	}
	require.Error(t, r.CreateOrderWithItems(ctx, order))

	var orders int64
	require.NoError(t, r.DB.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestMarkOrderPaid_Idempotent(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	order := &models.Order{FirstName: "a", LastName: "b", Email: "c@d.e"}
	require.NoError(t, r.CreateOrderWithItems(ctx, order))

	got, changed, err := r.MarkOrderPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, got.Paid)

	_, changed, err = r.MarkOrderPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = r.MarkOrderPaid(ctx, 999)
	assert.True(t, IsNotFound(err))
}

func TestUsersAndAdminUpsert(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	pw, err := hash.HashPassword("password-1")
	require.NoError(t, err)
	u := &models.User{Username: "alice", PasswordHash: pw, Role: models.RoleUser}
	require.NoError(t, r.CreateUserIfNotExists(ctx, u))
	assert.ErrorIs(t, r.CreateUserIfNotExists(ctx, &models.User{Username: "alice", PasswordHash: pw, Role: models.RoleUser}), ErrUserAlreadyExist)

	got, err := r.UserExist(ctx, "alice", "password-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = r.UserExist(ctx, "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = r.UserExist(ctx, "bob", "password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	created, err := r.UpsertAdmin(ctx, "alice", "", pw)
	require.NoError(t, err)
	assert.False(t, created)
	got, err = r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	created, err = r.UpsertAdmin(ctx, "root", "root@example.com", pw)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRotateRefreshToken(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := &models.User{Username: "carol", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, r.CreateUserIfNotExists(ctx, u))

	old := &models.RefreshToken{Token: tokens.Sha256Hex("old"), UserID: u.ID, JTI: "jti-old", ExpiresAt: time.Now().Add(time.Hour).Unix()}
	require.NoError(t, r.AddRefreshToken(ctx, old))

	next := &models.RefreshToken{Token: tokens.Sha256Hex("new"), UserID: u.ID, JTI: "jti-new", ExpiresAt: time.Now().Add(time.Hour).Unix()}
	require.NoError(t, r.RotateRefreshToken(ctx, "jti-old", next))

	again := &models.RefreshToken{Token: tokens.Sha256Hex("again"), UserID: u.ID, JTI: "jti-again", ExpiresAt: time.Now().Add(time.Hour).Unix()}
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "jti-old", again), ErrTokenRevoked)

	require.NoError(t, r.RevokeRefreshToken(ctx, "new"))
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "jti-new", again), ErrTokenRevoked)
}
