package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type CartLine struct {
	Product   models.Product
	Quantity  int
	LineTotal decimal.Decimal
}

type CartView struct {
	Lines []CartLine
	Total decimal.Decimal
	Count int
}

type CartService struct {
	Repo      *repo.GormRepo
	Publisher mykafka.Publisher
}

// Add puts one more unit of productID into cart. The cart is untouched when
// the product does not exist.
func (s *CartService) Add(ctx context.Context, sessionKey string, cart *domain.Cart, productID uint) (*models.Product, int, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add", "product_id", productID)

	p, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if repo.IsNotFound(err) {
			metrics.CartMutationsTotal.WithLabelValues("add", "not_found").Inc()
			return nil, 0, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		l.Error("add_cart_error", "error", err)
		return nil, 0, err
	}

	qty := cart.Add(p.ID)
	metrics.CartMutationsTotal.WithLabelValues("add", "ok").Inc()
	publish(ctx, s.Publisher, sessionKey, mykafka.EventCartItemAdded, map[string]any{
		"product_id": p.ID,
		"quantity":   qty,
	})
	return p, qty, nil
}

// View prices the cart with current product prices. Entries whose product
// has been deleted are dropped from the cart.
func (s *CartService) View(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	view := &CartView{Lines: []CartLine{}, Total: decimal.Zero}
	if cart.Empty() {
		return view, nil
	}

	products, err := s.Repo.GetProductsByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}

	for _, e := range cart.Entries() {
		p, ok := products[e.ProductID]
		if !ok {
			cart.Remove(e.ProductID)
			logging.FromContext(ctx).Info("cart_orphan_dropped", "svc", "cart.view", "product_id", e.ProductID)
			continue
		}
		line := CartLine{
			Product:   p,
			Quantity:  e.Quantity,
			LineTotal: domain.LineTotal(p.Price, e.Quantity),
		}
		view.Lines = append(view.Lines, line)
		view.Total = view.Total.Add(line.LineTotal)
		view.Count += e.Quantity
	}
	return view, nil
}

// Update applies a form action to an entry. A non-integer quantity leaves
// the cart as it was and returns ErrValidation.
func (s *CartService) Update(ctx context.Context, cart *domain.Cart, productID uint, action, rawQuantity string) (domain.UpdateResult, error) {
	res, err := cart.Update(productID, action, rawQuantity)
	if err != nil {
		metrics.CartMutationsTotal.WithLabelValues("update", "invalid").Inc()
		if errors.Is(err, domain.ErrInvalidQuantity) {
			return domain.UpdateNoop, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return domain.UpdateNoop, err
	}

	switch res {
	case domain.UpdateRemoved:
		metrics.CartMutationsTotal.WithLabelValues("remove", "ok").Inc()
	case domain.UpdateSet:
		metrics.CartMutationsTotal.WithLabelValues("update", "ok").Inc()
	default:
		metrics.CartMutationsTotal.WithLabelValues("update", "noop").Inc()
	}
	return res, nil
}
