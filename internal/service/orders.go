package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/report"
)

type OrderLister interface {
	ListOrders(ctx context.Context, f report.Filter) ([]report.OrderRow, int64, error)
}

type OrderService struct {
	Repo   *repo.GormRepo
	Report OrderLister
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, paid *bool, offset, limit int) ([]report.OrderRow, int64, error) {
	if s.Report == nil {
		return nil, 0, fmt.Errorf("order report: %w", ErrNotConfigured)
	}
	return s.Report.ListOrders(ctx, report.Filter{Paid: paid, Limit: limit, Offset: offset})
}
