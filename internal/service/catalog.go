package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const maxNameLen = 200

var maxPrice = decimal.RequireFromString("99999999.99")

type ProductIndex interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

type ImageStore interface {
	SaveProductImage(r io.Reader) (string, error)
	Remove(name string) error
}

type CatalogService struct {
	Repo      *repo.GormRepo
	Index     ProductIndex // nil disables search indexing
	Media     ImageStore
	Publisher mykafka.Publisher
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, offset, limit)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("name is longer than %d characters: %w", maxNameLen, ErrValidation)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}
	if price.GreaterThan(maxPrice) {
		return fmt.Errorf("price is too large: %w", ErrValidation)
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price.Round(2),
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.changed(ctx, *p, "created")
	return p, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, id uint, req transport.PatchProductRequest) (*models.Product, error) {
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		price := req.Price.Round(2)
		req.Price = &price
	}

	p, err := s.Repo.PatchProduct(ctx, id, req)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	s.changed(ctx, *p, "updated")
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete", "product_id", id)

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		switch {
		case errors.Is(err, repo.ErrProductInUse):
			return fmt.Errorf("product %d is referenced by orders: %w", id, ErrConflict)
		case repo.IsNotFound(err):
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return err
	}

	if s.Media != nil {
		if err := s.Media.Remove(p.Image); err != nil {
			l.Warn("remove_image_error", "image", p.Image, "error", err)
		}
	}
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			l.Warn("unindex_product_error", "error", err)
		}
	}
	publish(ctx, s.Publisher, strconv.FormatUint(uint64(id), 10), mykafka.EventProductChanged, map[string]any{
		"product_id": id,
		"change":     "deleted",
	})
	return nil
}

// SetImage replaces the product picture with a resized copy of the upload.
func (s *CatalogService) SetImage(ctx context.Context, id uint, r io.Reader) (*models.Product, error) {
	if s.Media == nil {
		return nil, fmt.Errorf("media storage: %w", ErrNotConfigured)
	}
	old, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := s.Media.SaveProductImage(r)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}

	p, err := s.Repo.SetProductImage(ctx, id, name)
	if err != nil {
		_ = s.Media.Remove(name)
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if old.Image != "" && old.Image != name {
		if err := s.Media.Remove(old.Image); err != nil {
			logging.FromContext(ctx).Warn("remove_image_error", "svc", "catalog.image", "image", old.Image, "error", err)
		}
	}
	s.changed(ctx, *p, "updated")
	return p, nil
}

// Search uses the index when there is one and the database otherwise. An
// index failure degrades to the database query.
func (s *CatalogService) Search(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")

	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("query is required: %w", ErrValidation)
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, query, offset, limit)
		if err == nil {
			byID, err := s.Repo.GetProductsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			out := make([]models.Product, 0, len(ids))
			for _, id := range ids {
				if p, ok := byID[id]; ok {
					out = append(out, p)
				}
			}
			return total, out, nil
		}
		l.Warn("search_index_error", "reason", "falling back to database", "error", err)
	}
	return s.Repo.SearchProducts(ctx, query, offset, limit)
}

func (s *CatalogService) changed(ctx context.Context, p models.Product, change string) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("index_product_error", "svc", "catalog", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Publisher, strconv.FormatUint(uint64(p.ID), 10), mykafka.EventProductChanged, map[string]any{
		"product_id": p.ID,
		"change":     change,
	})
}
