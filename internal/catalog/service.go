package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// Service exposes the read-mostly catalog surface the order engine consumes,
// plus the manual stock-management operations done outside settlement.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Restock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) (*models.Product, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Product, error)
	LowStock(ctx context.Context) ([]models.Product, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	EnabledTaxRates(ctx context.Context) ([]models.TaxRate, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.repo.FindProductByID(ctx, id)
}

func (s *service) Restock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock delta must be non-zero")
	}
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stock := product.Stock + delta
	if stock < 0 {
		stock = 0
	}
	return s.SetStock(ctx, id, stock)
}

func (s *service) SetStock(ctx context.Context, id uuid.UUID, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	if err := s.repo.UpdateStock(ctx, id, stock); err != nil {
		return nil, err
	}
	return s.repo.FindProductByID(ctx, id)
}

func (s *service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Product, error) {
	if err := s.repo.SetAvailability(ctx, id, available); err != nil {
		return nil, err
	}
	return s.repo.FindProductByID(ctx, id)
}

func (s *service) LowStock(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]models.Product, 0)
	for _, product := range products {
		if product.TrackInventory && product.Stock <= product.MinStock {
			low = append(low, product)
		}
	}
	return low, nil
}

func (s *service) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	return s.repo.FindCoupon(ctx, code)
}

func (s *service) EnabledTaxRates(ctx context.Context) ([]models.TaxRate, error) {
	rates, err := s.repo.ListTaxRates(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]models.TaxRate, 0, len(rates))
	for _, rate := range rates {
		if rate.Enabled {
			enabled = append(enabled, rate)
		}
	}
	return enabled, nil
}
