package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// Repository exposes catalog persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListProducts(ctx context.Context) ([]models.Product, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	DecrementStockFloored(ctx context.Context, id uuid.UUID, qty int) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	FindCoupon(ctx context.Context, code string) (*models.Coupon, error)
	ListTaxRates(ctx context.Context) ([]models.TaxRate, error)
	ReplaceCatalog(ctx context.Context, products []models.Product, coupons []models.Coupon, taxRates []models.TaxRate) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("AddonGroups", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("AddonGroups.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("name asc").
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return products, nil
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("AddonGroups", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("AddonGroups.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding product")
	}
	return &product, nil
}

func (r *repository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", stock)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "updating stock")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// DecrementStockFloored subtracts qty from stock without going below zero.
// A concurrent sale in another session may already have drained the pool.
func (r *repository) DecrementStockFloored(ctx context.Context, id uuid.UUID, qty int) error {
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND track_inventory = ?", id, true).
		Update("stock", gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", qty, qty)).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
	}
	return nil
}

func (r *repository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_available", available)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "updating availability")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (r *repository) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.WithContext(ctx).Order("code asc").Find(&coupons).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing coupons")
	}
	return coupons, nil
}

func (r *repository) FindCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding coupon")
	}
	return &coupon, nil
}

func (r *repository) ListTaxRates(ctx context.Context) ([]models.TaxRate, error) {
	var rates []models.TaxRate
	if err := r.db.WithContext(ctx).Order("id asc").Find(&rates).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing tax rates")
	}
	return rates, nil
}

// ReplaceCatalog swaps the whole catalog for a pulled snapshot. Remote state
// overwrites local unsynced edits; that is the sync contract, not a merge.
// Delete and insert run in one transaction so a bad snapshot cannot leave
// the terminal with an emptied catalog.
func (r *repository) ReplaceCatalog(ctx context.Context, products []models.Product, coupons []models.Coupon, taxRates []models.TaxRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{"DELETE FROM addon_options", "DELETE FROM addon_groups", "DELETE FROM products", "DELETE FROM coupons", "DELETE FROM tax_rates"} {
			if err := tx.Exec(stmt).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing catalog")
			}
		}
		if len(products) > 0 {
			if err := tx.Create(&products).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing products")
			}
		}
		if len(coupons) > 0 {
			if err := tx.Create(&coupons).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing coupons")
			}
		}
		if len(taxRates) > 0 {
			if err := tx.Create(&taxRates).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing tax rates")
			}
		}
		return nil
	})
}
