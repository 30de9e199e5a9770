package kitchen

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// Repository persists kiosk tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.PendingOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PendingOrder, error)
	FindByTicketNumber(ctx context.Context, ticketNumber int64) (*models.PendingOrder, error)
	Create(ctx context.Context, order *models.PendingOrder) error
	UpdateStatuses(ctx context.Context, order *models.PendingOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByTicketNumber(ctx context.Context, ticketNumber int64) error
	ReplaceOrders(ctx context.Context, orders []models.PendingOrder) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.PendingOrder, error) {
	var orders []models.PendingOrder
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list pending orders")
	}
	return orders, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PendingOrder, error) {
	var order models.PendingOrder
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load pending order")
	}
	return &order, nil
}

func (r *repository) FindByTicketNumber(ctx context.Context, ticketNumber int64) (*models.PendingOrder, error) {
	var order models.PendingOrder
	err := r.db.WithContext(ctx).First(&order, "ticket_number = ?", ticketNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load pending order")
	}
	return &order, nil
}

func (r *repository) Create(ctx context.Context, order *models.PendingOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create pending order")
	}
	return nil
}

func (r *repository) UpdateStatuses(ctx context.Context, order *models.PendingOrder) error {
	res := r.db.WithContext(ctx).
		Model(&models.PendingOrder{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":           order.Status,
			"station_statuses": order.StationStatuses,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to update pending order")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pending order not found")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.PendingOrder{}, "id = ?", id)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to delete pending order")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pending order not found")
	}
	return nil
}

func (r *repository) DeleteByTicketNumber(ctx context.Context, ticketNumber int64) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.PendingOrder{}, "ticket_number = ?", ticketNumber).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete pending order")
	}
	return nil
}

// ReplaceOrders installs the incoming ticket set wholesale for the sync pull
// path.
func (r *repository) ReplaceOrders(ctx context.Context, orders []models.PendingOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PendingOrder{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear pending orders")
		}
		if len(orders) == 0 {
			return nil
		}
		if err := tx.Create(&orders).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to install pending orders")
		}
		return nil
	})
}
