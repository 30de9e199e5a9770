package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/pagination"
)

// Repository appends to and reads the immutable transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, transaction *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, params pagination.Params) ([]models.Transaction, string, error)
	ListAll(ctx context.Context) ([]models.Transaction, error)
	ReplaceTransactions(ctx context.Context, transactions []models.Transaction) error
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

func (r *repository) Append(ctx context.Context, transaction *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to append transaction")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&transaction, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load transaction")
	}
	return &transaction, nil
}

// List pages the log newest-first with a created_at/id cursor.
func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Transaction, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list transactions")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Transaction, error) {
	var rows []models.Transaction
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list transactions")
	}
	return rows, nil
}

// ReplaceTransactions installs the incoming log wholesale for the sync pull
// path.
func (r *repository) ReplaceTransactions(ctx context.Context, transactions []models.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []any{&models.PaymentDetail{}, &models.TransactionItem{}, &models.Transaction{}} {
			if err := tx.Where("1 = 1").Delete(table).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear transactions")
			}
		}
		if len(transactions) == 0 {
			return nil
		}
		if err := tx.Create(&transactions).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to install transactions")
		}
		return nil
	})
}
