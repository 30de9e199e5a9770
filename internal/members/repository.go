package members

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// Repository reads and writes loyalty members.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.Member, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindByPhone(ctx context.Context, phone string) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) error
	SetPoints(ctx context.Context, id uuid.UUID, points int) error
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error
	ReplaceMembers(ctx context.Context, members []models.Member) error
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

func (r *repository) List(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&members).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list members")
	}
	return members, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load member")
	}
	return &member, nil
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).First(&member, "phone = ?", strings.TrimSpace(phone)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load member")
	}
	return &member, nil
}

func (r *repository) Create(ctx context.Context, member *models.Member) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create member")
	}
	return nil
}

func (r *repository) SetPoints(ctx context.Context, id uuid.UUID, points int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Update("points", points)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to update points")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	return nil
}

func (r *repository) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Update("frozen", frozen)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to update member")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	return nil
}

// ReplaceMembers drops local members and installs the incoming set. Used by
// the sync pull path, which treats the remote snapshot as authoritative.
func (r *repository) ReplaceMembers(ctx context.Context, members []models.Member) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Member{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear members")
		}
		if len(members) == 0 {
			return nil
		}
		if err := tx.Create(&members).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to install members")
		}
		return nil
	})
}
