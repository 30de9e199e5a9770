package sessions

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

const snapshotRowID = 1

// SnapshotStore persists the held-cart list as one JSON document.
type SnapshotStore interface {
	Save(ctx context.Context, payload string) error
	Load(ctx context.Context) (string, bool, error)
}

type snapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) SnapshotStore {
	return &snapshotStore{db: db}
}

func (s *snapshotStore) Save(ctx context.Context, payload string) error {
	row := models.SessionSnapshot{ID: snapshotRowID, Payload: payload}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to persist session snapshot")
	}
	return nil
}

func (s *snapshotStore) Load(ctx context.Context) (string, bool, error) {
	var row models.SessionSnapshot
	err := s.db.WithContext(ctx).First(&row, "id = ?", snapshotRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load session snapshot")
	}
	return row.Payload, true, nil
}
