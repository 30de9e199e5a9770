// Package counters hands out monotonically increasing sequence numbers
// backed by the counters table. Callers run Next inside the transaction that
// consumes the number so a rolled-back settlement or ticket never burns a
// visible gap.
package counters

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// Next increments and returns the named counter within tx. The first call for
// an unknown name returns 1.
func Next(tx *gorm.DB, name string) (int64, error) {
	res := tx.Model(&models.Counter{}).
		Where("name = ?", name).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to advance counter")
	}
	if res.RowsAffected == 0 {
		counter := models.Counter{Name: name, Value: 1}
		if err := tx.Create(&counter).Error; err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to seed counter")
		}
		return 1, nil
	}

	var counter models.Counter
	if err := tx.First(&counter, "name = ?", name).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to read counter")
	}
	return counter.Value, nil
}

// Peek returns the current value without advancing it. Unknown names read as
// zero.
func Peek(tx *gorm.DB, name string) (int64, error) {
	var counter models.Counter
	err := tx.First(&counter, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to read counter")
	}
	return counter.Value, nil
}
