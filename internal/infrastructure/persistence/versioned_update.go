package persistence

import (
	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"gorm.io/gorm"
)

// updateVersioned writes every column of model over the row with the given
// id, provided the row is still at storedVersion. The model must already
// carry storedVersion+1.
func updateVersioned(tx *gorm.DB, model any, id uuid.UUID, storedVersion int) error {
	result := tx.Model(model).
		Where("id = ? AND version = ?", id, storedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Session(&gorm.Session{NewDB: true}).
		Model(model).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}
