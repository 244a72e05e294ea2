package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cmlre/marine-platform/internal/auth"
	sessionDatamodel "github.com/cmlre/marine-platform/internal/core/datamodel/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotRepository stores the session slot in the session_slots table.
type SlotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) auth.SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, error) {
	var slot sessionDatamodel.SessionSlot
	err := r.db.WithContext(ctx).Where("slot_key = ?", key).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", auth.ErrSlotNotFound
		}
		return "", err
	}
	return slot.Value, nil
}

func (r *SlotRepository) Put(ctx context.Context, key, value string) error {
	slot := sessionDatamodel.SessionSlot{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&slot).Error
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("slot_key = ?", key).Delete(&sessionDatamodel.SessionSlot{}).Error
}
