package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SlotStore struct{ db *gorm.DB }

var _ store.SlotStore = (*SlotStore)(nil)

func NewSlotStore(db *gorm.DB) *SlotStore { return &SlotStore{db: db} }

func (s *SlotStore) List(ctx context.Context) ([]models.StaticSlot, error) {
	slots := []models.StaticSlot{}
	err := s.db.WithContext(ctx).Order("slot ASC").Find(&slots).Error
	return slots, err
}

func (s *SlotStore) Put(ctx context.Context, slot models.StaticSlot) (*models.StaticSlot, error) {
	var previous *models.StaticSlot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.StaticSlot
		err := tx.Where("slot = ?", slot.Slot).First(&existing).Error
		switch {
		case err == nil:
			previous = &existing
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"url", "public_id", "caption", "uploader", "updated_at"}),
		}).Create(&slot).Error
	})
	if err != nil {
		return nil, fmt.Errorf("put static slot %d: %w", slot.Slot, err)
	}
	return previous, nil
}
