package repository

import (
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

type AccountEventRepository struct {
	db *gorm.DB
}

func NewAccountEventRepository(db *gorm.DB) *AccountEventRepository {
	return &AccountEventRepository{db: db}
}

func (r *AccountEventRepository) Create(event *model.AccountEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("create account event failed: %w", err)
	}
	return nil
}

func (r *AccountEventRepository) ListByUserID(userID uint) ([]model.AccountEvent, error) {
	var events []model.AccountEvent
	if err := r.db.Where("user_id = ?", userID).Order("occurred_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list account events failed: %w", err)
	}
	return events, nil
}
