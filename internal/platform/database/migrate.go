package database

import (
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Project{}, &model.Task{}, &model.AccountEvent{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
