package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(task *model.Task) error {
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("create task failed: %w", err)
	}
	return nil
}

func (r *TaskRepository) List() ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.Preload("User").Preload("Project").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetByID(id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.Preload("User").Preload("Project").First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query task by id failed: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) Rename(id uint, name string) (*model.Task, error) {
	var task model.Task
	if err := r.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query task by id failed: %w", err)
	}
	task.Name = name
	if err := r.db.Save(&task).Error; err != nil {
		return nil, fmt.Errorf("rename task failed: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) Delete(id uint) (bool, error) {
	result := r.db.Delete(&model.Task{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("delete task failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
