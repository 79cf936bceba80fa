package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(project *model.Project) error {
	if err := r.db.Create(project).Error; err != nil {
		return fmt.Errorf("create project failed: %w", err)
	}
	return nil
}

func (r *ProjectRepository) List() ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.Preload("Tasks", orderByID).Preload("Tasks.User").Order("id ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects failed: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) GetByID(id uint) (*model.Project, error) {
	var project model.Project
	if err := r.db.Preload("Tasks", orderByID).Preload("Tasks.User").First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query project by id failed: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepository) Exists(id uint) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count project failed: %w", err)
	}
	return count > 0, nil
}

func (r *ProjectRepository) Rename(id uint, name string) (*model.Project, error) {
	var project model.Project
	if err := r.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query project by id failed: %w", err)
	}
	project.Name = name
	if err := r.db.Save(&project).Error; err != nil {
		return nil, fmt.Errorf("rename project failed: %w", err)
	}
	return &project, nil
}

// DeleteWithTasks removes the project and its tasks in one transaction.
func (r *ProjectRepository) DeleteWithTasks(id uint) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Project{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete project failed: %w", err)
	}
	return deleted, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
