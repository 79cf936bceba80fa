package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create user failed: %w", ErrDuplicate)
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by username failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

// FindExact returns the user only when every identity field, including the
// password hash, still equals the given snapshot byte for byte. Compared in
// Go: mysql's default collations fold case and ignore trailing spaces.
func (r *UserRepository) FindExact(snapshot model.User) (*model.User, error) {
	user, err := r.GetByID(snapshot.ID)
	if err != nil {
		return nil, err
	}
	if user == nil || !sameIdentity(*user, snapshot) {
		return nil, nil
	}
	return user, nil
}

func sameIdentity(a, b model.User) bool {
	return a.ID == b.ID &&
		a.Username == b.Username &&
		a.Email == b.Email &&
		a.Name == b.Name &&
		a.Avatar == b.Avatar &&
		a.PasswordHash == b.PasswordHash
}

// Update writes every column of user, zero values included.
func (r *UserRepository) Update(user *model.User) error {
	err := r.db.Model(user).Select("username", "email", "name", "avatar", "password_hash").Updates(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("update user failed: %w", ErrDuplicate)
		}
		return fmt.Errorf("update user failed: %w", err)
	}
	return nil
}

// DeleteWithTasks removes the user and every task they authored.
func (r *UserRepository) DeleteWithTasks(id uint) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete user failed: %w", err)
	}
	return deleted, nil
}
