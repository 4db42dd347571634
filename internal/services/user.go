package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/marchelocal/server/internal/database"
	"github.com/marchelocal/server/internal/models"
)

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

// GetByID retrieves a user by ID with the vendor profile
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Vendor").First(&user, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Update updates user information
func (s *UserService) Update(ctx context.Context, id uint, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = req.Name
		if err := s.db.WithContext(ctx).Model(user).Update("name", *req.Name).Error; err != nil {
			return nil, err
		}
	}

	return user, nil
}

// Delete deactivates the account and removes its vendor presence
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var vendor models.Vendor
		if err := tx.Where("user_id = ?", id).Limit(1).Find(&vendor).Error; err != nil {
			return err
		}
		if vendor.ID == 0 {
			return nil
		}
		if err := tx.Where("vendor_id = ?", vendor.ID).Delete(&models.MarketVendor{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vendor_id = ?", vendor.ID).Delete(&models.BankDetails{}).Error; err != nil {
			return err
		}
		return tx.Delete(&vendor).Error
	})
}
