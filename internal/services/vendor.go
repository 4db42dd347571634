package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marchelocal/server/internal/database"
	"github.com/marchelocal/server/internal/models"
)

type VendorService struct {
	db *database.DB
}

func NewVendorService(db *database.DB) *VendorService {
	return &VendorService{db: db}
}

type VendorRequest struct {
	BusinessName string  `json:"businessName" validate:"required,max=255"`
	Description  *string `json:"description"`
	Phone        *string `json:"phone" validate:"omitempty,max=30"`
	Siret        *string `json:"siret" validate:"omitempty,numeric,len=14"`
}

// VendorProfile is a vendor with the markets it attends.
type VendorProfile struct {
	models.Vendor
	MarketIDs []uint `json:"marketIds"`
}

// ByUser returns the vendor profile of a user
func (s *VendorService) ByUser(ctx context.Context, userID uint) (*models.Vendor, error) {
	var vendor models.Vendor
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotVendor
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// Profile returns the vendor of a user with its attended market ids
func (s *VendorService) Profile(ctx context.Context, userID uint) (*VendorProfile, error) {
	vendor, err := s.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := []uint{}
	err = s.db.WithContext(ctx).Model(&models.MarketVendor{}).
		Where("vendor_id = ?", vendor.ID).
		Order("market_id ASC").
		Pluck("market_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return &VendorProfile{Vendor: *vendor, MarketIDs: ids}, nil
}

// Upsert creates or updates the vendor profile of a user and promotes a
// consumer account to the vendor role.
func (s *VendorService) Upsert(ctx context.Context, userID uint, req *VendorRequest) (*models.Vendor, error) {
	var vendor models.Vendor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&vendor).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vendor = models.Vendor{UserID: userID}
		case err != nil:
			return err
		}

		vendor.BusinessName = strings.TrimSpace(req.BusinessName)
		vendor.Description = req.Description
		vendor.Phone = req.Phone
		vendor.Siret = req.Siret

		if err := tx.Save(&vendor).Error; err != nil {
			return err
		}

		// admins keep their role
		return tx.Model(&models.User{}).
			Where("id = ? AND role = ?", userID, models.RoleConsumer).
			Update("role", models.RoleVendor).Error
	})
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// Attend records that the vendor of userID attends marketID. Attending twice is a no-op.
func (s *VendorService) Attend(ctx context.Context, userID, marketID uint) error {
	vendor, err := s.ByUser(ctx, userID)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Market{}).Where("id = ?", marketID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: market %d", ErrNotFound, marketID)
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MarketVendor{VendorID: vendor.ID, MarketID: marketID}).Error
}

// Leave removes the attendance and the vendor's overrides at that market
func (s *VendorService) Leave(ctx context.Context, userID, marketID uint) error {
	vendor, err := s.ByUser(ctx, userID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("vendor_id = ? AND market_id = ?", vendor.ID, marketID).Delete(&models.MarketVendor{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("market_id = ? AND product_id IN (?)", marketID,
			tx.Model(&models.Product{}).Select("id").Where("vendor_id = ?", vendor.ID)).
			Delete(&models.MarketProduct{}).Error
	})
}
