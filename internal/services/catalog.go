package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marchelocal/server/internal/database"
	"github.com/marchelocal/server/internal/models"
)

// Offer is a product as sold at one market, overrides applied.
type Offer struct {
	ProductID   uint            `json:"productId"`
	VendorID    uint            `json:"vendorId"`
	VendorName  string          `json:"vendorName,omitempty"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Unit        string          `json:"unit"`
	CategoryID  *uint           `json:"categoryId,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Available   bool            `json:"available"`
	Overridden  bool            `json:"overridden"`
}

// ResolveOffer applies a per-market override to a product. A nil override
// yields the base price and stock.
func ResolveOffer(p models.Product, o *models.MarketProduct) Offer {
	offer := Offer{
		ProductID:   p.ID,
		VendorID:    p.VendorID,
		Name:        p.Name,
		Description: p.Description,
		Unit:        p.Unit,
		CategoryID:  p.CategoryID,
		Price:       p.Price,
		Stock:       p.Stock,
	}

	unavailable := false
	if o != nil {
		offer.Overridden = true
		if o.Price != nil {
			offer.Price = *o.Price
		}
		if o.Stock != nil {
			offer.Stock = *o.Stock
		}
		unavailable = o.Unavailable
	}

	offer.Available = p.IsActive && !unavailable && offer.Stock > 0
	return offer
}

type CatalogService struct {
	db *database.DB
}

func NewCatalogService(db *database.DB) *CatalogService {
	return &CatalogService{db: db}
}

type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description *string         `json:"description"`
	Unit        string          `json:"unit" validate:"omitempty,oneof=piece kg g l botte barquette douzaine"`
	CategoryID  *uint           `json:"categoryId"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	IsActive    *bool           `json:"isActive"`
}

func (r *ProductRequest) check() error {
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}

type OverrideRequest struct {
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Unavailable bool             `json:"unavailable"`
}

// ListProducts returns a vendor's products with their overrides
func (s *CatalogService) ListProducts(ctx context.Context, vendorID uint) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Overrides").
		Where("vendor_id = ?", vendorID).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns a product owned by vendorID
func (s *CatalogService) GetProduct(ctx context.Context, vendorID, productID uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Category").Preload("Overrides").First(&product, productID).Error
	if err != nil {
		return nil, notFound(err)
	}
	if product.VendorID != vendorID {
		// other vendors' products are indistinguishable from missing ones
		return nil, ErrNotFound
	}
	return &product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, vendorID uint, req *ProductRequest) (*models.Product, error) {
	if err := req.check(); err != nil {
		return nil, err
	}

	product := models.Product{
		VendorID:    vendorID,
		CategoryID:  req.CategoryID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Unit:        req.Unit,
		Price:       req.Price,
		Stock:       req.Stock,
		IsActive:    true,
	}
	if product.Unit == "" {
		product.Unit = "piece"
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, vendorID, productID uint, req *ProductRequest) (*models.Product, error) {
	if err := req.check(); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(req.Name)
	product.Description = req.Description
	product.CategoryID = req.CategoryID
	product.Price = req.Price
	product.Stock = req.Stock
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	err = s.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct soft deletes a product and drops its overrides
func (s *CatalogService) DeleteProduct(ctx context.Context, vendorID, productID uint) error {
	if _, err := s.GetProduct(ctx, vendorID, productID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.MarketProduct{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, productID).Error
	})
}

// SetOverride upserts the price/stock override of a product at a market the vendor attends
func (s *CatalogService) SetOverride(ctx context.Context, vendorID, productID, marketID uint, req *OverrideRequest) (*models.MarketProduct, error) {
	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if _, err := s.GetProduct(ctx, vendorID, productID); err != nil {
		return nil, err
	}
	if err := s.requireAttendance(ctx, vendorID, marketID); err != nil {
		return nil, err
	}

	override := models.MarketProduct{
		ProductID:   productID,
		MarketID:    marketID,
		Price:       req.Price,
		Stock:       req.Stock,
		Unavailable: req.Unavailable,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "market_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "stock", "unavailable", "updated_at"}),
	}).Create(&override).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (s *CatalogService) DeleteOverride(ctx context.Context, vendorID, productID, marketID uint) error {
	if _, err := s.GetProduct(ctx, vendorID, productID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("product_id = ? AND market_id = ?", productID, marketID).
		Delete(&models.MarketProduct{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CatalogService) requireAttendance(ctx context.Context, vendorID, marketID uint) error {
	var link models.MarketVendor
	err := s.db.WithContext(ctx).
		Where("vendor_id = ? AND market_id = ?", vendorID, marketID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: vendor does not attend market %d", ErrForbidden, marketID)
	}
	return err
}

// MarketCatalog lists the effective offers of every vendor attending a market,
// ordered by vendor name then product name. Inactive products are left out.
func (s *CatalogService) MarketCatalog(ctx context.Context, marketID uint) ([]Offer, error) {
	var vendors []models.Vendor
	err := s.db.WithContext(ctx).
		Joins("JOIN market_vendors mv ON mv.vendor_id = vendors.id").
		Where("mv.market_id = ?", marketID).
		Find(&vendors).Error
	if err != nil {
		return nil, err
	}
	if len(vendors) == 0 {
		return []Offer{}, nil
	}

	vendorIDs := make([]uint, len(vendors))
	names := make(map[uint]string, len(vendors))
	for i, v := range vendors {
		vendorIDs[i] = v.ID
		names[v.ID] = v.BusinessName
	}

	var products []models.Product
	err = s.db.WithContext(ctx).
		Preload("Overrides", "market_id = ?", marketID).
		Where("vendor_id IN ? AND is_active = ?", vendorIDs, true).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	return buildCatalog(products, names), nil
}

func buildCatalog(products []models.Product, vendorNames map[uint]string) []Offer {
	offers := make([]Offer, 0, len(products))
	for _, p := range products {
		var override *models.MarketProduct
		if len(p.Overrides) > 0 {
			override = &p.Overrides[0]
		}
		offer := ResolveOffer(p, override)
		offer.VendorName = vendorNames[p.VendorID]
		offers = append(offers, offer)
	}

	sort.SliceStable(offers, func(i, j int) bool {
		vi, vj := strings.ToLower(offers[i].VendorName), strings.ToLower(offers[j].VendorName)
		if vi != vj {
			return vi < vj
		}
		return strings.ToLower(offers[i].Name) < strings.ToLower(offers[j].Name)
	})
	return offers
}
