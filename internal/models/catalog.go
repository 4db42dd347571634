package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category represents product categories
// DB: categories
type Category struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"column:name;size:100;not null;uniqueIndex:categories_name_key" json:"name"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:99" json:"displayOrder"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

func (Category) TableName() string {
	return "categories"
}

// Product is an item sold by a vendor, with its base price and stock
// DB: products
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	VendorID    uint            `gorm:"column:vendor_id;not null;index:idx_product_vendor" json:"vendorId"`
	CategoryID  *uint           `gorm:"column:category_id;index:idx_product_category" json:"categoryId,omitempty"`
	Name        string          `gorm:"column:name;size:255;not null" json:"name"`
	Description *string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Unit        string          `gorm:"column:unit;size:20;not null;default:'piece'" json:"unit"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;not null" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index" json:"-"`

	// Relations
	Category  *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Overrides []MarketProduct `gorm:"foreignKey:ProductID" json:"overrides,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// MarketProduct overrides a product's price and stock at one market
// DB: market_products
type MarketProduct struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	ProductID   uint             `gorm:"column:product_id;not null;uniqueIndex:market_products_product_market_key,priority:1" json:"productId"`
	MarketID    uint             `gorm:"column:market_id;not null;uniqueIndex:market_products_product_market_key,priority:2;index:idx_market_product_market" json:"marketId"`
	Price       *decimal.Decimal `gorm:"column:price;type:numeric(10,2)" json:"price,omitempty"`
	Stock       *int             `gorm:"column:stock" json:"stock,omitempty"`
	Unavailable bool             `gorm:"column:unavailable;not null;default:false" json:"unavailable"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (MarketProduct) TableName() string {
	return "market_products"
}
