package models

import (
	"time"

	"gorm.io/gorm"
)

// Vendor is the seller profile attached to a user
// DB: vendors
type Vendor struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"column:user_id;not null;uniqueIndex:vendors_user_id_key" json:"userId"`
	BusinessName string         `gorm:"column:business_name;size:255;not null" json:"businessName"`
	Description  *string        `gorm:"column:description;type:text" json:"description,omitempty"`
	Phone        *string        `gorm:"column:phone;size:30" json:"phone,omitempty"`
	Siret        *string        `gorm:"column:siret;size:14" json:"siret,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Vendor) TableName() string {
	return "vendors"
}

// MarketVendor records that a vendor attends a market
// DB: market_vendors
type MarketVendor struct {
	VendorID  uint      `gorm:"column:vendor_id;primaryKey" json:"vendorId"`
	MarketID  uint      `gorm:"column:market_id;primaryKey;index:idx_market_vendor_market" json:"marketId"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

func (MarketVendor) TableName() string {
	return "market_vendors"
}

// BankDetails holds a vendor's payout account. IBAN and BIC are stored sealed.
// DB: bank_details
type BankDetails struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	VendorID    uint      `gorm:"column:vendor_id;not null;uniqueIndex:bank_details_vendor_id_key" json:"vendorId"`
	HolderName  string    `gorm:"column:holder_name;size:255;not null" json:"holderName"`
	IBANSealed  string    `gorm:"column:iban_sealed;type:text;not null" json:"-"`
	BICSealed   string    `gorm:"column:bic_sealed;type:text;not null" json:"-"`
	IBANLast4   string    `gorm:"column:iban_last4;size:4;not null" json:"-"`
	IBANCountry string    `gorm:"column:iban_country;size:4;not null" json:"-"`
	KeyVersion  int       `gorm:"column:key_version;not null;default:1" json:"-"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (BankDetails) TableName() string {
	return "bank_details"
}
