package models

import (
	"time"
)

// GeocodeCache stores geocoder answers keyed by normalized address
type GeocodeCache struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Address   string    `gorm:"size:500;not null;uniqueIndex" json:"address"`
	Label     string    `gorm:"size:500;not null;default:''" json:"label"`
	Lat       float64   `gorm:"type:decimal(9,6);not null" json:"lat"`
	Lng       float64   `gorm:"type:decimal(9,6);not null" json:"lng"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
}

func (GeocodeCache) TableName() string {
	return "geocode_cache"
}
