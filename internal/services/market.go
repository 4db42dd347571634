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
	"github.com/marchelocal/server/internal/search"
	"github.com/marchelocal/server/pkg/geo"
)

// MarketStore reads and writes markets. It is the search.Repository used by
// the search engine.
type MarketStore struct {
	db *database.DB
}

var _ search.Repository = (*MarketStore)(nil)

func NewMarketStore(db *database.DB) *MarketStore {
	return &MarketStore{db: db}
}

func (s *MarketStore) withOpenings(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Market{}).
		Preload("Openings", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

// MarketsInBox returns located markets inside box, edges included
func (s *MarketStore) MarketsInBox(ctx context.Context, box geo.Box) ([]models.Market, error) {
	var markets []models.Market
	err := s.withOpenings(ctx).
		Where("lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?",
			box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// MarketsMatching returns up to limit markets matching q and open on day, ordered by name
func (s *MarketStore) MarketsMatching(ctx context.Context, q search.TextQuery, day *models.Weekday, limit int) ([]models.Market, error) {
	query := s.withOpenings(ctx)

	switch {
	case q.Fragment != "":
		like := "%" + escapeLike(q.Fragment) + "%"
		query = query.Where("name ILIKE ? OR town ILIKE ? OR zip LIKE ?",
			like, like, escapeLike(q.Fragment)+"%")
	case q.Town != "" && q.Zip != "":
		query = query.Where("town ILIKE ? OR zip LIKE ?",
			"%"+escapeLike(q.Town)+"%", escapeLike(q.Zip)+"%")
	case q.Town != "":
		query = query.Where("town ILIKE ?", "%"+escapeLike(q.Town)+"%")
	case q.Zip != "":
		query = query.Where("zip LIKE ?", escapeLike(q.Zip)+"%")
	}
	if day != nil {
		query = query.Where("EXISTS (SELECT 1 FROM market_openings o WHERE o.market_id = markets.id AND o.day = ?)", *day)
	}

	var markets []models.Market
	err := query.Order("lower(name) ASC, id ASC").Limit(limit).Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// escapeLike neutralizes LIKE wildcards typed by users
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetByID retrieves a market with its openings
func (s *MarketStore) GetByID(ctx context.Context, id uint) (*models.Market, error) {
	var market models.Market
	if err := s.withOpenings(ctx).First(&market, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &market, nil
}

// Exists reports whether a market with id exists
func (s *MarketStore) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Market{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListVendors returns the vendors attending a market
func (s *MarketStore) ListVendors(ctx context.Context, marketID uint) ([]models.Vendor, error) {
	if ok, err := s.Exists(ctx, marketID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}

	var vendors []models.Vendor
	err := s.db.WithContext(ctx).
		Joins("JOIN market_vendors mv ON mv.vendor_id = vendors.id").
		Where("mv.market_id = ?", marketID).
		Order("vendors.business_name ASC").
		Find(&vendors).Error
	if err != nil {
		return nil, err
	}
	return vendors, nil
}

// UpsertMarketRequest is one market from an import feed. ExternalRef keys the upsert.
type UpsertMarketRequest struct {
	ExternalRef string           `json:"externalRef" validate:"required,max=100"`
	Name        string           `json:"name" validate:"required,max=255"`
	Street      string           `json:"street" validate:"max=255"`
	Town        string           `json:"town" validate:"required,max=100"`
	Zip         string           `json:"zip" validate:"required,numeric,len=5"`
	Lat         *float64         `json:"lat" validate:"omitempty,latitude"`
	Lng         *float64         `json:"lng" validate:"omitempty,longitude"`
	Description *string          `json:"description"`
	Openings    []OpeningRequest `json:"openings" validate:"dive"`
}

type OpeningRequest struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

func (r OpeningRequest) toModel(marketID uint) (models.Opening, error) {
	day, err := models.ParseWeekday(r.Day)
	if err != nil {
		return models.Opening{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !models.ValidClock(r.StartTime) || !models.ValidClock(r.EndTime) || r.StartTime >= r.EndTime {
		return models.Opening{}, fmt.Errorf("%w: opening %s %s-%s", ErrInvalidInput, r.Day, r.StartTime, r.EndTime)
	}
	return models.Opening{MarketID: marketID, Day: day, StartTime: r.StartTime, EndTime: r.EndTime}, nil
}

// UpsertResult summarizes an import batch.
type UpsertResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Upsert creates or updates markets by external reference and replaces their openings
func (s *MarketStore) Upsert(ctx context.Context, reqs []UpsertMarketRequest) (*UpsertResult, error) {
	result := &UpsertResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, req := range reqs {
			if (req.Lat == nil) != (req.Lng == nil) {
				return fmt.Errorf("%w: %s: lat and lng must be given together", ErrInvalidInput, req.ExternalRef)
			}

			var market models.Market
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("external_ref = ?", req.ExternalRef).First(&market).Error
			created := false
			switch {
			case err == nil:
			case errors.Is(err, gorm.ErrRecordNotFound):
				created = true
				market.ExternalRef = &req.ExternalRef
			default:
				return err
			}

			market.Name = req.Name
			market.Street = req.Street
			market.Town = req.Town
			market.Zip = req.Zip
			market.Lat, market.Lng = req.Lat, req.Lng
			market.Description = req.Description

			if err := tx.Omit("Openings").Save(&market).Error; err != nil {
				return err
			}

			if err := tx.Where("market_id = ?", market.ID).Delete(&models.Opening{}).Error; err != nil {
				return err
			}
			for _, o := range req.Openings {
				opening, err := o.toModel(market.ID)
				if err != nil {
					return fmt.Errorf("%s: %w", req.ExternalRef, err)
				}
				if err := tx.Create(&opening).Error; err != nil {
					return err
				}
			}

			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
