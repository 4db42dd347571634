package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marchelocal/server/internal/database"
	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/internal/telemetry"
	"github.com/marchelocal/server/pkg/geo"
	"github.com/marchelocal/server/pkg/geocode"
)

// GeocodeCacheStore persists geocoder answers.
type GeocodeCacheStore interface {
	// Get returns the entry for key if it has not expired at now, or nil.
	Get(ctx context.Context, key string, now time.Time) (*models.GeocodeCache, error)
	Put(ctx context.Context, entry *models.GeocodeCache) error
}

// GeocodeService resolves addresses through a TTL cache in front of the geocoder.
type GeocodeService struct {
	cache    GeocodeCacheStore
	geocoder geocode.Geocoder
	ttl      time.Duration
	now      func() time.Time
}

func NewGeocodeService(cache GeocodeCacheStore, geocoder geocode.Geocoder, ttl time.Duration) *GeocodeService {
	return &GeocodeService{cache: cache, geocoder: geocoder, ttl: ttl, now: time.Now}
}

// CacheKey normalizes an address so trivially different spellings share an entry
func CacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Geocode returns the cached answer for address or asks the geocoder.
// geocode.ErrNotFound and geocode.ErrEmptyAddress pass through unchanged.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	log := logger.GetLogger("geocode")
	key := CacheKey(address)
	if key == "" {
		return nil, geocode.ErrEmptyAddress
	}

	ctx, span := telemetry.StartSpan(ctx, "geocode.lookup")
	defer span.End()

	now := s.now()
	entry, err := s.cache.Get(ctx, key, now)
	if err != nil {
		// a broken cache must not take geocoding down with it
		log.Warnw("Geocode cache lookup failed", "address", key, "error", err)
	}
	if entry != nil {
		span.SetAttributes(attribute.Bool("geocode.cache_hit", true))
		telemetry.RecordGeocode(ctx, "hit")
		return &geocode.Result{Label: entry.Label, Point: geo.Point{Lat: entry.Lat, Lng: entry.Lng}}, nil
	}

	res, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, geocode.ErrNotFound) {
			telemetry.RecordGeocode(ctx, "miss")
		} else {
			telemetry.RecordGeocode(ctx, "error")
		}
		return nil, err
	}
	telemetry.RecordGeocode(ctx, "miss")

	put := &models.GeocodeCache{
		Address:   key,
		Label:     res.Label,
		Lat:       res.Point.Lat,
		Lng:       res.Point.Lng,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.cache.Put(ctx, put); err != nil {
		log.Warnw("Geocode cache write failed", "address", key, "error", err)
	}

	return res, nil
}

// GormGeocodeCache is the geocode_cache table.
type GormGeocodeCache struct {
	db *database.DB
}

func NewGormGeocodeCache(db *database.DB) *GormGeocodeCache {
	return &GormGeocodeCache{db: db}
}

func (c *GormGeocodeCache) Get(ctx context.Context, key string, now time.Time) (*models.GeocodeCache, error) {
	var entry models.GeocodeCache
	err := c.db.WithContext(ctx).
		Where("address = ? AND expires_at > ?", key, now).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *GormGeocodeCache) Put(ctx context.Context, entry *models.GeocodeCache) error {
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "lat", "lng", "expires_at"}),
	}).Create(entry).Error
}
