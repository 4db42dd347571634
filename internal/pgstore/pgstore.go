// Package pgstore is the pgx data layer of the maintenance worker.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/models"
)

// DB is a pgx connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a pool on databaseURL and pings it
func New(ctx context.Context, databaseURL string) (*DB, error) {
	log := logger.GetLogger("pgstore")

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{Pool: pool}, nil
}

// Close releases the pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// PendingMarket is a market the backfill should geocode
type PendingMarket struct {
	ID     uint
	Name   string
	Street string
	Zip    string
	Town   string
	Lat    *float64
	Lng    *float64
}

// Address is the postal address sent to the geocoder
func (m PendingMarket) Address() string {
	mk := models.Market{Street: m.Street, Zip: m.Zip, Town: m.Town}
	return mk.Address()
}

// MarketsToGeocode pages through live markets with id > afterID that either
// lack coordinates or were never checked. Markets whose last attempt is newer
// than retryBefore are skipped.
func (db *DB) MarketsToGeocode(ctx context.Context, afterID uint, retryBefore time.Time, limit int) ([]PendingMarket, error) {
	query := `
		SELECT id, name, street, zip, town, lat, lng
		FROM markets
		WHERE deleted_at IS NULL
		  AND id > $1
		  AND (lat IS NULL OR lng IS NULL OR geocoded_at IS NULL)
		  AND (geocoded_at IS NULL OR geocoded_at < $2)
		ORDER BY id
		LIMIT $3
	`

	rows, err := db.Pool.Query(ctx, query, afterID, retryBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query markets to geocode: %w", err)
	}

	markets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PendingMarket, error) {
		var m PendingMarket
		err := row.Scan(&m.ID, &m.Name, &m.Street, &m.Zip, &m.Town, &m.Lat, &m.Lng)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan markets to geocode: %w", err)
	}
	return markets, nil
}

// GeocodeUpdate is the outcome of one backfill attempt. A nil Lat/Lng only
// stamps the attempt time.
type GeocodeUpdate struct {
	MarketID uint
	Lat      *float64
	Lng      *float64
	At       time.Time
}

// SaveGeocoded writes backfill outcomes in one batch
func (db *DB) SaveGeocoded(ctx context.Context, updates []GeocodeUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	query := `
		UPDATE markets
		SET lat = COALESCE($2, lat),
			lng = COALESCE($3, lng),
			geocoded_at = $4,
			updated_at = CASE WHEN $2::double precision IS NULL THEN updated_at ELSE $4 END
		WHERE id = $1
	`

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(query, u.MarketID, u.Lat, u.Lng, u.At)
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var affected int64
	var errs []error
	for _, u := range updates {
		tag, err := br.Exec()
		if err != nil {
			errs = append(errs, fmt.Errorf("market %d: %w", u.MarketID, err))
			continue
		}
		affected += tag.RowsAffected()
	}
	return affected, errors.Join(errs...)
}

// Get returns the unexpired cache entry for key, or nil
func (db *DB) Get(ctx context.Context, key string, now time.Time) (*models.GeocodeCache, error) {
	query := `
		SELECT id, address, label, lat, lng, created_at, expires_at
		FROM geocode_cache
		WHERE address = $1 AND expires_at > $2
	`

	var e models.GeocodeCache
	err := db.Pool.QueryRow(ctx, query, key, now).
		Scan(&e.ID, &e.Address, &e.Label, &e.Lat, &e.Lng, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geocode cache: %w", err)
	}
	return &e, nil
}

// Put inserts or refreshes a cache entry
func (db *DB) Put(ctx context.Context, e *models.GeocodeCache) error {
	query := `
		INSERT INTO geocode_cache (address, label, lat, lng, created_at, expires_at)
		VALUES ($1, $2, $3, $4, NOW(), $5)
		ON CONFLICT (address) DO UPDATE
		SET label = EXCLUDED.label,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			expires_at = EXCLUDED.expires_at
	`

	if _, err := db.Pool.Exec(ctx, query, e.Address, e.Label, e.Lat, e.Lng, e.ExpiresAt); err != nil {
		return fmt.Errorf("failed to put geocode cache: %w", err)
	}
	return nil
}

// DeleteExpiredGeocodeCache removes entries that expired at or before now
func (db *DB) DeleteExpiredGeocodeCache(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM geocode_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired geocode cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
