// Package enricher backfills market coordinates through the geocoder.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/pgstore"
	"github.com/marchelocal/server/pkg/geo"
	"github.com/marchelocal/server/pkg/geocode"
)

const (
	// StrikeLimit consecutive 429s abort the run
	StrikeLimit = 3
	// InitialSleep is the first backoff in seconds
	InitialSleep = 0.4
	// BackoffFactor grows the backoff after each strike
	BackoffFactor = 1.7
	// MaxBackoff caps a single wait in seconds
	MaxBackoff = 6.0
	// DriftMeters is how far a stored point may sit from the geocoded one
	DriftMeters = 50.0
	// RetryAfter is how long a market that could not be located waits before the next attempt
	RetryAfter = 7 * 24 * time.Hour
)

// ErrRateLimited is returned when the geocoder keeps answering 429.
var ErrRateLimited = errors.New("geocoder rate limit exhausted")

// Store is the market table as seen by the backfill
type Store interface {
	MarketsToGeocode(ctx context.Context, afterID uint, retryBefore time.Time, limit int) ([]pgstore.PendingMarket, error)
	SaveGeocoded(ctx context.Context, updates []pgstore.GeocodeUpdate) (int64, error)
}

// Report counts the outcome of a run
type Report struct {
	Scanned  int
	Located  int
	Verified int
	Drifted  int
	NotFound int
	Failed   int
}

// Rows is the number of markets whose coordinates were written
func (r Report) Rows() int64 {
	return int64(r.Located)
}

// Enricher geocodes markets in batches
type Enricher struct {
	store     Store
	geocoder  geocode.Geocoder
	batchSize int
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

// New creates an Enricher. A non-positive batchSize falls back to 100.
func New(store Store, geocoder geocode.Geocoder, batchSize int) *Enricher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Enricher{
		store:     store,
		geocoder:  geocoder,
		batchSize: batchSize,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Run walks every pending market once. Markets with stored coordinates are
// only verified: a geocoded point further than DriftMeters away is logged and
// the stored one is kept.
func (e *Enricher) Run(ctx context.Context) (Report, error) {
	log := logger.GetLogger("enricher")

	var report Report
	start := e.now()
	retryBefore := start.Add(-RetryAfter)
	var afterID uint

	for {
		batch, err := e.store.MarketsToGeocode(ctx, afterID, retryBefore, e.batchSize)
		if err != nil {
			return report, err
		}
		if len(batch) == 0 {
			break
		}

		updates := make([]pgstore.GeocodeUpdate, 0, len(batch))
		var runErr error
		for _, m := range batch {
			afterID = m.ID
			report.Scanned++

			res, err := e.geocode(ctx, m.Address())
			if err != nil {
				if errors.Is(err, geocode.ErrNotFound) || errors.Is(err, geocode.ErrEmptyAddress) {
					report.NotFound++
					log.Infow("Market address not found", "market_id", m.ID, "address", m.Address())
					updates = append(updates, pgstore.GeocodeUpdate{MarketID: m.ID, At: e.now()})
					continue
				}
				if errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
					runErr = err
					break
				}
				report.Failed++
				log.Warnw("Geocoding failed", "market_id", m.ID, "error", err)
				continue
			}

			update := pgstore.GeocodeUpdate{MarketID: m.ID, At: e.now()}
			if m.Lat != nil && m.Lng != nil {
				report.Verified++
				drift := geo.DistanceKm(*m.Lat, *m.Lng, res.Point.Lat, res.Point.Lng) * 1000
				if drift > DriftMeters {
					report.Drifted++
					log.Warnw("Stored coordinates drift from geocoded address",
						"market_id", m.ID,
						"name", m.Name,
						"drift_m", math.Round(drift),
					)
				}
			} else {
				report.Located++
				lat, lng := res.Point.Lat, res.Point.Lng
				update.Lat, update.Lng = &lat, &lng
			}
			updates = append(updates, update)
		}

		// outcomes gathered before an abort are still worth keeping
		if _, err := e.store.SaveGeocoded(ctx, updates); err != nil {
			return report, fmt.Errorf("save geocoded markets: %w", err)
		}
		if runErr != nil {
			return report, runErr
		}

		log.Infow("Geocode batch done",
			"scanned", report.Scanned,
			"located", report.Located,
			"not_found", report.NotFound,
			"failed", report.Failed,
		)

		if len(batch) < e.batchSize {
			break
		}
	}

	return report, nil
}

// geocode retries the same address while the geocoder answers 429
func (e *Enricher) geocode(ctx context.Context, address string) (*geocode.Result, error) {
	log := logger.GetLogger("enricher")

	strikes := 0
	backoff := InitialSleep
	for {
		res, err := e.geocoder.Geocode(ctx, address)
		var apiErr *geocode.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
			return res, err
		}

		strikes++
		if strikes >= StrikeLimit {
			return nil, fmt.Errorf("%w after %d strikes", ErrRateLimited, strikes)
		}
		sleepFor := math.Min(MaxBackoff, backoff) + rand.Float64()*0.3
		log.Warnw("Geocoder rate limited, backing off",
			"strike", strikes,
			"wait_s", sleepFor,
		)
		if err := e.sleep(ctx, time.Duration(sleepFor*float64(time.Second))); err != nil {
			return nil, err
		}
		backoff *= BackoffFactor
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
