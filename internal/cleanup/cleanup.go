// Package cleanup holds the periodic data hygiene tasks.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/pgstore"
	"github.com/marchelocal/server/internal/telemetry"
)

// Store is the subset of pgstore.DB the cleaner needs
type Store interface {
	DeleteExpiredGeocodeCache(ctx context.Context, now time.Time) (int64, error)
	DuplicateMarkets(ctx context.Context) ([]pgstore.Duplicate, error)
	MergeDuplicates(ctx context.Context, dups []pgstore.Duplicate) (int64, error)
}

// Cleaner runs cleanup tasks against a Store
type Cleaner struct {
	store     Store
	batchSize int
	now       func() time.Time
}

// New creates a Cleaner. batchSize bounds the duplicates merged per transaction.
func New(store Store, batchSize int) *Cleaner {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Cleaner{store: store, batchSize: batchSize, now: time.Now}
}

// PurgeGeocodeCache deletes expired geocode cache entries
func (c *Cleaner) PurgeGeocodeCache(ctx context.Context) (int64, error) {
	log := logger.GetLogger("cleanup")
	start := c.now()

	deleted, err := c.store.DeleteExpiredGeocodeCache(ctx, start)
	telemetry.RecordMaintenance(ctx, "cleanup", deleted, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("purge geocode cache: %w", err)
	}

	if deleted == 0 {
		log.Info("No expired geocode cache entries")
	} else {
		log.Infow("Expired geocode cache purged", "deleted", deleted)
	}
	return deleted, nil
}
