package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/telemetry"
)

// DeduplicateMarkets merges markets sharing (lower(name), zip) into the most
// recently updated one of each group. It returns the number of markets removed.
func (c *Cleaner) DeduplicateMarkets(ctx context.Context) (int64, error) {
	log := logger.GetLogger("cleanup.dedupe")
	start := time.Now()

	dups, err := c.store.DuplicateMarkets(ctx)
	if err != nil {
		telemetry.RecordMaintenance(ctx, "dedupe", 0, time.Since(start), err)
		return 0, fmt.Errorf("find duplicate markets: %w", err)
	}
	if len(dups) == 0 {
		log.Info("No duplicate markets")
		telemetry.RecordMaintenance(ctx, "dedupe", 0, time.Since(start), nil)
		return 0, nil
	}

	keepers := make(map[uint]struct{})
	for _, d := range dups {
		keepers[d.KeeperID] = struct{}{}
	}
	log.Infow("Duplicate markets found", "groups", len(keepers), "duplicates", len(dups))

	var removed int64
	for i := 0; i < len(dups); i += c.batchSize {
		end := min(i+c.batchSize, len(dups))
		n, err := c.store.MergeDuplicates(ctx, dups[i:end])
		if err != nil {
			telemetry.RecordMaintenance(ctx, "dedupe", removed, time.Since(start), err)
			return removed, fmt.Errorf("merge duplicate markets: %w", err)
		}
		removed += n
	}

	telemetry.RecordMaintenance(ctx, "dedupe", removed, time.Since(start), nil)
	log.Infow("Duplicate markets merged", "removed", removed, "elapsed", time.Since(start))
	return removed, nil
}
