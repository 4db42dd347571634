package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Duplicate pairs a redundant market with the one that survives it
type Duplicate struct {
	MarketID    uint
	KeeperID    uint
	ExternalRef *string
}

// DuplicateMarkets lists live markets sharing (lower(name), zip) with a more
// recently updated one. The newest row of each group is the keeper.
func (db *DB) DuplicateMarkets(ctx context.Context) ([]Duplicate, error) {
	query := `
		WITH ranked AS (
			SELECT id,
				   external_ref,
				   FIRST_VALUE(id) OVER w AS keeper_id,
				   ROW_NUMBER() OVER w AS rn
			FROM markets
			WHERE deleted_at IS NULL
			WINDOW w AS (
				PARTITION BY lower(name), zip
				ORDER BY updated_at DESC NULLS LAST, id DESC
			)
		)
		SELECT id, keeper_id, external_ref
		FROM ranked
		WHERE rn > 1
		ORDER BY keeper_id, id
	`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate markets: %w", err)
	}

	dups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Duplicate, error) {
		var d Duplicate
		err := row.Scan(&d.MarketID, &d.KeeperID, &d.ExternalRef)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan duplicate markets: %w", err)
	}
	return dups, nil
}

// MergeDuplicates soft-deletes each duplicate in one transaction. Vendor
// attendance moves to the keeper, the keeper inherits a missing external
// reference and per-market product overrides of the duplicate are dropped.
func (db *DB) MergeDuplicates(ctx context.Context, dups []Duplicate) (int64, error) {
	if len(dups) == 0 {
		return 0, nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var deleted int64
	for _, d := range dups {
		batch := &pgx.Batch{}
		// the reference is released before the keeper claims it
		batch.Queue(`UPDATE markets SET deleted_at = NOW(), external_ref = NULL WHERE id = $1 AND deleted_at IS NULL`, d.MarketID)
		if d.ExternalRef != nil {
			batch.Queue(`UPDATE markets SET external_ref = $2 WHERE id = $1 AND external_ref IS NULL`, d.KeeperID, *d.ExternalRef)
		}
		batch.Queue(`
			INSERT INTO market_vendors (vendor_id, market_id, created_at)
			SELECT vendor_id, $2, created_at FROM market_vendors WHERE market_id = $1
			ON CONFLICT DO NOTHING
		`, d.MarketID, d.KeeperID)
		batch.Queue(`DELETE FROM market_vendors WHERE market_id = $1`, d.MarketID)
		batch.Queue(`DELETE FROM market_products WHERE market_id = $1`, d.MarketID)

		br := tx.SendBatch(ctx, batch)
		tag, err := br.Exec()
		if err == nil {
			deleted += tag.RowsAffected()
			for i := 1; i < batch.Len(); i++ {
				if _, err = br.Exec(); err != nil {
					break
				}
			}
		}
		closeErr := br.Close()
		if err != nil {
			return 0, fmt.Errorf("failed to merge market %d into %d: %w", d.MarketID, d.KeeperID, err)
		}
		if closeErr != nil {
			return 0, fmt.Errorf("failed to merge market %d into %d: %w", d.MarketID, d.KeeperID, closeErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted, nil
}
