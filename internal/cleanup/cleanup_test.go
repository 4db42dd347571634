package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchelocal/server/internal/pgstore"
)

type fakeStore struct {
	expiredAt time.Time
	expired   int64
	dups      []pgstore.Duplicate
	batches   [][]pgstore.Duplicate
	mergeErr  error
}

func (f *fakeStore) DeleteExpiredGeocodeCache(_ context.Context, now time.Time) (int64, error) {
	f.expiredAt = now
	return f.expired, nil
}

func (f *fakeStore) DuplicateMarkets(context.Context) ([]pgstore.Duplicate, error) {
	return f.dups, nil
}

func (f *fakeStore) MergeDuplicates(_ context.Context, dups []pgstore.Duplicate) (int64, error) {
	if f.mergeErr != nil {
		return 0, f.mergeErr
	}
	f.batches = append(f.batches, dups)
	return int64(len(dups)), nil
}

func TestPurgeGeocodeCache(t *testing.T) {
	now := time.Date(2026, 3, 7, 6, 0, 0, 0, time.UTC)
	store := &fakeStore{expired: 12}
	c := New(store, 10)
	c.now = func() time.Time { return now }

	deleted, err := c.PurgeGeocodeCache(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(12), deleted)
	assert.Equal(t, now, store.expiredAt)
}

func TestDeduplicateMarketsBatches(t *testing.T) {
	store := &fakeStore{dups: []pgstore.Duplicate{
		{MarketID: 2, KeeperID: 1},
		{MarketID: 3, KeeperID: 1},
		{MarketID: 5, KeeperID: 4},
	}}

	removed, err := New(store, 2).DeduplicateMarkets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), removed)
	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[1], 1)
}

func TestDeduplicateMarketsNothingToDo(t *testing.T) {
	store := &fakeStore{}

	removed, err := New(store, 2).DeduplicateMarkets(context.Background())
	require.NoError(t, err)

	assert.Zero(t, removed)
	assert.Empty(t, store.batches)
}

func TestDeduplicateMarketsMergeFailure(t *testing.T) {
	boom := errors.New("deadlock detected")
	store := &fakeStore{dups: []pgstore.Duplicate{{MarketID: 2, KeeperID: 1}}, mergeErr: boom}

	_, err := New(store, 2).DeduplicateMarkets(context.Background())
	assert.ErrorIs(t, err, boom)
}
