package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/pkg/geo"
	"github.com/marchelocal/server/pkg/geocode"
)

type memoryCache struct {
	entries map[string]models.GeocodeCache
	getErr  error
}

func (m *memoryCache) Get(_ context.Context, key string, now time.Time) (*models.GeocodeCache, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.entries[key]
	if !ok || !e.ExpiresAt.After(now) {
		return nil, nil
	}
	return &e, nil
}

func (m *memoryCache) Put(_ context.Context, e *models.GeocodeCache) error {
	m.entries[e.Address] = *e
	return nil
}

type countingGeocoder struct {
	calls int
	res   *geocode.Result
	err   error
}

func (g *countingGeocoder) Geocode(context.Context, string) (*geocode.Result, error) {
	g.calls++
	return g.res, g.err
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "place d'aligre 75012 paris", CacheKey("  Place  d'Aligre\t75012 PARIS "))
	assert.Empty(t, CacheKey("   "))
}

func TestGeocodeServiceCachesAnswers(t *testing.T) {
	cache := &memoryCache{entries: map[string]models.GeocodeCache{}}
	gc := &countingGeocoder{res: &geocode.Result{Label: "Paris", Point: geo.Point{Lat: 48.85, Lng: 2.35}}}
	svc := NewGeocodeService(cache, gc, time.Hour)
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, err := svc.Geocode(context.Background(), "Paris")
		require.NoError(t, err)
		assert.Equal(t, 48.85, res.Point.Lat)
	}
	assert.Equal(t, 1, gc.calls)

	// expired
	now = now.Add(2 * time.Hour)
	_, err := svc.Geocode(context.Background(), "PARIS")
	require.NoError(t, err)
	assert.Equal(t, 2, gc.calls)
}

func TestGeocodeServiceDoesNotCacheMisses(t *testing.T) {
	cache := &memoryCache{entries: map[string]models.GeocodeCache{}}
	gc := &countingGeocoder{err: geocode.ErrNotFound}
	svc := NewGeocodeService(cache, gc, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := svc.Geocode(context.Background(), "nowhere")
		assert.ErrorIs(t, err, geocode.ErrNotFound)
	}
	assert.Equal(t, 2, gc.calls)
	assert.Empty(t, cache.entries)
}

func TestGeocodeServiceSurvivesCacheFailure(t *testing.T) {
	cache := &memoryCache{entries: map[string]models.GeocodeCache{}, getErr: errors.New("db down")}
	gc := &countingGeocoder{res: &geocode.Result{Point: geo.Point{Lat: 1, Lng: 2}}}

	res, err := NewGeocodeService(cache, gc, time.Hour).Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Point.Lng)
}

func TestGeocodeServiceEmptyAddress(t *testing.T) {
	gc := &countingGeocoder{}
	_, err := NewGeocodeService(&memoryCache{}, gc, time.Hour).Geocode(context.Background(), " ")
	assert.ErrorIs(t, err, geocode.ErrEmptyAddress)
	assert.Zero(t, gc.calls)
}
