package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/pkg/geo"
)

// fakeRepository serves markets from memory the way the SQL store does.
type fakeRepository struct {
	markets   []models.Market
	err       error
	lastBox   geo.Box
	lastLimit int
	lastDay   *models.Weekday
}

func (f *fakeRepository) MarketsInBox(_ context.Context, box geo.Box) ([]models.Market, error) {
	f.lastBox = box
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Market
	for _, m := range f.markets {
		if m.Located() && box.Contains(*m.Lat, *m.Lng) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepository) MarketsMatching(_ context.Context, q TextQuery, d *models.Weekday, limit int) ([]models.Market, error) {
	f.lastLimit = limit
	f.lastDay = d
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Market
	for _, m := range f.markets {
		if d != nil && !m.OpensOn(*d) {
			continue
		}
		if matches(m, q) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(m models.Market, q TextQuery) bool {
	contains := func(s, sub string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}
	switch {
	case q.Fragment != "":
		return contains(m.Name, q.Fragment) || contains(m.Town, q.Fragment) || strings.HasPrefix(m.Zip, q.Fragment)
	case q.Town != "" || q.Zip != "":
		return (q.Town != "" && contains(m.Town, q.Town)) || (q.Zip != "" && strings.HasPrefix(m.Zip, q.Zip))
	default:
		return true
	}
}

func market(id uint, name, town, zip string, lat, lng float64, days ...models.Weekday) models.Market {
	m := models.Market{ID: id, Name: name, Town: town, Zip: zip, Lat: &lat, Lng: &lng}
	for _, d := range days {
		m.Openings = append(m.Openings, models.Opening{MarketID: id, Day: d, StartTime: "08:00", EndTime: "13:00"})
	}
	return m
}

var paris = geo.Point{Lat: 48.8566, Lng: 2.3522}

func day(d models.Weekday) *models.Weekday { return &d }

func ids(hits []Hit) []uint {
	out := make([]uint, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestSearchGeoParisScenario(t *testing.T) {
	repo := &fakeRepository{markets: []models.Market{
		market(1, "Marché Centre", "Paris", "75001", paris.Lat, paris.Lng, models.Samedi),
		// ~100 km north, Compiègne area
		market(2, "Marché Lointain", "Compiègne", "60200", paris.Lat+0.9, paris.Lng, models.Samedi),
		market(3, "Marché Bastille", "Paris", "75011", 48.8532, 2.3691, models.Jeudi),
	}}
	engine := NewEngine(repo, Config{MaxResults: 200})

	result, err := engine.Search(context.Background(), Request{
		Query: GeoQuery{Center: paris, RadiusKm: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{1, 3}, ids(result.Markets))
	require.NotNil(t, result.Markets[0].DistanceKm)
	assert.InDelta(t, 0.0, *result.Markets[0].DistanceKm, 1e-9)
	assert.InDelta(t, 1.3, *result.Markets[1].DistanceKm, 0.2)
	assert.Equal(t, 2, result.Total)
	assert.False(t, result.Limited)

	assert.Equal(t, geo.BoundingBox(paris.Lat, paris.Lng, 5), repo.lastBox)
}

func TestSearchGeoRadiusZero(t *testing.T) {
	repo := &fakeRepository{markets: []models.Market{
		market(1, "Exact", "Paris", "75001", paris.Lat, paris.Lng),
		market(2, "Close", "Paris", "75001", paris.Lat+0.0001, paris.Lng),
	}}

	result, err := NewEngine(repo, Config{}).Search(context.Background(), Request{
		Query: GeoQuery{Center: paris, RadiusKm: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{1}, ids(result.Markets))
	assert.Zero(t, *result.Markets[0].DistanceKm)
}

func TestSearchGeoDropsBoxCornersOutsideCircle(t *testing.T) {
	box := geo.BoundingBox(paris.Lat, paris.Lng, 10)
	repo := &fakeRepository{markets: []models.Market{
		market(1, "Corner", "Paris", "75001", box.MaxLat, box.MaxLng),
	}}

	result, err := NewEngine(repo, Config{}).Search(context.Background(), Request{
		Query: GeoQuery{Center: paris, RadiusKm: 10},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Markets)
	assert.Zero(t, result.Total)
	assert.NotNil(t, result.Markets)
}

func TestSearchGeoSortsByDistance(t *testing.T) {
	repo := &fakeRepository{markets: []models.Market{
		market(1, "A", "x", "1", paris.Lat+0.05, paris.Lng),
		market(2, "B", "x", "1", paris.Lat+0.01, paris.Lng),
		market(3, "C", "x", "1", paris.Lat-0.03, paris.Lng),
	}}

	result, err := NewEngine(repo, Config{}).Search(context.Background(), Request{
		Query: GeoQuery{Center: paris, RadiusKm: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{2, 3, 1}, ids(result.Markets))
	assert.True(t, sort.SliceIsSorted(result.Markets, func(i, j int) bool {
		return *result.Markets[i].DistanceKm < *result.Markets[j].DistanceKm
	}))
}

func TestSearchRadiusMonotonicity(t *testing.T) {
	var markets []models.Market
	for i := 0; i < 60; i++ {
		offset := float64(i) * 0.01
		markets = append(markets, market(uint(i+1), fmt.Sprintf("M%02d", i), "x", "1",
			paris.Lat+offset, paris.Lng-offset/2, models.Weekdays[i%7]))
	}
	repo := &fakeRepository{markets: markets}
	engine := NewEngine(repo, Config{})

	for _, d := range []*models.Weekday{nil, day(models.Mardi)} {
		prev := -1
		for _, r := range []float64{0, 0.5, 1, 2, 5, 10, 20, 50, 100} {
			result, err := engine.Search(context.Background(), Request{
				Query: GeoQuery{Center: paris, RadiusKm: r},
				Day:   d,
			})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.Total, prev, "radius %.1f", r)
			prev = result.Total
		}
	}
}

func TestSearchDayFilter(t *testing.T) {
	repo := &fakeRepository{markets: []models.Market{
		market(1, "Mardi Only", "Paris", "75001", paris.Lat, paris.Lng, models.Mardi),
		market(2, "Lundi Et Jeudi", "Paris", "75002", paris.Lat, paris.Lng+0.01, models.Lundi, models.Jeudi),
		market(3, "Closed", "Paris", "75003", paris.Lat, paris.Lng+0.02),
	}}
	engine := NewEngine(repo, Config{})

	for _, q := range []Query{GeoQuery{Center: paris, RadiusKm: 10}, TextQuery{Fragment: "Paris"}} {
		result, err := engine.Search(context.Background(), Request{Query: q, Day: day(models.Lundi)})
		require.NoError(t, err)

		assert.Equal(t, []uint{2}, ids(result.Markets), "mode %s", q.Mode())
		for _, h := range result.Markets {
			assert.True(t, h.OpensOn(models.Lundi))
		}
	}
}

func TestSearchTextZipPrefix(t *testing.T) {
	repo := &fakeRepository{markets: []models.Market{
		market(1, "Marché des Halles", "Paris", "75001", 48.86, 2.34),
		market(2, "Marché Saint-Honoré", "Paris", "75001", 48.86, 2.33),
		market(3, "Marché Popincourt", "Paris", "75011", 48.86, 2.37),
		market(4, "Marché de Lyon", "Lyon", "69001", 45.76, 4.83),
	}}

	result, err := NewEngine(repo, Config{}).Search(context.Background(), Request{
		Query: TextQuery{Fragment: "75001"},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{1, 2}, ids(result.Markets))
	for _, h := range result.Markets {
		assert.True(t, strings.HasPrefix(h.Zip, "75001"))
		assert.Nil(t, h.DistanceKm)
	}
}

func TestSearchTextSortsByNameStable(t *testing.T) {
	repo := &fakeRepository{markets: []models.Market{
		market(1, "b", "x", "1", 0, 0),
		market(2, "A", "x", "1", 0, 0),
		market(3, "a", "x", "1", 0, 0),
	}}

	result, err := NewEngine(repo, Config{}).Search(context.Background(), Request{Query: TextQuery{}})
	require.NoError(t, err)

	assert.Equal(t, []uint{2, 3, 1}, ids(result.Markets))
}

func TestSearchCapInvariant(t *testing.T) {
	var markets []models.Market
	for i := 0; i < 250; i++ {
		markets = append(markets, market(uint(i+1), fmt.Sprintf("Marché %03d", i), "Paris", "75001",
			paris.Lat+float64(i)*0.0001, paris.Lng))
	}

	cases := []struct {
		name     string
		max      int
		query    Query
		wantLen  int
		wantLtd  bool
		wantTotl int
	}{
		{"geo over cap", 200, GeoQuery{Center: paris, RadiusKm: 50}, 200, true, 250},
		{"geo exactly cap", 250, GeoQuery{Center: paris, RadiusKm: 50}, 250, false, 250},
		{"text over cap", 200, TextQuery{Fragment: "75001"}, 200, true, 201},
		{"text under cap", 300, TextQuery{Fragment: "75001"}, 250, false, 250},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepository{markets: markets}
			result, err := NewEngine(repo, Config{MaxResults: tc.max}).Search(context.Background(), Request{Query: tc.query})
			require.NoError(t, err)

			assert.Len(t, result.Markets, tc.wantLen)
			assert.LessOrEqual(t, len(result.Markets), tc.max)
			assert.Equal(t, tc.wantLtd, result.Limited)
			assert.Equal(t, tc.wantTotl, result.Total)
		})
	}
}

func TestSearchTextDayFilterReachesPastTheCap(t *testing.T) {
	var markets []models.Market
	for i := 0; i < 250; i++ {
		d := models.Samedi
		if i >= 240 {
			d = models.Lundi
		}
		markets = append(markets, market(uint(i+1), fmt.Sprintf("Marché %03d", i), "Paris", "75001",
			paris.Lat, paris.Lng, d))
	}
	repo := &fakeRepository{markets: markets}

	result, err := NewEngine(repo, Config{MaxResults: 200}).Search(context.Background(), Request{
		Query: TextQuery{Fragment: "Paris"},
		Day:   day(models.Lundi),
	})
	require.NoError(t, err)

	assert.Len(t, result.Markets, 10)
	assert.Equal(t, 10, result.Total)
	assert.False(t, result.Limited)
	assert.Equal(t, uint(241), result.Markets[0].ID)
	require.NotNil(t, repo.lastDay)
	assert.Equal(t, models.Lundi, *repo.lastDay)
}

func TestSearchTextDayFilterOverCap(t *testing.T) {
	var markets []models.Market
	for i := 0; i < 300; i++ {
		d := models.Mardi
		if i%2 == 0 {
			d = models.Jeudi
		}
		markets = append(markets, market(uint(i+1), fmt.Sprintf("Marché %03d", i), "Lyon", "69001",
			45.76, 4.83, d))
	}

	result, err := NewEngine(&fakeRepository{markets: markets}, Config{MaxResults: 100}).Search(context.Background(), Request{
		Query: TextQuery{Zip: "69"},
		Day:   day(models.Jeudi),
	})
	require.NoError(t, err)

	assert.Len(t, result.Markets, 100)
	assert.True(t, result.Limited)
	assert.Greater(t, result.Total, 100)
	for _, h := range result.Markets {
		assert.True(t, h.OpensOn(models.Jeudi))
	}
}

func TestSearchTextAsksStoreForOneExtraRow(t *testing.T) {
	repo := &fakeRepository{}
	_, err := NewEngine(repo, Config{MaxResults: 10}).Search(context.Background(), Request{Query: TextQuery{Zip: "75"}})
	require.NoError(t, err)

	assert.Equal(t, 11, repo.lastLimit)
}

func TestSearchDefaultMaxResults(t *testing.T) {
	assert.Equal(t, DefaultMaxResults, NewEngine(&fakeRepository{}, Config{}).MaxResults())
	assert.Equal(t, 50, NewEngine(&fakeRepository{}, Config{MaxResults: 50}).MaxResults())
}

func TestSearchPropagatesStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	engine := NewEngine(&fakeRepository{err: boom}, Config{})

	for _, q := range []Query{GeoQuery{Center: paris, RadiusKm: 5}, TextQuery{Fragment: "x"}} {
		result, err := engine.Search(context.Background(), Request{Query: q})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, boom)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	_, err := NewEngine(&fakeRepository{}, Config{}).Search(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoQuery)
}
