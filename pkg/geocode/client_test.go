package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parisBody = `{"type":"FeatureCollection","features":[{"type":"Feature",
"geometry":{"type":"Point","coordinates":[2.347,48.859]},
"properties":{"label":"Rue de Rivoli 75001 Paris","score":0.97,"postcode":"75001","city":"Paris"}}]}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL+"/"), WithRateLimit(0))
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/", r.URL.Path)
		assert.Equal(t, "rue de rivoli paris", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(parisBody))
	})

	res, err := c.Geocode(context.Background(), "  rue de rivoli paris ")
	require.NoError(t, err)

	assert.Equal(t, 48.859, res.Point.Lat)
	assert.Equal(t, 2.347, res.Point.Lng)
	assert.Equal(t, "75001", res.Postcode)
	assert.Equal(t, "Rue de Rivoli 75001 Paris", res.Label)
}

func TestGeocodeNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	})

	_, err := c.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeocodeEmptyAddress(t *testing.T) {
	c := NewClient()
	_, err := c.Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyAddress)
}

func TestGeocodeRetriesTooManyRequests(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(parisBody))
	})

	res, err := c.Geocode(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.City)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGeocodeGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Geocode(context.Background(), "paris")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.EqualValues(t, maxAttempts, atomic.LoadInt32(&calls))
}

func TestGeocodeServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Geocode(context.Background(), "paris")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
