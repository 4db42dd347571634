// Package geocode provides a client for the Base Adresse Nationale search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/marchelocal/server/pkg/geo"
)

const (
	// DefaultBaseURL is the public BAN endpoint.
	DefaultBaseURL = "https://api-adresse.data.gouv.fr"

	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit stays well under the BAN fair-use quota (50 req/s per IP).
	DefaultRateLimit = 10

	maxAttempts    = 3
	initialBackoff = 400 * time.Millisecond
	backoffFactor  = 1.7
	maxBackoff     = 6 * time.Second
)

var (
	// ErrNotFound means the geocoder had no match for the address.
	ErrNotFound = errors.New("address not found")
	// ErrEmptyAddress is returned before any request is made.
	ErrEmptyAddress = errors.New("empty address")
)

// Result is the best match for an address.
type Result struct {
	Label    string    `json:"label"`
	Point    geo.Point `json:"point"`
	Score    float64   `json:"score"`
	Postcode string    `json:"postcode,omitempty"`
	City     string    `json:"city,omitempty"`
}

// Geocoder resolves free-form addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Client is a BAN API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.SugaredLogger
	sleep      func(context.Context, time.Duration) error
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(log *zap.SugaredLogger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithRateLimit sets the requests-per-second budget. Non-positive values disable limiting.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(math.Max(1, requestsPerSecond)))
	}
}

// NewClient creates a new BAN client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:     zap.NewNop().Sugar(),
		sleep:   sleepCtx,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx answer from the geocoder.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("geocoder error: status %d: %s", e.StatusCode, e.Message)
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			// GeoJSON order: [lng, lat]
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label    string  `json:"label"`
			Score    float64 `json:"score"`
			Postcode string  `json:"postcode"`
			City     string  `json:"city"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode returns the best match for address. 429 answers are retried with
// jittered exponential backoff.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("limit", "1")
	reqURL := c.baseURL + "/search/?" + params.Encode()

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		result, err := c.do(ctx, reqURL)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests || attempt == maxAttempts {
			return result, err
		}

		wait := backoff + time.Duration(rand.Int63n(int64(300*time.Millisecond)))
		c.log.Warnw("Geocoder rate limited, backing off",
			"address", address, "attempt", attempt, "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*backoffFactor))
	}
}

func (c *Client) do(ctx context.Context, reqURL string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debugw("Geocoder request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(fc.Features) == 0 {
		return nil, ErrNotFound
	}
	f := fc.Features[0]
	if len(f.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("malformed geometry for %q", f.Properties.Label)
	}

	p := geo.Point{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]}
	if !p.Valid() {
		return nil, fmt.Errorf("geocoder returned out-of-range point %v", p)
	}

	return &Result{
		Label:    f.Properties.Label,
		Point:    p,
		Score:    f.Properties.Score,
		Postcode: f.Properties.Postcode,
		City:     f.Properties.City,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
