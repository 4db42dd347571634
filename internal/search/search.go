// Package search implements proximity and text search over markets.
//
// A search runs as a per-call pipeline: candidate retrieval from a
// Repository, exact distance filtering (geographic mode only), an optional
// weekday filter, sorting and capping. The Engine holds no mutable state and
// is safe for concurrent use.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/internal/telemetry"
	"github.com/marchelocal/server/pkg/geo"
)

// DefaultMaxResults is the result cap used when Config.MaxResults is unset.
const DefaultMaxResults = 200

// Mode identifies the query strategy.
type Mode string

const (
	ModeGeo  Mode = "geo"
	ModeText Mode = "text"
)

// Query is either a GeoQuery or a TextQuery.
type Query interface {
	Mode() Mode
}

// GeoQuery selects markets within RadiusKm of Center.
type GeoQuery struct {
	Center   geo.Point
	RadiusKm float64
}

func (GeoQuery) Mode() Mode { return ModeGeo }

// TextQuery selects markets by free text. Fragment matches name or town as a
// case-insensitive substring and zip as a prefix. When Fragment is empty, Town
// and Zip are OR-combined; when all are empty every market matches.
type TextQuery struct {
	Fragment string
	Town     string
	Zip      string
}

func (TextQuery) Mode() Mode { return ModeText }

// Request is a query plus the optional weekday filter.
type Request struct {
	Query Query
	Day   *models.Weekday
}

// Hit is a market in a search result. DistanceKm is only set in geographic mode.
type Hit struct {
	models.Market
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// Result is the capped hit list. Total is the pre-cap count and Limited is
// true iff Total exceeds the cap.
type Result struct {
	Markets []Hit `json:"markets"`
	Total   int   `json:"total"`
	Limited bool  `json:"limited"`
}

// Repository is the read-only market store the engine queries. Both methods
// must return markets with their openings loaded.
type Repository interface {
	// MarketsInBox returns every located market inside box, edges included.
	MarketsInBox(ctx context.Context, box geo.Box) ([]models.Market, error)
	// MarketsMatching returns up to limit markets matching q, ordered by name.
	// A non-nil day keeps only markets opening that day, applied before limit.
	MarketsMatching(ctx context.Context, q TextQuery, day *models.Weekday, limit int) ([]models.Market, error)
}

// Config tunes the engine per deployment.
type Config struct {
	MaxResults int
}

// Engine runs market searches against a Repository.
type Engine struct {
	repo       Repository
	maxResults int
}

// NewEngine creates an Engine. A non-positive MaxResults falls back to DefaultMaxResults.
func NewEngine(repo Repository, cfg Config) *Engine {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Engine{repo: repo, maxResults: maxResults}
}

// MaxResults returns the configured result cap.
func (e *Engine) MaxResults() int {
	return e.maxResults
}

// Search runs the pipeline for req. Repository failures are returned wrapped
// and no partial result is produced.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	if req.Query == nil {
		return nil, ErrNoQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "search.markets")
	defer span.End()
	span.SetAttributes(attribute.String("search.mode", string(req.Query.Mode())))

	var (
		hits []Hit
		more bool
		err  error
	)

	switch q := req.Query.(type) {
	case GeoQuery:
		hits, err = e.searchGeo(ctx, q, req.Day)
	case TextQuery:
		hits, more, err = e.searchText(ctx, q, req.Day)
	default:
		err = fmt.Errorf("%w: %T", ErrNoQuery, req.Query)
	}
	if err != nil {
		span.RecordError(err)
		searchErrorsTotal.WithLabelValues(string(req.Query.Mode())).Inc()
		return nil, err
	}

	result := e.capResult(hits)
	if more {
		result.Limited = true
	}

	searchRequestsTotal.WithLabelValues(string(req.Query.Mode())).Inc()
	searchResults.WithLabelValues(string(req.Query.Mode())).Observe(float64(len(result.Markets)))
	span.SetAttributes(
		attribute.Int("search.total", result.Total),
		attribute.Bool("search.limited", result.Limited),
	)

	return result, nil
}

func (e *Engine) searchGeo(ctx context.Context, q GeoQuery, day *models.Weekday) ([]Hit, error) {
	box := geo.BoundingBox(q.Center.Lat, q.Center.Lng, q.RadiusKm)

	candidates, err := e.repo.MarketsInBox(ctx, box)
	if err != nil {
		return nil, fmt.Errorf("fetch markets in box: %w", err)
	}
	searchCandidates.WithLabelValues(string(ModeGeo)).Observe(float64(len(candidates)))

	hits := make([]Hit, 0, len(candidates))
	for _, m := range candidates {
		if !m.Located() {
			continue
		}
		// the box is only a superset of the circle
		d := geo.DistanceKm(q.Center.Lat, q.Center.Lng, *m.Lat, *m.Lng)
		if d > q.RadiusKm {
			continue
		}
		if day != nil && !m.OpensOn(*day) {
			continue
		}
		dist := d
		hits = append(hits, Hit{Market: m, DistanceKm: &dist})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return *hits[i].DistanceKm < *hits[j].DistanceKm
	})

	return hits, nil
}

// searchText also reports whether the store had more rows than the cap.
func (e *Engine) searchText(ctx context.Context, q TextQuery, day *models.Weekday) ([]Hit, bool, error) {
	// one extra row tells a full page apart from a truncated one; the day
	// filter has to run in the store or the extra row would be meaningless
	candidates, err := e.repo.MarketsMatching(ctx, q, day, e.maxResults+1)
	if err != nil {
		return nil, false, fmt.Errorf("fetch markets matching text: %w", err)
	}
	searchCandidates.WithLabelValues(string(ModeText)).Observe(float64(len(candidates)))
	more := len(candidates) > e.maxResults

	hits := make([]Hit, 0, len(candidates))
	for _, m := range candidates {
		if day != nil && !m.OpensOn(*day) {
			continue
		}
		hits = append(hits, Hit{Market: m})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return strings.ToLower(hits[i].Name) < strings.ToLower(hits[j].Name)
	})

	return hits, more, nil
}

func (e *Engine) capResult(hits []Hit) *Result {
	total := len(hits)
	if total > e.maxResults {
		hits = hits[:e.maxResults]
	}
	return &Result{
		Markets: hits,
		Total:   total,
		Limited: total > e.maxResults,
	}
}
