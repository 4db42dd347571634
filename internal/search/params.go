package search

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/pkg/geo"
)

var (
	ErrNoQuery           = errors.New("search query is missing")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRadius     = errors.New("invalid radius")
	ErrInvalidDay        = errors.New("invalid day")
)

// Params are the raw query-string values of a market search.
type Params struct {
	Lat    string
	Lng    string
	Radius string
	Search string
	Town   string
	Zip    string
	Day    string
}

// ParseRequest validates p and builds a Request. A center point selects
// geographic mode; otherwise the text fields select textual mode. An empty
// Radius defaults to defaultRadiusKm. Malformed numbers are rejected rather
// than coerced.
func ParseRequest(p Params, defaultRadiusKm float64) (Request, error) {
	var req Request

	if p.Day = strings.TrimSpace(p.Day); p.Day != "" {
		day, err := models.ParseWeekday(p.Day)
		if err != nil {
			return req, fmt.Errorf("%w: %q", ErrInvalidDay, p.Day)
		}
		req.Day = &day
	}

	lat, lng := strings.TrimSpace(p.Lat), strings.TrimSpace(p.Lng)
	if lat == "" && lng == "" {
		req.Query = TextQuery{
			Fragment: strings.TrimSpace(p.Search),
			Town:     strings.TrimSpace(p.Town),
			Zip:      strings.TrimSpace(p.Zip),
		}
		return req, nil
	}
	if lat == "" || lng == "" {
		return req, fmt.Errorf("%w: lat and lng must be given together", ErrInvalidCoordinate)
	}

	center, err := ParsePoint(lat, lng)
	if err != nil {
		return req, err
	}

	radius, err := ParseRadius(p.Radius, defaultRadiusKm)
	if err != nil {
		return req, err
	}

	req.Query = GeoQuery{Center: center, RadiusKm: radius}
	return req, nil
}

// ParsePoint parses decimal-degree strings into a valid point.
func ParsePoint(lat, lng string) (geo.Point, error) {
	la, err := parseFinite(lat)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: lat %q", ErrInvalidCoordinate, lat)
	}
	ln, err := parseFinite(lng)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: lng %q", ErrInvalidCoordinate, lng)
	}

	p := geo.Point{Lat: la, Lng: ln}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("%w: (%s, %s) out of range", ErrInvalidCoordinate, lat, lng)
	}
	return p, nil
}

// ParseRadius parses a non-negative radius in kilometers.
func ParseRadius(s string, defaultRadiusKm float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultRadiusKm, nil
	}
	r, err := parseFinite(s)
	if err != nil || r < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRadius, s)
	}
	return r, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

// IsBadRequest reports whether err comes from invalid caller input.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidCoordinate) ||
		errors.Is(err, ErrInvalidRadius) ||
		errors.Is(err, ErrInvalidDay)
}
