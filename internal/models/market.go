package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Weekday is a French weekday token as used by the market calendar.
type Weekday string

const (
	Lundi    Weekday = "LUNDI"
	Mardi    Weekday = "MARDI"
	Mercredi Weekday = "MERCREDI"
	Jeudi    Weekday = "JEUDI"
	Vendredi Weekday = "VENDREDI"
	Samedi   Weekday = "SAMEDI"
	Dimanche Weekday = "DIMANCHE"
)

// Weekdays lists the tokens in calendar order, Monday first.
var Weekdays = []Weekday{Lundi, Mardi, Mercredi, Jeudi, Vendredi, Samedi, Dimanche}

// ParseWeekday parses a weekday token case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	token := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	for _, d := range Weekdays {
		if d == token {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

// WeekdayOf maps a time.Weekday to its token.
func WeekdayOf(d time.Weekday) Weekday {
	// time.Sunday is 0
	return Weekdays[(int(d)+6)%7]
}

var clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidClock reports whether s is an "HH:MM" time of day.
func ValidClock(s string) bool {
	return clockRegex.MatchString(s)
}

// Market represents a physical market place
// DB: markets
type Market struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ExternalRef *string        `gorm:"column:external_ref;size:100;uniqueIndex:markets_external_ref_key" json:"externalRef,omitempty"`
	Name        string         `gorm:"column:name;size:255;not null;index:idx_market_name" json:"name"`
	Street      string         `gorm:"column:street;size:255;not null;default:''" json:"street"`
	Town        string         `gorm:"column:town;size:120;not null;index:idx_market_town" json:"town"`
	Zip         string         `gorm:"column:zip;size:10;not null;index:idx_market_zip" json:"zip"`
	Lat         *float64       `gorm:"column:lat;type:double precision;index:idx_market_lat_lng,priority:1" json:"lat,omitempty"`
	Lng         *float64       `gorm:"column:lng;type:double precision;index:idx_market_lat_lng,priority:2" json:"lng,omitempty"`
	Description *string        `gorm:"column:description;type:text" json:"description,omitempty"`
	GeocodedAt  *time.Time     `gorm:"column:geocoded_at" json:"-"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index:idx_market_deleted" json:"-"`

	// Relations
	Openings []Opening `gorm:"foreignKey:MarketID" json:"openings"`
}

func (Market) TableName() string {
	return "markets"
}

// OpensOn reports whether the market has at least one opening on day.
func (m *Market) OpensOn(day Weekday) bool {
	for _, o := range m.Openings {
		if o.Day == day {
			return true
		}
	}
	return false
}

// Address is the postal address used for geocoding.
func (m *Market) Address() string {
	return strings.Join(strings.Fields(m.Street+" "+m.Zip+" "+m.Town), " ")
}

// Located reports whether the market has coordinates.
func (m *Market) Located() bool {
	return m.Lat != nil && m.Lng != nil
}

// Opening is a recurring weekly time window of a market
// DB: market_openings
type Opening struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	MarketID  uint    `gorm:"column:market_id;not null;index:idx_opening_market" json:"marketId"`
	Day       Weekday `gorm:"column:day;size:10;not null;index:idx_opening_day" json:"day"`
	StartTime string  `gorm:"column:start_time;size:5;not null" json:"startTime"`
	EndTime   string  `gorm:"column:end_time;size:5;not null" json:"endTime"`
}

func (Opening) TableName() string {
	return "market_openings"
}
