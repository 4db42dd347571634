package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("lundi")
	require.NoError(t, err)
	assert.Equal(t, Lundi, d)

	d, err = ParseWeekday(" Dimanche ")
	require.NoError(t, err)
	assert.Equal(t, Dimanche, d)

	_, err = ParseWeekday("MONDAY")
	assert.Error(t, err)
	_, err = ParseWeekday("")
	assert.Error(t, err)
}

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Lundi, WeekdayOf(time.Monday))
	assert.Equal(t, Samedi, WeekdayOf(time.Saturday))
	assert.Equal(t, Dimanche, WeekdayOf(time.Sunday))
}

func TestValidClock(t *testing.T) {
	assert.True(t, ValidClock("07:30"))
	assert.True(t, ValidClock("23:59"))
	assert.False(t, ValidClock("24:00"))
	assert.False(t, ValidClock("7:30"))
	assert.False(t, ValidClock("07h30"))
}

func TestMarketOpensOn(t *testing.T) {
	m := Market{Openings: []Opening{
		{Day: Mardi, StartTime: "08:00", EndTime: "13:00"},
		{Day: Samedi, StartTime: "07:00", EndTime: "13:30"},
		{Day: Samedi, StartTime: "15:00", EndTime: "19:00"},
	}}

	assert.True(t, m.OpensOn(Mardi))
	assert.True(t, m.OpensOn(Samedi))
	assert.False(t, m.OpensOn(Lundi))
	assert.False(t, (&Market{}).OpensOn(Lundi))
}

func TestMarketAddress(t *testing.T) {
	m := Market{Street: " Place d'Aligre ", Zip: "75012", Town: "Paris"}
	assert.Equal(t, "Place d'Aligre 75012 Paris", m.Address())

	m.Street = ""
	assert.Equal(t, "75012 Paris", m.Address())
}
