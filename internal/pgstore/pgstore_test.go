package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingMarketAddress(t *testing.T) {
	m := PendingMarket{Street: "  Place d'Aligre ", Zip: "75012", Town: "Paris"}
	assert.Equal(t, "Place d'Aligre 75012 Paris", m.Address())

	assert.Equal(t, "69001 Lyon", PendingMarket{Zip: "69001", Town: "Lyon"}.Address())
}
