package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/marchelocal/server/internal/models"
)

func product(id, vendorID uint, name, price string, stock int) models.Product {
	return models.Product{
		ID:       id,
		VendorID: vendorID,
		Name:     name,
		Unit:     "kg",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
}

func TestResolveOfferWithoutOverride(t *testing.T) {
	offer := ResolveOffer(product(1, 7, "Tomates", "3.50", 12), nil)

	assert.True(t, offer.Price.Equal(decimal.RequireFromString("3.5")))
	assert.Equal(t, 12, offer.Stock)
	assert.True(t, offer.Available)
	assert.False(t, offer.Overridden)
}

func TestResolveOfferAppliesOverride(t *testing.T) {
	price := decimal.RequireFromString("2.90")
	stock := 4

	cases := []struct {
		name      string
		override  models.MarketProduct
		wantPrice string
		wantStock int
		wantAvail bool
	}{
		{"price only", models.MarketProduct{Price: &price}, "2.90", 12, true},
		{"stock only", models.MarketProduct{Stock: &stock}, "3.50", 4, true},
		{"both", models.MarketProduct{Price: &price, Stock: &stock}, "2.90", 4, true},
		{"unavailable", models.MarketProduct{Unavailable: true}, "3.50", 12, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := tc.override
			offer := ResolveOffer(product(1, 7, "Tomates", "3.50", 12), &o)

			assert.True(t, offer.Price.Equal(decimal.RequireFromString(tc.wantPrice)), offer.Price.String())
			assert.Equal(t, tc.wantStock, offer.Stock)
			assert.Equal(t, tc.wantAvail, offer.Available)
			assert.True(t, offer.Overridden)
		})
	}
}

func TestResolveOfferAvailability(t *testing.T) {
	p := product(1, 7, "Miel", "8.00", 0)
	assert.False(t, ResolveOffer(p, nil).Available, "no stock")

	zero := 0
	p.Stock = 5
	assert.False(t, ResolveOffer(p, &models.MarketProduct{Stock: &zero}).Available, "override empties stock")

	p.IsActive = false
	assert.False(t, ResolveOffer(p, nil).Available, "inactive")
}

func TestBuildCatalogOrdering(t *testing.T) {
	override := models.MarketProduct{Unavailable: true}
	products := []models.Product{
		product(1, 2, "poireaux", "1.00", 1),
		product(2, 1, "Salade", "1.00", 1),
		product(3, 2, "Carottes", "1.00", 1),
		product(4, 1, "Ail", "1.00", 1),
	}
	products[3].Overrides = []models.MarketProduct{override}

	offers := buildCatalog(products, map[uint]string{1: "Ferme Dupont", 2: "Bio du Coin"})

	var names []string
	for _, o := range offers {
		names = append(names, o.VendorName+"/"+o.Name)
	}
	assert.Equal(t, []string{
		"Bio du Coin/Carottes",
		"Bio du Coin/poireaux",
		"Ferme Dupont/Ail",
		"Ferme Dupont/Salade",
	}, names)
	assert.False(t, offers[2].Available)
}
