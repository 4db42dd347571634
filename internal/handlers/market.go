package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/internal/search"
	"github.com/marchelocal/server/internal/services"
	"github.com/marchelocal/server/pkg/geocode"
)

// MarketReader is the part of services.MarketStore the handler reads through.
type MarketReader interface {
	GetByID(ctx context.Context, id uint) (*models.Market, error)
	ListVendors(ctx context.Context, marketID uint) ([]models.Vendor, error)
}

// CatalogReader lists a market's effective offers.
type CatalogReader interface {
	MarketCatalog(ctx context.Context, marketID uint) ([]services.Offer, error)
}

type MarketHandler struct {
	engine          *search.Engine
	markets         MarketReader
	catalog         CatalogReader
	geocoder        geocode.Geocoder
	defaultRadiusKm float64
}

func NewMarketHandler(engine *search.Engine, markets MarketReader, catalog CatalogReader, geocoder geocode.Geocoder, defaultRadiusKm float64) *MarketHandler {
	return &MarketHandler{
		engine:          engine,
		markets:         markets,
		catalog:         catalog,
		geocoder:        geocoder,
		defaultRadiusKm: defaultRadiusKm,
	}
}

func SetupMarketRoutes(router fiber.Router, h *MarketHandler) {
	router.Get("/", h.Search)
	router.Get("/:id", h.Get)
	router.Get("/:id/vendors", h.Vendors)
	router.Get("/:id/products", h.Products)
}

// Search godoc
// @Summary Search markets
// @Description Geographic search when lat/lng (or address) is given, text search otherwise.
// @Description Results are capped; total is the count before capping and limited tells whether the cap applied.
// @Tags markets
// @Accept json
// @Produce json
// @Param lat query number false "Latitude in decimal degrees"
// @Param lng query number false "Longitude in decimal degrees"
// @Param radius query number false "Radius in km (default 20)"
// @Param address query string false "Free-form address, geocoded to a center point"
// @Param search query string false "Fragment matched against name, town and zip prefix"
// @Param town query string false "Town fragment (used when search is empty)"
// @Param zip query string false "Zip prefix (used when search is empty)"
// @Param day query string false "Weekday token, e.g. SAMEDI"
// @Success 200 {object} search.Result
// @Failure 400 {object} ErrorResponse
// @Router /markets [get]
func (h *MarketHandler) Search(c *fiber.Ctx) error {
	params := search.Params{
		Lat:    c.Query("lat"),
		Lng:    c.Query("lng"),
		Radius: c.Query("radius"),
		Search: c.Query("search"),
		Town:   c.Query("town"),
		Zip:    c.Query("zip"),
		Day:    c.Query("day"),
	}

	// explicit coordinates win over an address
	if address := c.Query("address"); address != "" && params.Lat == "" && params.Lng == "" {
		if h.geocoder == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "Geocoding disabled"})
		}
		res, err := h.geocoder.Geocode(c.UserContext(), address)
		if err != nil {
			return respondError(c, err)
		}
		params.Lat = strconv.FormatFloat(res.Point.Lat, 'f', -1, 64)
		params.Lng = strconv.FormatFloat(res.Point.Lng, 'f', -1, 64)
	}

	req, err := search.ParseRequest(params, h.defaultRadiusKm)
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.engine.Search(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// Get godoc
// @Summary Get market by ID
// @Tags markets
// @Accept json
// @Produce json
// @Param id path int true "Market ID"
// @Success 200 {object} models.Market
// @Failure 404 {object} ErrorResponse
// @Router /markets/{id} [get]
func (h *MarketHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	market, err := h.markets.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(market)
}

// Vendors godoc
// @Summary List vendors attending a market
// @Tags markets
// @Produce json
// @Param id path int true "Market ID"
// @Success 200 {array} models.Vendor
// @Router /markets/{id}/vendors [get]
func (h *MarketHandler) Vendors(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	vendors, err := h.markets.ListVendors(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(vendors)
}

// Products godoc
// @Summary List the products offered at a market
// @Description Per-market price and stock overrides are applied.
// @Tags markets
// @Produce json
// @Param id path int true "Market ID"
// @Success 200 {array} services.Offer
// @Router /markets/{id}/products [get]
func (h *MarketHandler) Products(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.markets.GetByID(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	offers, err := h.catalog.MarketCatalog(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(offers)
}
