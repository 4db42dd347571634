package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marchelocal/server/pkg/geocode"
)

type GeocodeHandler struct {
	geocoder geocode.Geocoder
}

func NewGeocodeHandler(geocoder geocode.Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

func SetupGeocodeRoutes(router fiber.Router, h *GeocodeHandler) {
	router.Get("/", h.Geocode)
}

// GeocodeResponse is a resolved address
type GeocodeResponse struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// Geocode godoc
// @Summary Resolve an address to coordinates
// @Tags geocode
// @Produce json
// @Param q query string true "Address"
// @Success 200 {object} GeocodeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /geocode [get]
func (h *GeocodeHandler) Geocode(c *fiber.Ctx) error {
	res, err := h.geocoder.Geocode(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(GeocodeResponse{
		Lat:   res.Point.Lat,
		Lng:   res.Point.Lng,
		Label: res.Label,
	})
}
