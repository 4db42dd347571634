package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/services"
)

type InternalHandler struct {
	markets *services.MarketStore
}

func NewInternalHandler(markets *services.MarketStore) *InternalHandler {
	return &InternalHandler{markets: markets}
}

// SetupInternalRoutes mounts admin routes. The router must already check the API key.
func SetupInternalRoutes(router fiber.Router, h *InternalHandler) {
	router.Post("/markets", h.UpsertMarkets)
}

// UpsertMarketsRequest is a batch of markets keyed by external reference
type UpsertMarketsRequest struct {
	Markets []services.UpsertMarketRequest `json:"markets" validate:"required,min=1,max=500,dive"`
}

// UpsertMarkets godoc
// @Summary Create or update markets with their openings
// @Description Openings of every listed market are replaced. The batch is applied atomically.
// @Tags internal
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Internal API Key"
// @Param request body UpsertMarketsRequest true "Markets"
// @Success 200 {object} services.UpsertResult
// @Failure 400 {object} ErrorResponse
// @Router /internal/markets [post]
func (h *InternalHandler) UpsertMarkets(c *fiber.Ctx) error {
	var req UpsertMarketsRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	result, err := h.markets.Upsert(c.UserContext(), req.Markets)
	if err != nil {
		return respondError(c, err)
	}

	logger.GetLogger("internal").Infow("Markets upserted",
		"created", result.Created, "updated", result.Updated)

	return c.JSON(result)
}
