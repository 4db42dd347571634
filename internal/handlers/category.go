package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marchelocal/server/internal/services"
)

type CategoryHandler struct {
	service *services.CategoryService
}

func NewCategoryHandler(service *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

func SetupCategoryRoutes(router fiber.Router, h *CategoryHandler) {
	router.Get("/", h.List)
}

// List godoc
// @Summary List product categories
// @Tags categories
// @Accept json
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.service.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(categories)
}
