package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marchelocal/server/internal/middleware"
	"github.com/marchelocal/server/internal/services"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func SetupUserRoutes(router fiber.Router, h *UserHandler) {
	router.Get("/me", h.GetMe)
	router.Put("/me", h.UpdateMe)
	router.Delete("/me", h.DeleteMe)
}

// GetMe godoc
// @Summary Get current user info
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.service.GetByID(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// UpdateMe godoc
// @Summary Update current user info
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.UpdateUserRequest true "Update data"
// @Success 200 {object} models.User
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var req services.UpdateUserRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	user, err := h.service.Update(c.UserContext(), middleware.UserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// DeleteMe godoc
// @Summary Deactivate current user
// @Tags users
// @Security BearerAuth
// @Success 204
// @Router /users/me [delete]
func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
