package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/middleware"
	"github.com/marchelocal/server/internal/search"
	"github.com/marchelocal/server/internal/services"
	"github.com/marchelocal/server/pkg/geocode"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// ErrorHandler is the custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		logger.GetLogger("http").Errorw("Unhandled error",
			"path", c.Path(), "request_id", middleware.GetRequestID(c), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error: message,
	})
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var details []string

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		status, message = fiber.StatusBadRequest, "Validation failed"
		for _, fe := range verrs {
			details = append(details, fe.Field()+": "+fe.Tag())
		}
	case search.IsBadRequest(err), errors.Is(err, services.ErrInvalidInput):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrNotFound):
		status, message = fiber.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = fiber.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrNotVendor), errors.Is(err, services.ErrInactiveUser):
		status, message = fiber.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrConflict):
		status, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, geocode.ErrNotFound), errors.Is(err, geocode.ErrEmptyAddress):
		status, message = fiber.StatusBadRequest, err.Error()
	default:
		var apiErr *geocode.APIError
		if errors.As(err, &apiErr) {
			status, message = fiber.StatusBadGateway, "Geocoder unavailable"
		}
		logger.GetLogger("http").Errorw("Request failed",
			"method", c.Method(), "path", c.Path(),
			"request_id", middleware.GetRequestID(c), "error", err)
	}

	return c.Status(status).JSON(ErrorResponse{Error: message, Details: details})
}

// paramID parses a positive integer route parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}
