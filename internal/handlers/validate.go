package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseBody decodes the JSON body into req and validates its struct tags
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return validate.Struct(req)
}

// bind is parseBody with the error already written to the response
func bind(c *fiber.Ctx, req interface{}) (bool, error) {
	err := parseBody(c, req)
	if err == nil {
		return true, nil
	}
	if fe, ok := err.(*fiber.Error); ok {
		return false, c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message})
	}
	return false, respondError(c, err)
}
