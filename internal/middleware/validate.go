package middleware

import (
	"errors"

	"github.com/bilgisen/autopress/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ValidatedKey is the c.Locals key holding the parsed request
const ValidatedKey = "validated"

// Validator wraps a shared validator instance
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate validates s against its struct tags
func (v *Validator) Validate(s any) error {
	return v.validate.Struct(s)
}

var defaultValidator = NewValidator()

// ValidateBody parses the JSON body into a fresh T per request, validates
// it and stores the *T in c.Locals(ValidatedKey).
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.BodyParser(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
				"msg":     err.Error(),
			})
		}

		if err := defaultValidator.Validate(req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"error":   "Validation failed",
				"fields":  FieldErrors(err),
			})
		}

		c.Locals(ValidatedKey, req)
		return c.Next()
	}
}

// Validated returns the request stored by ValidateBody
func Validated[T any](c *fiber.Ctx) *T {
	req, _ := c.Locals(ValidatedKey).(*T)
	return req
}

// FieldErrors maps each failing field to the tag it failed
func FieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}

// ErrorHandler turns errors that escape a handler into a JSON body
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		logger.Get().Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
