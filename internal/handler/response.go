package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

// RequestValidator adapts validator.v10 to echo.Validator
type RequestValidator struct {
	validate *validator.Validate
}

// NewValidator returns the validator installed on the echo instance
func NewValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// normalizer is implemented by request types that clean up input, such as
// trimming emails, before validation
type normalizer interface {
	normalize()
}

// bind decodes and validates the request body, writing a 400 response on failure.
// It reports whether the handler should continue.
func bind(c echo.Context, req interface{}) (bool, error) {
	log := logger.FromEcho(c)

	if err := c.Bind(req); err != nil {
		log.Warn("Invalid request data", zap.Error(err))
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if n, ok := req.(normalizer); ok {
		n.normalize()
	}

	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Warn("Request validation failed", zap.Error(err))
			return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}

		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Namespace()] = formatValidationError(fe)
		}
		log.Warn("Request validation failed", zap.Any("fields", details))
		return false, c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "Validation failed",
			"details": details,
		})
	}

	return true, nil
}

// formatValidationError formats validation errors into user-friendly messages
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Minimum is %s", err.Param())
	case "max":
		return fmt.Sprintf("Maximum is %s", err.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", err.Param())
	default:
		return fmt.Sprintf("Validation failed on %s", err.Tag())
	}
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// internalError logs err and returns the generic 500 body with the error message attached
func internalError(c echo.Context, msg string, err error) error {
	logger.FromEcho(c).Error(msg, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   msg,
		"message": err.Error(),
	})
}
