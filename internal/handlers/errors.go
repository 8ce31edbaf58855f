package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the error envelope.
const (
	ErrNotFound       = "NOT_FOUND"
	ErrBadRequest     = "BAD_REQUEST"
	ErrUnauthorized   = "UNAUTHORIZED"
	ErrForbidden      = "FORBIDDEN"
	ErrConflict       = "CONFLICT"
	ErrUnprocessable  = "UNPROCESSABLE_ENTITY"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func writeError(c *fiber.Ctx, status int, code, message string, details map[string]interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: GetRequestID(c),
		},
	})
}

func warn(c *fiber.Ctx, msg string, fields map[string]interface{}) {
	log := GetLogger(c)
	if log == nil {
		return
	}
	fields["path"] = c.Path()
	log.Warn(msg, fields)
}

// NotFound sends a 404 response.
func NotFound(c *fiber.Ctx, message string) error {
	warn(c, "Resource not found", map[string]interface{}{"message": message})
	return writeError(c, fiber.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest sends a 400 response with optional details.
func BadRequest(c *fiber.Ctx, message string, details map[string]interface{}) error {
	fields := map[string]interface{}{"message": message}
	if details != nil {
		fields["details"] = details
	}
	warn(c, "Bad request", fields)
	return writeError(c, fiber.StatusBadRequest, ErrBadRequest, message, details)
}

// Unauthorized sends a 401 response.
func Unauthorized(c *fiber.Ctx, message string) error {
	warn(c, "Unauthorized request", map[string]interface{}{"message": message})
	return writeError(c, fiber.StatusUnauthorized, ErrUnauthorized, message, nil)
}

// Forbidden sends a 403 response.
func Forbidden(c *fiber.Ctx, message string) error {
	warn(c, "Forbidden request", map[string]interface{}{"message": message})
	return writeError(c, fiber.StatusForbidden, ErrForbidden, message, nil)
}

// Conflict sends a 409 response.
func Conflict(c *fiber.Ctx, message string) error {
	warn(c, "Conflicting request", map[string]interface{}{"message": message})
	return writeError(c, fiber.StatusConflict, ErrConflict, message, nil)
}

// Unprocessable sends a 422 response for requests that are well formed but
// not allowed in the caller's current state.
func Unprocessable(c *fiber.Ctx, message string) error {
	warn(c, "Unprocessable request", map[string]interface{}{"message": message})
	return writeError(c, fiber.StatusUnprocessableEntity, ErrUnprocessable, message, nil)
}

// InternalServerError logs err and sends a generic 500 response. The error
// itself is never sent to the client.
func InternalServerError(c *fiber.Ctx, message string, err error) error {
	if log := GetLogger(c); log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"message": message,
			"path":    c.Path(),
			"method":  c.Method(),
		})
	}
	return writeError(c, fiber.StatusInternalServerError, ErrInternalServer, message, nil)
}

// ValidationError sends a 400 response with one message per invalid field.
func ValidationError(c *fiber.Ctx, validationErrors validator.ValidationErrors) error {
	details := make(map[string]interface{})
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}

	warn(c, "Validation error", map[string]interface{}{"fields": details})
	return writeError(c, fiber.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "len":
		return "Must have length of " + err.Param()
	case "numeric":
		return "Must contain only digits"
	case "oneof":
		return "Must be one of: " + err.Param()
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
