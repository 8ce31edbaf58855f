package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jjenkins/billpulse/internal/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	UserIDHeader    = "X-User-ID"

	requestIDKey = "request_id"
	loggerKey    = "logger"
	userIDKey    = "user_id"
)

// RequestID tags every request with an ID, reusing one sent by an upstream
// proxy, and echoes it in the response headers.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Locals(requestIDKey, requestID)
		c.Set(RequestIDHeader, requestID)

		return c.Next()
	}
}

// GetRequestID returns the request ID or an empty string.
func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger stores a request-scoped logger in the context and logs each
// completed request at a level matching its status.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestLogger := log.WithRequestID(GetRequestID(c))
		c.Locals(loggerKey, requestLogger)

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.IP(),
			"user_agent":  c.Get(fiber.HeaderUserAgent),
		}
		if query := string(c.Request().URI().QueryString()); query != "" {
			fields["query"] = query
		}

		switch {
		case status >= 500:
			requestLogger.Error("Request completed with server error", nil, fields)
		case status >= 400:
			requestLogger.Warn("Request completed with client error", fields)
		default:
			requestLogger.Info("Request completed", fields)
		}

		return nil
	}
}

// GetLogger returns the request-scoped logger or nil.
func GetLogger(c *fiber.Ctx) *logger.Logger {
	if log, ok := c.Locals(loggerKey).(*logger.Logger); ok {
		return log
	}
	return nil
}

// RequireUser reads the caller's identity from the X-User-ID header.
// Authentication happens upstream; this only checks the header is a user ID.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(UserIDHeader)
		if raw == "" {
			return Unauthorized(c, "Missing "+UserIDHeader+" header")
		}
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return Unauthorized(c, "Invalid "+UserIDHeader+" header")
		}

		c.Locals(userIDKey, id)
		return c.Next()
	}
}

// CurrentUserID returns the ID stored by RequireUser.
func CurrentUserID(c *fiber.Ctx) int {
	id, _ := c.Locals(userIDKey).(int)
	return id
}

// ErrorHandler renders errors that escape handlers, including recovered
// panics and fiber's own routing errors, in the JSON error envelope.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code := ErrBadRequest
			switch fiberErr.Code {
			case fiber.StatusNotFound:
				code = ErrNotFound
			case fiber.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			}
			if fiberErr.Code >= 500 {
				code = ErrInternalServer
			}
			return writeError(c, fiberErr.Code, code, fiberErr.Message, nil)
		}

		requestLogger := GetLogger(c)
		if requestLogger == nil {
			requestLogger = log
		}
		requestLogger.Error("Unhandled error", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})

		return writeError(c, fiber.StatusInternalServerError, ErrInternalServer, "An unexpected error occurred", nil)
	}
}

// panicError turns a recovered value into an error for the error handler.
func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

// Recovery converts panics in later handlers into errors.
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
			}
		}()
		return c.Next()
	}
}
