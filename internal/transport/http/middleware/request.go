package middleware

import (
	"context"
	"time"

	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ctxKey string

const RequestIDKey ctxKey = "request_id"

// RequestID reuses the inbound header value or generates one, and echoes it
// on the response.
func RequestID(header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqID string
		if header != "" {
			reqID = c.Get(header)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals(RequestIDKey, reqID)
		c.SetUserContext(context.WithValue(c.UserContext(), RequestIDKey, reqID))
		if header != "" {
			c.Set(header, reqID)
		}
		return c.Next()
	}
}

func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}

// RequestRecorder receives one observation per handled request.
type RequestRecorder interface {
	RecordRequest(method, route string, status int, d time.Duration)
}

// AccessLog logs every request and feeds rec when it is non-nil.
func AccessLog(log *logger.Logger, rec RequestRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Let the error handler write the status before it is read.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		routePath := ""
		if c.Route() != nil {
			routePath = c.Route().Path
		}
		status := c.Response().StatusCode()
		latency := time.Since(start)

		log.Infow("http_access",
			"method", c.Method(),
			"path", c.Path(),
			"route", routePath,
			"query", string(c.Request().URI().QueryString()),
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.IP(),
			"user_agent", string(c.Request().Header.UserAgent()),
			"request_id", RequestIDFrom(c),
			"req_bytes", len(c.Request().Body()),
			"resp_bytes", len(c.Response().Body()),
		)
		if rec != nil {
			rec.RecordRequest(c.Method(), routePath, status, latency)
		}
		return err
	}
}
