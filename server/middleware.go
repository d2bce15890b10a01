package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shophub/shophub/logging"
)

// requestLogger logs one line per request after the handler chain
// finishes. Errors still flow to the app error handler.
func requestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.Info("%s %s status=%d duration=%s",
			c.Method(), c.OriginalURL(),
			c.Response().StatusCode(), time.Since(start),
		)

		return err
	}
}
