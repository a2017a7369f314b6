package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dawamr/dramabox-astro/logging"
)

// RequestLogger logs every inbound request with status and latency.
func RequestLogger(log *logging.Logger) fiber.Handler {
	httpLog := log.WithSource("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		data := map[string]interface{}{
			"status":     status,
			"ip":         c.IP(),
			"durationMs": time.Since(start).Milliseconds(),
		}
		msg := fmt.Sprintf("%s %s", c.Method(), c.Path())
		if status >= 500 {
			httpLog.Error(msg, data)
		} else if status >= 400 {
			httpLog.Warn(msg, data)
		} else {
			httpLog.Info(msg, data)
		}
		return err
	}
}
