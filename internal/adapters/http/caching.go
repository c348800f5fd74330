package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint. Completed job data is immutable; in-flight jobs are not.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.Contains(path, "/artifacts/"):
			ttl = "public, max-age=86400" // Artifacts never change once written

		case strings.HasSuffix(path, "/manifest"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/jobs/"):
			ttl = "public, max-age=5" // State may still be moving

		case path == "/v1/jobs":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}
		return err
	}
}
