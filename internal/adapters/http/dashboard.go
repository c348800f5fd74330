package http

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed dashboard.html
var dashboardHTML []byte

// DashboardHandler serves the single-page dashboard. The page talks to
// the JSON API and the WebSocket feed; there is no server-side
// templating.
func DashboardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Cache-Control", "public, max-age=300")
		return c.Send(dashboardHTML)
	}
}
