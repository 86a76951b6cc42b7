package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets the standard hardening headers. frameHosts are the
// player origins the front end may embed.
func SecurityHeaders(frameHosts ...string) echo.MiddlewareFunc {
	csp := "frame-ancestors 'self'"
	if len(frameHosts) > 0 {
		csp += "; frame-src 'self' " + strings.Join(frameHosts, " ")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)

			// Catalog responses are cached server side, never by the browser.
			if strings.HasPrefix(c.Request().URL.Path, "/api") {
				h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
				h.Set("Pragma", "no-cache")
			}

			return next(c)
		}
	}
}
