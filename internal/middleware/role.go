package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireAdmin returns a middleware function that enforces that the
// authenticated user carries the admin flag in their token.  If the
// flag is missing or false, the request is aborted with a 403
// Forbidden response.  It assumes JWTAuth has stored the flag in the
// context under the key "admin".
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			admin, ok := c.Get("admin").(bool)
			if !ok || !admin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
