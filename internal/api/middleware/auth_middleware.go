package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/api/handlers"
	"github.com/maheshrc27/postpilot/internal/service"
)

type AuthMiddleware struct {
	s          service.AuthService
	cookieName string
}

func NewAuthMiddleware(cookieName string, service service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{s: service, cookieName: cookieName}
}

// AuthMiddleware resolves the caller from the api_key query parameter or the
// session cookie and stores the session, preferences included, in Locals.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cookieName)
		apiKey := c.Query("api_key")
		if apiKey == "" {
			apiKey = c.Get("X-API-Key")
		}

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing API key or session cookie",
			})
		}

		session, err := m.s.Authenticate(c.Context(), tokenString, apiKey)
		if err != nil {
			if service.StatusOf(err) != fiber.StatusUnauthorized {
				slog.Error("failed to load session", "err", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "something went wrong",
				})
			}
			if apiKey == "" {
				c.ClearCookie(m.cookieName)
			}
			slog.Info("authentication failed", "path", c.Path(), "err", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired credentials",
			})
		}

		c.Locals(handlers.SessionKey, session)
		return c.Next()
	}
}
