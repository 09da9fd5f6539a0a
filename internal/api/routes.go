package api

import (
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/api/handlers"
	"github.com/maheshrc27/postpilot/internal/api/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Keys       *handlers.ApiKeyHandler
	Platform   *handlers.PlatformHandler
	Post       *handlers.PostHandler
	Generate   *handlers.GenerateHandler
	Health     *handlers.HealthHandler
	Middleware *middleware.AuthMiddleware
}

func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error(err.Error(), "path", c.Path())
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
}

func Register(app *fiber.App, h *Handlers) {
	auth := h.Middleware.AuthMiddleware()

	app.Get("/healthz", h.Health.Health)

	app.Get("/login", h.Auth.Login)
	app.Get("/login/callback", h.Auth.LoginCallbackHandler)
	app.Post("/logout", h.Auth.Logout)

	app.Get("/auth/:platform", auth, h.Platform.AddSocialAccount)
	app.Get("/auth/:platform/callback", h.Platform.CallbackHandler)

	api := app.Group("/api", auth)

	api.Get("/user/info", h.User.GetUserInfo)
	api.Get("/preferences", h.User.GetPreferences)
	api.Put("/preferences", h.User.UpdatePreferences)

	api.Post("/api_keys", h.Keys.CreateApiKey)
	api.Get("/api_keys", h.Keys.ListKeys)
	api.Delete("/api_keys/:id", h.Keys.RemoveAPIKey)

	api.Post("/posts", h.Post.CreatePost)
	api.Get("/posts", h.Post.ListPosts)
	api.Get("/posts/:id", h.Post.GetPost)
	api.Put("/posts/:id", h.Post.UpdatePost)
	api.Delete("/posts/:id", h.Post.RemovePost)
	api.Post("/posts/:id/publish", h.Post.PublishNow)
	api.Post("/posts/:id/unschedule", h.Post.Unschedule)

	api.Get("/accounts", h.Platform.ListSocialAccounts)
	api.Delete("/accounts/:id", h.Platform.DeleteSocialAccount)

	api.Post("/generate/text", h.Generate.Text)
	api.Post("/generate/image", h.Generate.Image)
}
