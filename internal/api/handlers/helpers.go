package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

// SessionKey is the Locals key the auth middleware stores the session under.
const SessionKey = "session"

func GetSession(c *fiber.Ctx) *transfer.Session {
	s, _ := c.Locals(SessionKey).(*transfer.Session)
	if s == nil {
		return &transfer.Session{}
	}
	return s
}

func GetUserID(c *fiber.Ctx) int64 {
	return GetSession(c).UserID
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.ErrParamInvalid
	}
	return id, nil
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := service.StatusOf(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(status).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
