package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

type UserHandler struct {
	s service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{s: service}
}

func (h *UserHandler) GetUserInfo(c *fiber.Ctx) error {
	userInfo, err := h.s.GetUserInfo(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(userInfo)
}

// GetPreferences returns the preferences loaded with the session.
func (h *UserHandler) GetPreferences(c *fiber.Ctx) error {
	s := GetSession(c)
	if s.Preferences != nil {
		return c.JSON(s.Preferences)
	}

	prefs, err := h.s.Preferences(c.Context(), s.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(prefs)
}

func (h *UserHandler) UpdatePreferences(c *fiber.Ctx) error {
	var req transfer.PreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, service.ErrParamInvalid)
	}

	prefs, err := h.s.UpdatePreferences(c.Context(), GetUserID(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(prefs)
}
