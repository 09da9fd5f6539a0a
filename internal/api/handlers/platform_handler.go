package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/service"
)

type PlatformHandler struct {
	ps          service.PlatformService
	frontendURL string
}

func NewPlatformHandler(ps service.PlatformService, frontendURL string) *PlatformHandler {
	return &PlatformHandler{
		ps:          ps,
		frontendURL: frontendURL,
	}
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	authURL, err := h.ps.AuthURL(c.Context(), GetUserID(c), c.Params("platform"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

// CallbackHandler lands the user back on the dashboard; failures are passed
// along in the error query parameter.
func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	target := h.frontendURL + "/dashboard/accounts"

	if reason := c.Query("error"); reason != "" {
		return c.Redirect(target+"?error="+url.QueryEscape(reason), fiber.StatusTemporaryRedirect)
	}

	_, err := h.ps.Callback(c.Context(), c.Params("platform"), c.Query("state"), c.Query("code"))
	if err != nil {
		if service.StatusOf(err) >= fiber.StatusInternalServerError {
			return c.Redirect(target+"?error=connect_failed", fiber.StatusTemporaryRedirect)
		}
		return errorResponse(c, err)
	}
	return c.Redirect(target, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accounts, err := h.ps.List(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(accounts)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	accountID, err := paramID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.ps.Delete(c.Context(), GetUserID(c), accountID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
