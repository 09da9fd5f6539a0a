package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/generate"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

type Generator interface {
	GenerateText(ctx context.Context, prompt string, p models.Platform) (generate.Generated, error)
	GenerateImage(ctx context.Context, prompt string, style generate.Style, size generate.Size) (generate.Generated, error)
}

type GenerateHandler struct {
	g Generator
}

func NewGenerateHandler(g Generator) *GenerateHandler {
	return &GenerateHandler{g: g}
}

func (h *GenerateHandler) Text(c *fiber.Ctx) error {
	var req transfer.GenerateTextRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, service.ErrParamInvalid)
	}
	if err := utils.ValidateDTO(&req); err != nil {
		return errorResponse(c, err)
	}

	p, err := models.ParsePlatform(req.Platform)
	if err != nil {
		return errorResponse(c, fmt.Errorf("%w: %v", generate.ErrInvalidRequest, err))
	}

	out, err := h.g.GenerateText(c.Context(), req.Prompt, p)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

func (h *GenerateHandler) Image(c *fiber.Ctx) error {
	var req transfer.GenerateImageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, service.ErrParamInvalid)
	}
	if err := utils.ValidateDTO(&req); err != nil {
		return errorResponse(c, err)
	}

	style, err := generate.ParseStyle(req.Style)
	if err != nil {
		return errorResponse(c, err)
	}
	size, err := generate.ParseSize(req.Size)
	if err != nil {
		return errorResponse(c, err)
	}

	out, err := h.g.GenerateImage(c.Context(), req.Prompt, style, size)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}
