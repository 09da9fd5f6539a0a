package handlers

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		slog.Info(err.Error())
		return errorResponse(c, service.ErrParamInvalid)
	}

	accountIDs, err := parseIDs(form.Value["account_ids"])
	if err != nil {
		return errorResponse(c, err)
	}

	req := &transfer.CreatePostRequest{
		Title:       c.FormValue("title"),
		Content:     c.FormValue("content"),
		ScheduledAt: c.FormValue("scheduled_at"),
		AccountIDs:  accountIDs,
		Files:       form.File["files"],
	}

	session := GetSession(c)
	post, err := h.s.Create(c.Context(), session.UserID, session.Location(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// parseIDs accepts repeated fields as well as comma separated lists.
func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, service.ErrParamInvalid
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	post, err := h.s.Get(c.Context(), GetUserID(c), postID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	var req transfer.UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, service.ErrParamInvalid)
	}

	session := GetSession(c)
	post, err := h.s.Update(c.Context(), session.UserID, postID, session.Location(), &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), postID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	report, err := h.s.PublishNow(c.Context(), GetUserID(c), postID)
	if err != nil {
		if report == nil {
			return errorResponse(c, err)
		}
		// outcomes were produced but could not all be recorded
		slog.Error("publish report incomplete", "post_id", postID, "err", err)
	}
	return c.JSON(report)
}

func (h *PostHandler) Unschedule(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.s.Unschedule(c.Context(), GetUserID(c), postID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
