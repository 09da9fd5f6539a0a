package transfer

import (
	"mime/multipart"

	"github.com/maheshrc27/postpilot/internal/models"
)

type CreatePostRequest struct {
	Title       string                  `form:"title" validate:"max=100"`
	Content     string                  `form:"content" validate:"max=63206"`
	ScheduledAt string                  `form:"scheduled_at"`
	AccountIDs  []int64                 `form:"account_ids" validate:"required,min=1,max=10,dive,gt=0"`
	Files       []*multipart.FileHeader `form:"-" validate:"max=10"`
}

type UpdatePostRequest struct {
	Title       string `json:"title" validate:"max=100"`
	Content     string `json:"content" validate:"max=63206"`
	ScheduledAt string `json:"scheduled_at"`
}

type PostDetail struct {
	*models.Post
	Media []*models.MediaAsset `json:"media"`
}
