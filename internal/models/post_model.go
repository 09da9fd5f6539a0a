package models

import "time"

type PostStatus string

const (
	PostStatusDraft              PostStatus = "draft"
	PostStatusScheduled          PostStatus = "scheduled"
	PostStatusPublishing         PostStatus = "publishing"
	PostStatusPublished          PostStatus = "published"
	PostStatusFailed             PostStatus = "failed"
	PostStatusPartiallyPublished PostStatus = "partially_published"
)

const (
	PostTypeText     = "text"
	PostTypeSingle   = "single"
	PostTypeMultiple = "multiple"
)

type Post struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"user_id"`
	PostType          string     `db:"post_type" json:"post_type"`
	Title             string     `db:"title" json:"title"`
	Content           string     `db:"content" json:"content"`
	ScheduledAt       *time.Time `db:"scheduled_at" json:"scheduled_at"`
	DispatchStartedAt *time.Time `db:"dispatch_started_at" json:"dispatch_started_at,omitempty"`
	DispatchCycle     int        `db:"dispatch_cycle" json:"-"`
	Status            PostStatus `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	Targets           []*Target  `db:"-" json:"targets,omitempty"`
}

// Dispatched reports whether publishing has started for the current cycle.
func (p *Post) Dispatched() bool {
	return p.DispatchStartedAt != nil
}

type MediaAsset struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"-"`
	FileName     string    `db:"file_name" json:"file_name"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	FileURL      string    `db:"file_url" json:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Kind derives the media kind from the stored MIME type.
func (m *MediaAsset) Kind() MediaKind {
	if len(m.FileType) >= 5 && m.FileType[:5] == "video" {
		return MediaVideo
	}
	return MediaImage
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}
