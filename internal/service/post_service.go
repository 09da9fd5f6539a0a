package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/maheshrc27/postpilot/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Scheduler owns the delayed publish task of a post.
type Scheduler interface {
	Schedule(ctx context.Context, postID int64, at time.Time) error
	Cancel(ctx context.Context, postID int64) error
}

type Trigger interface {
	Trigger(ctx context.Context, postID int64) (*publish.Report, error)
}

type PostService interface {
	Create(ctx context.Context, userID int64, loc *time.Location, req *transfer.CreatePostRequest) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Get(ctx context.Context, userID, postID int64) (*transfer.PostDetail, error)
	Update(ctx context.Context, userID, postID int64, loc *time.Location, req *transfer.UpdatePostRequest) (*models.Post, error)
	Delete(ctx context.Context, userID, postID int64) error
	PublishNow(ctx context.Context, userID, postID int64) (*publish.Report, error)
	Unschedule(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db        *sql.DB
	posts     repository.PostRepository
	targets   repository.TargetRepository
	accounts  repository.SocialAccountRepository
	media     repository.MediaAssetRepository
	postMedia repository.PostMediaRepository
	store     ObjectStore
	scheduler Scheduler
	fanout    Trigger
}

func NewPostService(
	db *sql.DB,
	posts repository.PostRepository,
	targets repository.TargetRepository,
	accounts repository.SocialAccountRepository,
	media repository.MediaAssetRepository,
	postMedia repository.PostMediaRepository,
	store ObjectStore,
	scheduler Scheduler,
	fanout Trigger) PostService {
	return &postService{
		db:        db,
		posts:     posts,
		targets:   targets,
		accounts:  accounts,
		media:     media,
		postMedia: postMedia,
		store:     store,
		scheduler: scheduler,
		fanout:    fanout,
	}
}

const scheduleLayout = "2006-01-02T15:04"

// ParseSchedule reads a wall-clock time in the user's timezone. RFC3339 is
// accepted too. An empty string means no schedule.
func ParseSchedule(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(scheduleLayout, s, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid scheduled time format %q", ErrParamInvalid, s)
	}
	return &t, nil
}

// upload is a sniffed file ready to be stored.
type upload struct {
	name  string
	mime  string
	ext   string
	kind  models.MediaKind
	bytes []byte
}

func (s *postService) Create(ctx context.Context, userID int64, loc *time.Location, req *transfer.CreatePostRequest) (*models.Post, error) {
	if err := utils.ValidateDTO(req); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	scheduledAt, err := ParseSchedule(req.ScheduledAt, loc)
	if err != nil {
		return nil, err
	}

	accounts, err := s.ownedAccounts(ctx, userID, req.AccountIDs)
	if err != nil {
		return nil, err
	}

	uploads, err := readUploads(req.Files)
	if err != nil {
		return nil, err
	}
	if err := checkPlatforms(accounts, req.Content, uploads); err != nil {
		return nil, err
	}

	assets, err := s.storeUploads(ctx, userID, uploads)
	if err != nil {
		return nil, err
	}

	postType := models.PostTypeText
	switch {
	case len(assets) == 1:
		postType = models.PostTypeSingle
	case len(assets) > 1:
		postType = models.PostTypeMultiple
	}

	post := &models.Post{
		UserID:      userID,
		PostType:    postType,
		Title:       req.Title,
		Content:     req.Content,
		ScheduledAt: scheduledAt,
		Status:      publish.Resolve(publish.State{ScheduledAt: scheduledAt}),
	}

	if err := s.persist(ctx, post, accounts, assets); err != nil {
		return nil, err
	}

	if scheduledAt != nil {
		if err := s.scheduler.Schedule(ctx, post.ID, *scheduledAt); err != nil {
			// the due posts job picks it up
			slog.Error("failed to schedule post", "post_id", post.ID, "err", err)
		}
	}
	return post, nil
}

func (s *postService) ownedAccounts(ctx context.Context, userID int64, ids []int64) ([]*models.SocialAccount, error) {
	seen := make(map[int64]bool, len(ids))
	accounts := make([]*models.SocialAccount, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		acc, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if acc == nil || acc.UserID != userID {
			slog.Info("social account not owned by user", "account_id", id, "user_id", userID)
			return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, id)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func readUploads(files []*multipart.FileHeader) ([]*upload, error) {
	uploads := make([]*upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening file: %w", err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading file content: %w", err)
		}

		u, err := sniff(fh.Filename, data)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func sniff(name string, data []byte) (*upload, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("%w: %s", ErrFileNotSupported, name)
	}

	u := &upload{name: name, mime: kind.MIME.Value, ext: kind.Extension, bytes: data}
	switch {
	case filetype.IsImage(data):
		u.kind = models.MediaImage
	case filetype.IsVideo(data):
		u.kind = models.MediaVideo
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrFileNotSupported, name, kind.MIME.Value)
	}
	return u, nil
}

// checkPlatforms rejects content any selected platform cannot carry.
func checkPlatforms(accounts []*models.SocialAccount, content string, uploads []*upload) error {
	for _, acc := range accounts {
		p := acc.Platform
		if n := len([]rune(content)); n > p.CaptionLimit() {
			return fmt.Errorf("%w: %s captions are limited to %d characters", ErrParamInvalid, p, p.CaptionLimit())
		}
		if p.RequiresMedia() && len(uploads) == 0 {
			return fmt.Errorf("%w: %s needs at least one media file", ErrMediaNotAccepted, p)
		}
		for _, u := range uploads {
			limit, ok := p.MediaLimit(u.kind)
			switch {
			case !ok:
				return fmt.Errorf("%w: %s does not accept %s", ErrMediaNotAccepted, p, u.kind)
			case !limit.Allows(u.ext):
				return fmt.Errorf("%w: %s does not accept .%s files", ErrMediaNotAccepted, p, u.ext)
			case int64(len(u.bytes)) > limit.MaxBytes:
				return fmt.Errorf("%w: %s exceeds the %s size limit", ErrMediaNotAccepted, u.name, p)
			}
		}
	}
	return nil
}

func (s *postService) storeUploads(ctx context.Context, userID int64, uploads []*upload) ([]*models.MediaAsset, error) {
	assets := make([]*models.MediaAsset, 0, len(uploads))
	for _, u := range uploads {
		id, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		key := id + "." + u.ext

		url, err := s.store.Upload(ctx, key, u.bytes, u.mime)
		if err != nil {
			return nil, fmt.Errorf("error uploading file: %w", err)
		}
		assets = append(assets, &models.MediaAsset{
			UserID:   userID,
			FileName: key,
			FileType: u.mime,
			FileSize: int64(len(u.bytes)),
			FileURL:  url,
		})
	}
	return assets, nil
}

func (s *postService) persist(ctx context.Context, post *models.Post, accounts []*models.SocialAccount, assets []*models.MediaAsset) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	post.ID, err = s.posts.Create(ctx, tx, post)
	if err != nil {
		return fmt.Errorf("error creating post: %w", err)
	}

	for i, ma := range assets {
		ma.ID, err = s.media.Create(ctx, tx, ma)
		if err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
		err = s.postMedia.Create(ctx, tx, &models.PostMedia{PostID: post.ID, AssetID: ma.ID, DisplayOrder: i})
		if err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}

	post.Targets = make([]*models.Target, 0, len(accounts))
	for i, acc := range accounts {
		t := &models.Target{
			PostID:    post.ID,
			AccountID: acc.ID,
			Platform:  acc.Platform,
			Position:  i,
			Status:    models.TargetPending,
		}
		t.ID, err = s.targets.Create(ctx, tx, t)
		if err != nil {
			return fmt.Errorf("error saving target %d: %w", acc.ID, err)
		}
		post.Targets = append(post.Targets, t)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.posts.ListByUserID(ctx, userID)
}

// owned loads a post of the user; posts of other users are reported as
// missing.
func (s *postService) owned(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if postID == 0 {
		return nil, ErrParamInvalid
	}
	ok, err := s.posts.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPostNotFound
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, userID, postID int64) (*transfer.PostDetail, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	post.Targets, err = s.targets.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	media, err := s.media.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &transfer.PostDetail{Post: post, Media: media}, nil
}

func (s *postService) Update(ctx context.Context, userID, postID int64, loc *time.Location, req *transfer.UpdatePostRequest) (*models.Post, error) {
	if err := utils.ValidateDTO(req); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Dispatched() {
		return nil, repository.ErrPostDispatched
	}

	scheduledAt, err := ParseSchedule(req.ScheduledAt, loc)
	if err != nil {
		return nil, err
	}

	targets, err := s.targets.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if n := len([]rune(req.Content)); n > t.Platform.CaptionLimit() {
			return nil, fmt.Errorf("%w: %s captions are limited to %d characters", ErrParamInvalid, t.Platform, t.Platform.CaptionLimit())
		}
	}

	post.Title = req.Title
	post.Content = req.Content
	post.ScheduledAt = scheduledAt
	post.Status = publish.Resolve(publish.State{ScheduledAt: scheduledAt})
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	if err := s.scheduler.Cancel(ctx, postID); err != nil {
		slog.Error("failed to cancel publish task", "post_id", postID, "err", err)
	}
	if scheduledAt != nil {
		if err := s.scheduler.Schedule(ctx, postID, *scheduledAt); err != nil {
			slog.Error("failed to schedule post", "post_id", postID, "err", err)
		}
	}
	post.Targets = targets
	return post, nil
}

// Delete removes the post. Outcomes of a dispatch still in flight find no
// post and are discarded.
func (s *postService) Delete(ctx context.Context, userID, postID int64) error {
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return err
	}

	media, err := s.media.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}

	if err := s.scheduler.Cancel(ctx, postID); err != nil {
		slog.Error("failed to cancel publish task", "post_id", postID, "err", err)
	}
	if err := s.posts.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}

	for _, ma := range media {
		if err := s.media.Remove(ctx, ma.ID); err != nil {
			slog.Warn("failed to remove media asset", "asset_id", ma.ID, "err", err)
			continue
		}
		if err := s.store.Delete(ctx, ma.FileName); err != nil {
			slog.Warn("failed to remove media object", "key", ma.FileName, "err", err)
		}
	}
	return nil
}

// PublishNow makes the post due immediately and dispatches it.
func (s *postService) PublishNow(ctx context.Context, userID, postID int64) (*publish.Report, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Dispatched() {
		return nil, publish.ErrAlreadyTriggered
	}

	now := time.Now()
	post.ScheduledAt = &now
	post.Status = models.PostStatusScheduled
	if err := s.posts.Update(ctx, post); err != nil {
		if errors.Is(err, repository.ErrPostDispatched) {
			return nil, publish.ErrAlreadyTriggered
		}
		return nil, err
	}
	if err := s.scheduler.Cancel(ctx, postID); err != nil {
		slog.Error("failed to cancel publish task", "post_id", postID, "err", err)
	}

	return s.fanout.Trigger(context.WithoutCancel(ctx), postID)
}

// Unschedule returns the post to draft. A dispatch already in flight keeps
// running but its outcomes are discarded.
func (s *postService) Unschedule(ctx context.Context, userID, postID int64) error {
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return err
	}

	if err := s.posts.Unschedule(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	if err := s.scheduler.Cancel(ctx, postID); err != nil {
		slog.Error("failed to cancel publish task", "post_id", postID, "err", err)
	}
	return nil
}
