package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

type postFixture struct {
	svc       PostService
	mock      sqlmock.Sqlmock
	posts     *fakePosts
	targets   *fakeTargets
	media     *fakeMedia
	postMedia *fakePostMedia
	store     *fakeStore
	scheduler *fakeScheduler
	fanout    *fakeTrigger
}

func newPostFixture(t *testing.T, posts ...*models.Post) *postFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	accounts := newFakeAccounts(
		&models.SocialAccount{ID: 1, UserID: 7, Platform: models.PlatformFacebook, AccountStatus: models.AccountConnected},
		&models.SocialAccount{ID: 2, UserID: 7, Platform: models.PlatformLinkedin, AccountStatus: models.AccountConnected},
		&models.SocialAccount{ID: 3, UserID: 7, Platform: models.PlatformInstagram, AccountStatus: models.AccountConnected},
		&models.SocialAccount{ID: 4, UserID: 8, Platform: models.PlatformFacebook, AccountStatus: models.AccountConnected},
	)

	f := &postFixture{
		mock:      mock,
		posts:     newFakePosts(posts...),
		targets:   newFakeTargets(),
		media:     &fakeMedia{},
		postMedia: &fakePostMedia{},
		store:     &fakeStore{},
		scheduler: newFakeScheduler(),
		fanout:    &fakeTrigger{},
	}
	f.svc = NewPostService(db, f.posts, f.targets, accounts, f.media, f.postMedia, f.store, f.scheduler, f.fanout)
	return f
}

func fileHeader(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"][0]
}

func TestCreateScheduledTextPost(t *testing.T) {
	f := newPostFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	post, err := f.svc.Create(context.Background(), 7, time.UTC, &transfer.CreatePostRequest{
		Title:       "launch",
		Content:     "we are live",
		ScheduledAt: at,
		AccountIDs:  []int64{2, 1, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, models.PostTypeText, post.PostType)
	require.Len(t, post.Targets, 2)
	assert.Equal(t, models.PlatformLinkedin, post.Targets[0].Platform)
	assert.Equal(t, 1, post.Targets[1].Position)
	assert.Contains(t, f.scheduler.scheduled, post.ID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateDraftWithImage(t *testing.T) {
	f := newPostFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	post, err := f.svc.Create(context.Background(), 7, time.UTC, &transfer.CreatePostRequest{
		Content:    "look",
		AccountIDs: []int64{3},
		Files:      []*multipart.FileHeader{fileHeader(t, "cover.png", pngBytes)},
	})
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Equal(t, models.PostTypeSingle, post.PostType)
	require.Len(t, f.store.uploaded, 1)
	assert.True(t, strings.HasSuffix(f.store.uploaded[0], ".png"))
	require.Len(t, f.postMedia.links, 1)
	assert.Equal(t, "image/png", f.media.assets[0].FileType)
	assert.Empty(t, f.scheduler.scheduled)
}

func TestCreateRejections(t *testing.T) {
	tests := []struct {
		name string
		req  *transfer.CreatePostRequest
		want error
	}{
		{"no accounts", &transfer.CreatePostRequest{Content: "x"}, nil},
		{"foreign account", &transfer.CreatePostRequest{Content: "x", AccountIDs: []int64{4}}, ErrAccountNotFound},
		{"instagram without media", &transfer.CreatePostRequest{Content: "x", AccountIDs: []int64{1, 3}}, ErrMediaNotAccepted},
		{"bad schedule", &transfer.CreatePostRequest{Content: "x", AccountIDs: []int64{1}, ScheduledAt: "tomorrow"}, ErrParamInvalid},
		{"caption too long", &transfer.CreatePostRequest{Content: strings.Repeat("a", 3001), AccountIDs: []int64{2}}, ErrParamInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPostFixture(t)
			_, err := f.svc.Create(context.Background(), 7, time.UTC, tt.req)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestSniffRejectsUnknownFiles(t *testing.T) {
	_, err := sniff("notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, ErrFileNotSupported)

	u, err := sniff("a.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, models.MediaImage, u.kind)
	assert.Equal(t, "png", u.ext)
}

func TestParseSchedule(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	at, err := ParseSchedule("2026-05-01T09:30", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 4, 0, 0, 0, time.UTC), at.UTC())

	at, err = ParseSchedule("", loc)
	require.NoError(t, err)
	assert.Nil(t, at)

	_, err = ParseSchedule("05/01/2026", loc)
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func ownedPost(id int64) *models.Post {
	at := time.Now().Add(time.Hour)
	return &models.Post{ID: id, UserID: 7, Content: "hello", ScheduledAt: &at, Status: models.PostStatusScheduled}
}

func TestUpdateReschedules(t *testing.T) {
	f := newPostFixture(t, ownedPost(1))

	post, err := f.svc.Update(context.Background(), 7, 1, time.UTC, &transfer.UpdatePostRequest{Content: "edited"})
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Nil(t, post.ScheduledAt)
	assert.Equal(t, []int64{1}, f.scheduler.cancelled)
	assert.Empty(t, f.scheduler.scheduled)
}

func TestUpdateRefusesDispatchedPost(t *testing.T) {
	p := ownedPost(1)
	now := time.Now()
	p.DispatchStartedAt = &now
	f := newPostFixture(t, p)

	_, err := f.svc.Update(context.Background(), 7, 1, time.UTC, &transfer.UpdatePostRequest{Content: "edited"})
	assert.ErrorIs(t, err, repository.ErrPostDispatched)
}

func TestForeignPostIsNotFound(t *testing.T) {
	f := newPostFixture(t, ownedPost(1))

	_, err := f.svc.Get(context.Background(), 8, 1)
	assert.ErrorIs(t, err, ErrPostNotFound)

	err = f.svc.Delete(context.Background(), 8, 1)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Empty(t, f.posts.removed)
}

func TestDeleteRemovesMedia(t *testing.T) {
	f := newPostFixture(t, ownedPost(1))
	f.media.assets = []*models.MediaAsset{{ID: 5, FileName: "abc.png"}}

	require.NoError(t, f.svc.Delete(context.Background(), 7, 1))

	assert.Equal(t, []int64{1}, f.posts.removed)
	assert.Equal(t, []int64{5}, f.media.removed)
	assert.Equal(t, []string{"abc.png"}, f.store.deleted)
	assert.Equal(t, []int64{1}, f.scheduler.cancelled)
}

func TestPublishNowTriggersDetached(t *testing.T) {
	f := newPostFixture(t, ownedPost(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := f.svc.PublishNow(ctx, 7, 1)
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusPublished, report.Status)
	assert.Equal(t, []int64{1}, f.fanout.triggered)
	assert.NoError(t, f.fanout.ctxErr)
	require.Len(t, f.posts.updated, 1)
	assert.False(t, f.posts.updated[0].ScheduledAt.After(time.Now()))
}

func TestPublishNowAlreadyDispatched(t *testing.T) {
	p := ownedPost(1)
	now := time.Now()
	p.DispatchStartedAt = &now
	f := newPostFixture(t, p)

	_, err := f.svc.PublishNow(context.Background(), 7, 1)
	assert.ErrorIs(t, err, publish.ErrAlreadyTriggered)
	assert.Empty(t, f.fanout.triggered)
}

func TestUnschedule(t *testing.T) {
	f := newPostFixture(t, ownedPost(1))
	require.NoError(t, f.svc.Unschedule(context.Background(), 7, 1))
	assert.Equal(t, []int64{1}, f.posts.unscheduled)
	assert.Equal(t, []int64{1}, f.scheduler.cancelled)

	f.posts.unscheduleFn = func(id int64) error { return repository.ErrNotFound }
	assert.ErrorIs(t, f.svc.Unschedule(context.Background(), 7, 1), ErrPostNotFound)

	f.posts.unscheduleFn = func(id int64) error { return repository.ErrPostDispatched }
	err := f.svc.Unschedule(context.Background(), 7, 1)
	assert.True(t, errors.Is(err, repository.ErrPostDispatched))
	assert.Equal(t, 409, StatusOf(err))
}
