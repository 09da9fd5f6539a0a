package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/maheshrc27/postpilot/internal/repository"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*models.SocialAccount
	created  []*models.SocialAccount
	removed  []int64
	expired  []int64
}

func newFakeAccounts(accs ...*models.SocialAccount) *fakeAccounts {
	f := &fakeAccounts{accounts: make(map[int64]*models.SocialAccount)}
	for _, a := range accs {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.accounts) + 100)
	c := *sa
	c.ID = id
	f.accounts[id] = &c
	f.created = append(f.created, &c)
	return id, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (f *fakeAccounts) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SocialAccount
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccounts) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	return ok && a.UserID == userID, nil
}

func (f *fakeAccounts) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.AccessToken != oldAccessToken {
		return repository.ErrTokenChanged
	}
	c := *sa
	f.accounts[id] = &c
	return nil
}

func (f *fakeAccounts) MarkExpired(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.AccountStatus = models.AccountExpired
	}
	f.expired = append(f.expired, id)
	return nil
}

func (f *fakeAccounts) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, id)
	f.removed = append(f.removed, id)
	return nil
}

type fakePosts struct {
	mu           sync.Mutex
	posts        map[int64]*models.Post
	updated      []*models.Post
	unscheduled  []int64
	removed      []int64
	unscheduleFn func(id int64) error
}

func newFakePosts(posts ...*models.Post) *fakePosts {
	f := &fakePosts{posts: make(map[int64]*models.Post)}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakePosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f *fakePosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.posts) + 1)
	c := *post
	c.ID = id
	f.posts[id] = &c
	return id, nil
}

func (f *fakePosts) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePosts) ListDue(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	return nil, nil
}

func (f *fakePosts) Update(ctx context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.posts[post.ID]; ok && cur.Dispatched() {
		return repository.ErrPostDispatched
	}
	c := *post
	f.posts[post.ID] = &c
	f.updated = append(f.updated, &c)
	return nil
}

func (f *fakePosts) Unschedule(ctx context.Context, id int64) error {
	if f.unscheduleFn != nil {
		return f.unscheduleFn(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unscheduled = append(f.unscheduled, id)
	return nil
}

func (f *fakePosts) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	return ok && p.UserID == userID, nil
}

func (f *fakePosts) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	f.removed = append(f.removed, id)
	return nil
}

type fakeTargets struct {
	mu      sync.Mutex
	targets map[int64][]*models.Target
}

func newFakeTargets() *fakeTargets {
	return &fakeTargets{targets: make(map[int64][]*models.Target)}
}

func (f *fakeTargets) Create(ctx context.Context, tx *sql.Tx, t *models.Target) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *t
	c.ID = t.PostID*100 + int64(t.Position)
	f.targets[t.PostID] = append(f.targets[t.PostID], &c)
	return c.ID, nil
}

func (f *fakeTargets) ListByPostID(ctx context.Context, postID int64) ([]*models.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targets[postID], nil
}

type fakeMedia struct {
	mu      sync.Mutex
	assets  []*models.MediaAsset
	removed []int64
}

func (f *fakeMedia) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets = append(f.assets, ma)
	return int64(len(f.assets)), nil
}

func (f *fakeMedia) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, nil
}

func (f *fakeMedia) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assets, nil
}

func (f *fakeMedia) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

type fakePostMedia struct {
	links []*models.PostMedia
}

func (f *fakePostMedia) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	f.links = append(f.links, pm)
	return nil
}

type fakeStore struct {
	uploaded []string
	deleted  []string
}

func (s *fakeStore) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	s.uploaded = append(s.uploaded, key)
	return "https://cdn.postpilot.test/" + key, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeScheduler struct {
	scheduled map[int64]time.Time
	cancelled []int64
	err       error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[int64]time.Time)}
}

func (s *fakeScheduler) Schedule(ctx context.Context, postID int64, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.scheduled[postID] = at
	return nil
}

func (s *fakeScheduler) Cancel(ctx context.Context, postID int64) error {
	s.cancelled = append(s.cancelled, postID)
	delete(s.scheduled, postID)
	return nil
}

type fakeTrigger struct {
	triggered []int64
	ctxErr    error
}

func (f *fakeTrigger) Trigger(ctx context.Context, postID int64) (*publish.Report, error) {
	f.triggered = append(f.triggered, postID)
	f.ctxErr = ctx.Err()
	return &publish.Report{PostID: postID, Status: models.PostStatusPublished}, nil
}
