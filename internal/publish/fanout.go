package publish

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postpilot/internal/lock"
	"github.com/maheshrc27/postpilot/internal/models"
	"golang.org/x/sync/errgroup"
)

// Claim is a post that was atomically moved into dispatch.
type Claim struct {
	Post    *models.Post
	Targets []*models.Target
	Media   []*models.MediaAsset
}

// Completion records one target outcome for the dispatch cycle it belongs to.
type Completion struct {
	PostID  int64
	Cycle   int
	Outcome Outcome
	At      time.Time
}

// Store persists dispatch state. CompleteTarget must update the target and the
// post status in one atomic step and return the resulting post status.
type Store interface {
	ClaimForDispatch(ctx context.Context, postID int64, now time.Time) (*Claim, error)
	CompleteTarget(ctx context.Context, c *Completion) (models.PostStatus, error)
}

// AccountStore returns nil, nil for accounts that no longer exist.
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
}

type Report struct {
	PostID    int64             `json:"post_id"`
	Status    models.PostStatus `json:"status"`
	Outcomes  []Outcome         `json:"outcomes"`
	Discarded bool              `json:"discarded"`
}

type dispatchKey struct {
	targetID int64
	cycle    int
}

type Fanout struct {
	store       Store
	accounts    AccountStore
	dispatcher  *Dispatcher
	concurrency int
	posts       *lock.Keyed
	now         func() time.Time

	mu         sync.Mutex
	triggering map[int64]struct{}
	dispatched map[dispatchKey]struct{}
}

func NewFanout(store Store, accounts AccountStore, dispatcher *Dispatcher, concurrency int) *Fanout {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Fanout{
		store:       store,
		accounts:    accounts,
		dispatcher:  dispatcher,
		concurrency: concurrency,
		posts:       lock.NewKeyed(),
		now:         time.Now,
		triggering:  make(map[int64]struct{}),
		dispatched:  make(map[dispatchKey]struct{}),
	}
}

// Trigger dispatches every target of a due post exactly once. A second trigger
// for the same post, concurrent or later, is rejected with ErrAlreadyTriggered.
func (f *Fanout) Trigger(ctx context.Context, postID int64) (*Report, error) {
	if !f.begin(postID) {
		return nil, ErrAlreadyTriggered
	}
	defer f.end(postID)

	claim, err := f.store.ClaimForDispatch(ctx, postID, f.now())
	if err != nil {
		return nil, err
	}

	post := claim.Post
	slog.Info("dispatching post", "post_id", post.ID, "targets", len(claim.Targets), "cycle", post.DispatchCycle)

	report := &Report{
		PostID:   post.ID,
		Status:   models.PostStatusPublishing,
		Outcomes: make([]Outcome, len(claim.Targets)),
	}

	// bookkeeping must land even when the caller gives up
	bookCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, t := range claim.Targets {
		i, t := i, t
		g.Go(func() error {
			if !f.markDispatched(t.ID, post.DispatchCycle) {
				slog.Error(ErrDuplicateDispatch.Error(), "post_id", post.ID, "target_id", t.ID)
				report.Outcomes[i] = failed(t.ID, models.FailureInternal, ErrDuplicateDispatch.Error())
				return nil
			}
			defer f.unmarkDispatched(t.ID, post.DispatchCycle)

			out := f.dispatchTarget(ctx, claim, t)
			report.Outcomes[i] = out
			return f.complete(bookCtx, post, out, report)
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	slog.Info("post dispatch finished", "post_id", post.ID, "status", report.Status, "discarded", report.Discarded)
	return report, nil
}

func (f *Fanout) dispatchTarget(ctx context.Context, claim *Claim, t *models.Target) Outcome {
	var acc *models.SocialAccount
	if t.AccountID != 0 {
		a, err := f.accounts.GetByID(ctx, t.AccountID)
		if err != nil {
			slog.Error("loading target account", "target_id", t.ID, "account_id", t.AccountID, "error", err)
			return failed(t.ID, models.FailureInternal, "could not load social account")
		}
		acc = a
	}

	out := f.dispatcher.Dispatch(ctx, &DispatchInput{
		TargetID: t.ID,
		Post:     claim.Post,
		Media:    claim.Media,
		Account:  acc,
	})
	if out.Status == models.TargetFailed {
		slog.Info("target failed", "post_id", claim.Post.ID, "target_id", t.ID, "platform", t.Platform, "kind", out.FailureKind, "reason", out.Reason)
	}
	return out
}

// complete runs inside the per-post critical section so that the report
// reflects the status written by the last committed completion.
func (f *Fanout) complete(ctx context.Context, post *models.Post, out Outcome, report *Report) error {
	unlock := f.posts.Lock(post.ID)
	defer unlock()

	status, err := f.store.CompleteTarget(ctx, &Completion{
		PostID:  post.ID,
		Cycle:   post.DispatchCycle,
		Outcome: out,
		At:      f.now(),
	})
	switch {
	case err == nil:
		report.Status = status
		return nil
	case errors.Is(err, ErrStaleDispatch), errors.Is(err, ErrPostNotFound):
		slog.Info("discarding target outcome", "post_id", post.ID, "target_id", out.TargetID, "reason", err.Error())
		report.Discarded = true
		return nil
	case errors.Is(err, ErrTargetResolved):
		slog.Error(ErrDuplicateDispatch.Error(), "post_id", post.ID, "target_id", out.TargetID)
		return nil
	default:
		slog.Error("recording target outcome", "post_id", post.ID, "target_id", out.TargetID, "error", err)
		return err
	}
}

func (f *Fanout) begin(postID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.triggering[postID]; ok {
		return false
	}
	f.triggering[postID] = struct{}{}
	return true
}

func (f *Fanout) end(postID int64) {
	f.mu.Lock()
	delete(f.triggering, postID)
	f.mu.Unlock()
}

func (f *Fanout) markDispatched(targetID int64, cycle int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := dispatchKey{targetID: targetID, cycle: cycle}
	if _, ok := f.dispatched[k]; ok {
		return false
	}
	f.dispatched[k] = struct{}{}
	return true
}

func (f *Fanout) unmarkDispatched(targetID int64, cycle int) {
	f.mu.Lock()
	delete(f.dispatched, dispatchKey{targetID: targetID, cycle: cycle})
	f.mu.Unlock()
}
