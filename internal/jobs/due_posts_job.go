package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/publish"
)

type DuePosts interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

type Triggerer interface {
	Trigger(ctx context.Context, postID int64) (*publish.Report, error)
}

// DuePostsJob triggers posts whose publish task was lost, for example
// while the worker was down. The claim rejects posts that were already
// dispatched.
type DuePostsJob struct {
	posts  DuePosts
	fanout Triggerer
	batch  int
}

func NewDuePostsJob(posts DuePosts, fanout Triggerer) *DuePostsJob {
	return &DuePostsJob{posts: posts, fanout: fanout, batch: 50}
}

// grace leaves on-time posts to their queued task
const grace = time.Minute

func (j *DuePostsJob) Run(ctx context.Context) {
	ids, err := j.posts.ListDue(ctx, time.Now().Add(-grace), j.batch)
	if err != nil {
		slog.Error("listing due posts", "err", err)
		return
	}

	for _, id := range ids {
		report, err := j.fanout.Trigger(ctx, id)
		switch {
		case errors.Is(err, publish.ErrAlreadyTriggered), errors.Is(err, publish.ErrNotDue):
			continue
		case err != nil:
			slog.Error("triggering due post", "post_id", id, "err", err)
			continue
		}
		slog.Info("due post dispatched", "post_id", id, "status", report.Status)
	}
}
