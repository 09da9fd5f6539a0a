package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
)

// PublishRequest is what a platform needs to publish one post for one account.
type PublishRequest struct {
	Title    string
	Content  string
	PostType string
	Media    []*models.MediaAsset
	Account  *models.SocialAccount
}

// Publisher performs exactly one outbound publish call and returns the id the
// platform assigned to the new post.
type Publisher interface {
	Publish(ctx context.Context, req *PublishRequest) (string, error)
}

// Refresher renews the credentials of an account. Implementations must make
// refreshes of the same account mutually exclusive.
type Refresher interface {
	Refresh(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error)
}

type DispatchInput struct {
	TargetID int64
	Post     *models.Post
	Media    []*models.MediaAsset
	Account  *models.SocialAccount
}

// Outcome is the resolved state of one target after a dispatch.
type Outcome struct {
	TargetID     int64               `json:"target_id"`
	Status       models.TargetStatus `json:"status"`
	FailureKind  models.FailureKind  `json:"failure_kind,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	RemotePostID string              `json:"remote_post_id,omitempty"`
}

func succeeded(targetID int64, remoteID string) Outcome {
	return Outcome{TargetID: targetID, Status: models.TargetSuccess, RemotePostID: remoteID}
}

func failed(targetID int64, kind models.FailureKind, reason string) Outcome {
	return Outcome{TargetID: targetID, Status: models.TargetFailed, FailureKind: kind, Reason: reason}
}

type Dispatcher struct {
	publisher Publisher
	refresher Refresher
	timeout   time.Duration
}

func NewDispatcher(publisher Publisher, refresher Refresher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Dispatcher{
		publisher: publisher,
		refresher: refresher,
		timeout:   timeout,
	}
}

// Dispatch attempts to publish a post to one account. Failures are reported in
// the returned Outcome; Dispatch itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, in *DispatchInput) Outcome {
	acc := in.Account
	if acc == nil || !acc.Connected() {
		return failed(in.TargetID, models.FailureAccountNotConnected, ErrAccountNotConnected.Error())
	}

	req := &PublishRequest{
		Title:    in.Post.Title,
		Content:  in.Post.Content,
		PostType: in.Post.PostType,
		Media:    in.Media,
		Account:  acc,
	}

	remoteID, err := d.publishOnce(ctx, req)
	if errors.Is(err, ErrUnauthorized) && d.refresher != nil {
		slog.Info("refreshing credentials before retry", "account_id", acc.ID, "platform", acc.Platform)

		fresh, rerr := bounded(ctx, "credential refresh", d.timeout, func(ctx context.Context) (*models.SocialAccount, error) {
			return d.refresher.Refresh(ctx, acc)
		})
		switch {
		case errors.Is(rerr, ErrTimeout), errors.Is(rerr, ErrInterrupted), errors.Is(rerr, ErrPanicked):
			return classify(in.TargetID, rerr)
		case rerr != nil:
			return failed(in.TargetID, models.FailureUnauthorized, fmt.Sprintf("credential refresh failed: %v", rerr))
		case fresh == nil || !fresh.Connected():
			return failed(in.TargetID, models.FailureUnauthorized, "account credentials expired")
		}

		req.Account = fresh
		remoteID, err = d.publishOnce(ctx, req)
	}

	if err != nil {
		return classify(in.TargetID, err)
	}
	return succeeded(in.TargetID, remoteID)
}

func (d *Dispatcher) publishOnce(ctx context.Context, req *PublishRequest) (string, error) {
	return bounded(ctx, "publish", d.timeout, func(ctx context.Context) (string, error) {
		return d.publisher.Publish(ctx, req)
	})
}

type callResult[T any] struct {
	val T
	err error
}

// bounded runs one platform call under timeout and returns once the deadline
// passes even if fn ignores its context. A panic in fn is returned as an error
// wrapping ErrPanicked.
func bounded[T any](ctx context.Context, op string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in platform call", "op", op, "panic", r, "stack", string(debug.Stack()))
				done <- callResult[T]{err: fmt.Errorf("%s %w: %v", op, ErrPanicked, r)}
			}
		}()
		v, err := fn(callCtx)
		done <- callResult[T]{val: v, err: err}
	}()

	var r callResult[T]
	select {
	case r = <-done:
	case <-callCtx.Done():
		// a result that arrived with the deadline still wins
		select {
		case r = <-done:
		default:
			r.err = callCtx.Err()
		}
	}
	if r.err == nil || errors.Is(r.err, ErrPanicked) {
		return r.val, r.err
	}

	var zero T
	switch {
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return zero, fmt.Errorf("%s %w after %s", op, ErrTimeout, timeout)
	case callCtx.Err() != nil:
		return zero, fmt.Errorf("%s %w: %w", op, ErrInterrupted, callCtx.Err())
	}
	return r.val, r.err
}

func classify(targetID int64, err error) Outcome {
	var rejected *RejectedError
	switch {
	case errors.Is(err, ErrTimeout):
		return failed(targetID, models.FailureTimeout, err.Error())
	case errors.Is(err, ErrInterrupted):
		// the platform may still have published; the reason says so
		return failed(targetID, models.FailureInternal, err.Error()+"; the post may exist on the platform")
	case errors.Is(err, ErrUnauthorized):
		return failed(targetID, models.FailureUnauthorized, err.Error())
	case errors.Is(err, ErrAccountNotConnected):
		return failed(targetID, models.FailureAccountNotConnected, err.Error())
	case errors.As(err, &rejected):
		return failed(targetID, models.FailurePlatformRejected, rejected.Error())
	default:
		return failed(targetID, models.FailureInternal, err.Error())
	}
}
