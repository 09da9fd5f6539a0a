package publish

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req *PublishRequest) (string, error)
}

func (p *fakePublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	p.calls.Add(1)
	return p.fn(ctx, req)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	fresh *models.SocialAccount
	err   error
}

func (r *fakeRefresher) Refresh(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.fresh, nil
}

func connectedAccount(id int64, token string) *models.SocialAccount {
	return &models.SocialAccount{
		ID:            id,
		Platform:      models.PlatformFacebook,
		AccessToken:   token,
		AccountStatus: models.AccountConnected,
	}
}

func dispatchInput(acc *models.SocialAccount) *DispatchInput {
	return &DispatchInput{
		TargetID: 11,
		Post:     &models.Post{ID: 1, Title: "launch", Content: "we are live"},
		Account:  acc,
	}
}

func TestDispatchSuccess(t *testing.T) {
	pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		assert.Equal(t, "we are live", req.Content)
		return "remote-1", nil
	}}
	d := NewDispatcher(pub, nil, time.Second)

	out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "tok")))

	assert.Equal(t, models.TargetSuccess, out.Status)
	assert.Equal(t, "remote-1", out.RemotePostID)
	assert.Equal(t, int64(11), out.TargetID)
	assert.EqualValues(t, 1, pub.calls.Load())
}

func TestDispatchUnconnectedAccountMakesNoCall(t *testing.T) {
	pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		return "should-not-happen", nil
	}}
	d := NewDispatcher(pub, nil, time.Second)

	expired := connectedAccount(1, "tok")
	expired.AccountStatus = models.AccountExpired

	for _, acc := range []*models.SocialAccount{expired, nil} {
		out := d.Dispatch(context.Background(), dispatchInput(acc))
		assert.Equal(t, models.TargetFailed, out.Status)
		assert.Equal(t, models.FailureAccountNotConnected, out.FailureKind)
	}
	assert.EqualValues(t, 0, pub.calls.Load())
}

func TestDispatchTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// ignores its context on purpose
	pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		<-release
		return "late", nil
	}}
	d := NewDispatcher(pub, nil, 20*time.Millisecond)

	start := time.Now()
	out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "tok")))

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, models.TargetFailed, out.Status)
	assert.Equal(t, models.FailureTimeout, out.FailureKind)
}

func TestDispatchUnauthorizedRefreshesAndRetriesOnce(t *testing.T) {
	pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		if req.Account.AccessToken == "old" {
			return "", ErrUnauthorized
		}
		return "remote-2", nil
	}}
	ref := &fakeRefresher{fresh: connectedAccount(1, "new")}
	d := NewDispatcher(pub, ref, time.Second)

	out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "old")))

	assert.Equal(t, models.TargetSuccess, out.Status)
	assert.Equal(t, "remote-2", out.RemotePostID)
	assert.Equal(t, 1, ref.calls)
	assert.EqualValues(t, 2, pub.calls.Load())
}

func TestDispatchUnauthorizedTwice(t *testing.T) {
	pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		return "", ErrUnauthorized
	}}
	ref := &fakeRefresher{fresh: connectedAccount(1, "new")}
	d := NewDispatcher(pub, ref, time.Second)

	out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "old")))

	assert.Equal(t, models.FailureUnauthorized, out.FailureKind)
	assert.Equal(t, 1, ref.calls)
	assert.EqualValues(t, 2, pub.calls.Load())
}

func TestDispatchRefreshFailure(t *testing.T) {
	pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		return "", ErrUnauthorized
	}}
	ref := &fakeRefresher{err: errors.New("invalid_grant")}
	d := NewDispatcher(pub, ref, time.Second)

	out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "old")))

	assert.Equal(t, models.TargetFailed, out.Status)
	assert.Equal(t, models.FailureUnauthorized, out.FailureKind)
	assert.Contains(t, out.Reason, "invalid_grant")
	assert.EqualValues(t, 1, pub.calls.Load())
}

type refreshFunc func(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error)

func (f refreshFunc) Refresh(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
	return f(ctx, acc)
}

func unauthorizedPublisher() *fakePublisher {
	return &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		return "", ErrUnauthorized
	}}
}

func TestDispatchRefreshIsBounded(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	refreshers := map[string]Refresher{
		"honors context": refreshFunc(func(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		"ignores context": refreshFunc(func(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
			<-release
			return acc, nil
		}),
	}

	for name, ref := range refreshers {
		t.Run(name, func(t *testing.T) {
			pub := unauthorizedPublisher()
			d := NewDispatcher(pub, ref, 50*time.Millisecond)

			start := time.Now()
			out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "old")))

			assert.Less(t, time.Since(start), time.Second)
			assert.Equal(t, models.TargetFailed, out.Status)
			assert.Equal(t, models.FailureTimeout, out.FailureKind)
			assert.Contains(t, out.Reason, "credential refresh timed out")
			assert.EqualValues(t, 1, pub.calls.Load())
		})
	}
}

func TestDispatchRecoversPublisherPanic(t *testing.T) {
	pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
		var m map[string]int
		m["boom"]++
		return "unreachable", nil
	}}
	d := NewDispatcher(pub, nil, time.Second)

	out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "tok")))

	assert.Equal(t, models.TargetFailed, out.Status)
	assert.Equal(t, models.FailureInternal, out.FailureKind)
	assert.Contains(t, out.Reason, "publish panicked")
}

func TestDispatchRecoversRefresherPanic(t *testing.T) {
	ref := refreshFunc(func(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
		panic("token store unavailable")
	})
	d := NewDispatcher(unauthorizedPublisher(), ref, time.Second)

	out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "old")))

	assert.Equal(t, models.FailureInternal, out.FailureKind)
	assert.Contains(t, out.Reason, "token store unavailable")
}

func TestDispatchCancelledNamesInterruption(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pub := &fakePublisher{fn: func(pctx context.Context, req *PublishRequest) (string, error) {
		cancel()
		<-pctx.Done()
		return "", pctx.Err()
	}}
	d := NewDispatcher(pub, nil, time.Second)

	out := d.Dispatch(ctx, dispatchInput(connectedAccount(1, "tok")))

	assert.Equal(t, models.TargetFailed, out.Status)
	assert.Equal(t, models.FailureInternal, out.FailureKind)
	assert.Contains(t, out.Reason, "interrupted before the platform answered")
	assert.Contains(t, out.Reason, "may exist on the platform")
}

func TestDispatchClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.FailureKind
	}{
		{"rejected", &RejectedError{Platform: models.PlatformInstagram, StatusCode: 400, Payload: `{"error":"bad media"}`}, models.FailurePlatformRejected},
		{"wrapped rejected", errors.Join(errors.New("upload"), &RejectedError{Platform: models.PlatformTiktok, Payload: "spam"}), models.FailurePlatformRejected},
		{"network", errors.New("connection reset"), models.FailureInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{fn: func(ctx context.Context, req *PublishRequest) (string, error) {
				return "", tt.err
			}}
			d := NewDispatcher(pub, nil, time.Second)
			out := d.Dispatch(context.Background(), dispatchInput(connectedAccount(1, "tok")))

			require.Equal(t, models.TargetFailed, out.Status)
			assert.Equal(t, tt.want, out.FailureKind)
			assert.NotEmpty(t, out.Reason)
			assert.EqualValues(t, 1, pub.calls.Load())
		})
	}
}

func TestRejectedErrorKeepsPayload(t *testing.T) {
	err := &RejectedError{Platform: models.PlatformLinkedin, StatusCode: 422, Payload: "duplicate content"}
	assert.ErrorIs(t, err, ErrPlatformRejected)
	assert.Contains(t, err.Error(), "duplicate content")
	assert.Contains(t, err.Error(), "422")
}
