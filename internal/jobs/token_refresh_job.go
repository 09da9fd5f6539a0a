package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"golang.org/x/sync/errgroup"
)

type ExpiringAccounts interface {
	ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error)
}

// TokenRefreshJob renews credentials shortly before they expire. It goes
// through the same Refresher as the dispatcher, so it never races a
// publish-time refresh of the same account.
type TokenRefreshJob struct {
	accounts  ExpiringAccounts
	refresher publish.Refresher
	window    time.Duration
	limit     int
}

func NewTokenRefreshJob(accounts ExpiringAccounts, refresher publish.Refresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		accounts:  accounts,
		refresher: refresher,
		window:    30 * time.Minute,
		limit:     10,
	}
}

func (j *TokenRefreshJob) Run(ctx context.Context) {
	accounts, err := j.accounts.ListExpiring(ctx, time.Now().Add(j.window))
	if err != nil {
		slog.Error("listing expiring accounts", "err", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.limit)
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			if _, err := j.refresher.Refresh(gctx, acc); err != nil {
				slog.Warn("unable to refresh tokens", "account_id", acc.ID, "platform", acc.Platform, "err", err)
			}
			return nil
		})
	}
	g.Wait()
}
