package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/lock"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/pkg/utils"
	"golang.org/x/oauth2"
)

// TokenRefresher is the platform side of a credential refresh.
type TokenRefresher interface {
	Refresh(ctx context.Context, p models.Platform, accessToken, refreshToken string) (*oauth2.Token, error)
}

const (
	refreshLockTTL     = 30 * time.Second
	refreshLockRetries = 150
)

// tokens without a reported lifetime are treated as long-lived
const longLivedToken = 60 * 24 * time.Hour

// CredentialService refreshes account tokens. Refreshes of one account are
// exclusive within the process and, with a locker, across processes.
type CredentialService struct {
	accounts repository.SocialAccountRepository
	tokens   TokenRefresher
	cipher   *utils.TokenCipher
	keyed    *lock.Keyed
	locker   lock.Locker
}

func NewCredentialService(accounts repository.SocialAccountRepository, tokens TokenRefresher, cipher *utils.TokenCipher, locker lock.Locker) *CredentialService {
	return &CredentialService{
		accounts: accounts,
		tokens:   tokens,
		cipher:   cipher,
		keyed:    lock.NewKeyed(),
		locker:   locker,
	}
}

// Refresh renews the credentials of acc and returns the stored account. If
// another refresh replaced the token while this one waited for the lock, the
// account it stored is returned without contacting the platform.
func (s *CredentialService) Refresh(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
	unlock, err := s.keyed.LockContext(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh lock for account %d: %w", acc.ID, err)
	}
	defer unlock()

	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, fmt.Sprintf("lock:account:%d", acc.ID), refreshLockTTL, refreshLockRetries)
		if err != nil {
			return nil, fmt.Errorf("refresh lock for account %d: %w", acc.ID, err)
		}
		defer release()
	}

	current, err := s.accounts.GetByID(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrAccountNotFound
	}
	if current.AccessToken != acc.AccessToken {
		return s.winner(current)
	}
	if !current.Connected() {
		return nil, ErrAccountExpired
	}

	return s.refresh(ctx, current)
}

func (s *CredentialService) winner(current *models.SocialAccount) (*models.SocialAccount, error) {
	if !current.Connected() {
		return nil, ErrAccountExpired
	}
	return current, nil
}

func (s *CredentialService) refresh(ctx context.Context, current *models.SocialAccount) (*models.SocialAccount, error) {
	accessToken, err := s.cipher.Decrypt(current.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	refreshToken, err := s.cipher.Decrypt(current.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}

	token, err := s.tokens.Refresh(ctx, current.Platform, accessToken, refreshToken)
	if err != nil {
		if errors.Is(err, platform.ErrRefreshRejected) {
			slog.Warn("credentials refused, marking account expired", "account_id", current.ID, "platform", current.Platform, "err", err)
			if merr := s.accounts.MarkExpired(context.WithoutCancel(ctx), current.ID); merr != nil {
				slog.Error("failed to mark account expired", "account_id", current.ID, "err", merr)
			}
		}
		return nil, err
	}

	updated := *current
	updated.AccountStatus = models.AccountConnected
	updated.TokenExpiresAt = expiryOf(token)
	if updated.AccessToken, err = s.cipher.Encrypt(token.AccessToken); err != nil {
		return nil, err
	}
	if token.RefreshToken != "" {
		if updated.RefreshToken, err = s.cipher.Encrypt(token.RefreshToken); err != nil {
			return nil, err
		}
	}

	err = s.accounts.SetToken(ctx, current.ID, current.AccessToken, &updated)
	if errors.Is(err, repository.ErrTokenChanged) {
		fresh, gerr := s.accounts.GetByID(ctx, current.ID)
		if gerr != nil {
			return nil, gerr
		}
		if fresh == nil {
			return nil, ErrAccountNotFound
		}
		return s.winner(fresh)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("credentials refreshed", "account_id", current.ID, "platform", current.Platform)
	return &updated, nil
}

func expiryOf(token *oauth2.Token) time.Time {
	if token.Expiry.IsZero() {
		return time.Now().Add(longLivedToken)
	}
	return token.Expiry
}
