package platform

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

// Profile identifies the remote account behind an access token.
type Profile struct {
	AccountID string
	Name      string
	Username  string
	Picture   string
	// AccessToken replaces the user token when the platform publishes with a
	// different credential, such as a Facebook page token.
	AccessToken string
}

// Adapter talks to one platform's publishing API with a plaintext token.
type Adapter interface {
	Platform() models.Platform
	Publish(ctx context.Context, token string, req *publish.PublishRequest) (string, error)
	Profile(ctx context.Context, token string) (*Profile, error)
}

// Registry routes publish calls to the adapter of the account's platform.
type Registry struct {
	cipher   *utils.TokenCipher
	adapters map[models.Platform]Adapter
}

func NewRegistry(cipher *utils.TokenCipher, adapters ...Adapter) *Registry {
	r := &Registry{
		cipher:   cipher,
		adapters: make(map[models.Platform]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Adapter(p models.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %q", p)
	}
	return a, nil
}

// Publish decrypts the account credentials and performs the adapter call.
func (r *Registry) Publish(ctx context.Context, req *publish.PublishRequest) (string, error) {
	a, err := r.Adapter(req.Account.Platform)
	if err != nil {
		return "", err
	}
	if err := validateMedia(req); err != nil {
		return "", err
	}

	token, err := r.cipher.Decrypt(req.Account.AccessToken)
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	return a.Publish(ctx, token, req)
}

// validateMedia rejects posts the platform cannot carry before any network call.
func validateMedia(req *publish.PublishRequest) error {
	p := req.Account.Platform
	if p.RequiresMedia() && len(req.Media) == 0 {
		return &publish.RejectedError{Platform: p, Payload: "platform requires at least one media file"}
	}
	for _, m := range req.Media {
		if _, ok := p.MediaLimit(m.Kind()); !ok {
			return &publish.RejectedError{Platform: p, Payload: fmt.Sprintf("%s does not accept %s media", p, m.Kind())}
		}
	}
	if n := len([]rune(req.Content)); n > p.CaptionLimit() {
		return &publish.RejectedError{Platform: p, Payload: fmt.Sprintf("caption has %d characters, limit is %d", n, p.CaptionLimit())}
	}
	return nil
}

func firstOfKind(media []*models.MediaAsset, kind models.MediaKind) *models.MediaAsset {
	for _, m := range media {
		if m.Kind() == kind {
			return m
		}
	}
	return nil
}
