package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/maheshrc27/postpilot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeOAuth struct {
	exchanged []string
	revoked   []string
	revokeErr error
}

func (f *fakeOAuth) AuthCodeURL(p models.Platform, state string) (string, error) {
	return "https://auth.example.test/" + p.String() + "?state=" + url.QueryEscape(state), nil
}

func (f *fakeOAuth) Exchange(ctx context.Context, p models.Platform, code string) (*oauth2.Token, error) {
	f.exchanged = append(f.exchanged, code)
	return &oauth2.Token{AccessToken: "user-token", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeOAuth) Revoke(ctx context.Context, p models.Platform, token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

type profileAdapter struct {
	p       models.Platform
	profile *platform.Profile
}

func (a *profileAdapter) Platform() models.Platform { return a.p }

func (a *profileAdapter) Publish(ctx context.Context, token string, req *publish.PublishRequest) (string, error) {
	return "", errors.New("not used")
}

func (a *profileAdapter) Profile(ctx context.Context, token string) (*platform.Profile, error) {
	return a.profile, nil
}

type profileSource map[models.Platform]platform.Adapter

func (s profileSource) Adapter(p models.Platform) (platform.Adapter, error) {
	a, ok := s[p]
	if !ok {
		return nil, errors.New("no adapter")
	}
	return a, nil
}

func newPlatformFixture(t *testing.T, accs ...*models.SocialAccount) (PlatformService, *fakeOAuth, *fakeAccounts, *utils.TokenCipher) {
	t.Helper()
	cipher, err := utils.NewTokenCipher(testSecret)
	require.NoError(t, err)
	oauth := &fakeOAuth{}
	accounts := newFakeAccounts(accs...)
	profiles := profileSource{
		models.PlatformLinkedin: &profileAdapter{p: models.PlatformLinkedin, profile: &platform.Profile{AccountID: "li-1", Name: "Ana"}},
		models.PlatformFacebook: &profileAdapter{p: models.PlatformFacebook, profile: &platform.Profile{AccountID: "page-1", Name: "Shop", AccessToken: "page-token"}},
	}
	return NewPlatformService(testSecret, oauth, profiles, accounts, cipher), oauth, accounts, cipher
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestConnectAccount(t *testing.T) {
	svc, oauth, accounts, cipher := newPlatformFixture(t)

	authURL, err := svc.AuthURL(context.Background(), 7, "linkedin")
	require.NoError(t, err)

	acc, err := svc.Callback(context.Background(), "linkedin", stateFrom(t, authURL), "code-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"code-1"}, oauth.exchanged)
	assert.Equal(t, int64(7), acc.UserID)
	assert.Equal(t, "li-1", acc.AccountID)
	assert.Equal(t, models.AccountConnected, acc.AccountStatus)
	require.Len(t, accounts.created, 1)

	plain, err := cipher.Decrypt(accounts.created[0].AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-token", plain)
}

func TestConnectFacebookStoresPageToken(t *testing.T) {
	svc, _, accounts, cipher := newPlatformFixture(t)

	authURL, err := svc.AuthURL(context.Background(), 7, "facebook")
	require.NoError(t, err)
	acc, err := svc.Callback(context.Background(), "facebook", stateFrom(t, authURL), "code")
	require.NoError(t, err)

	plain, err := cipher.Decrypt(accounts.created[0].AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "page-token", plain)
	assert.True(t, acc.TokenExpiresAt.After(time.Now().Add(10*365*24*time.Hour)))
}

func TestCallbackRejectsState(t *testing.T) {
	svc, oauth, _, _ := newPlatformFixture(t)

	authURL, err := svc.AuthURL(context.Background(), 7, "linkedin")
	require.NoError(t, err)
	state := stateFrom(t, authURL)

	_, err = svc.Callback(context.Background(), "facebook", state, "code")
	assert.ErrorIs(t, err, ErrInvalidState, "state issued for another platform")

	_, err = svc.Callback(context.Background(), "linkedin", "garbage", "code")
	assert.ErrorIs(t, err, ErrInvalidState)

	session, err := utils.GenerateToken(testSecret, "7", time.Hour)
	require.NoError(t, err)
	_, err = svc.Callback(context.Background(), "linkedin", session, "code")
	assert.ErrorIs(t, err, ErrInvalidState, "session tokens are not states")

	assert.Empty(t, oauth.exchanged)
}

func TestAuthURLUnknownPlatform(t *testing.T) {
	svc, _, _, _ := newPlatformFixture(t)
	_, err := svc.AuthURL(context.Background(), 7, "myspace")
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestDisconnectRevokesBestEffort(t *testing.T) {
	cipher, err := utils.NewTokenCipher(testSecret)
	require.NoError(t, err)
	sealed, err := cipher.Encrypt("tok")
	require.NoError(t, err)

	svc, oauth, accounts, _ := newPlatformFixture(t,
		&models.SocialAccount{ID: 1, UserID: 7, Platform: models.PlatformYoutube, AccessToken: sealed},
	)
	oauth.revokeErr = errors.New("revocation endpoint down")

	assert.ErrorIs(t, svc.Delete(context.Background(), 8, 1), ErrAccountNotFound)
	assert.Empty(t, accounts.removed)

	require.NoError(t, svc.Delete(context.Background(), 7, 1))
	assert.Equal(t, []string{"tok"}, oauth.revoked)
	assert.Equal(t, []int64{1}, accounts.removed)
}
