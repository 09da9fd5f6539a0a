package platform

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	client := config.OAuthClient{ClientID: "id", ClientSecret: "secret"}
	return &config.Config{
		Instagram: client,
		Tiktok:    client,
		Google:    client,
		Facebook:  client,
		Linkedin:  client,
		PublicURL: "https://api.postpilot.test",
	}
}

func TestAuthCodeURL(t *testing.T) {
	o := NewOAuth(testConfig(), NewHTTPClient())

	raw, err := o.AuthCodeURL(models.PlatformTiktok, "state-1")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "id", u.Query().Get("client_key"))
	assert.Equal(t, tiktokScopes, u.Query().Get("scope"))
	assert.Equal(t, "https://api.postpilot.test/auth/tiktok/callback", u.Query().Get("redirect_uri"))

	raw, err = o.AuthCodeURL(models.PlatformYoutube, "state-2")
	require.NoError(t, err)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "offline", u.Query().Get("access_type"))
	assert.Equal(t, "state-2", u.Query().Get("state"))
}

func TestOAuthRejectsIncompleteConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Linkedin = config.OAuthClient{}
	o := NewOAuth(cfg, NewHTTPClient())

	_, err := o.AuthCodeURL(models.PlatformLinkedin, "s")
	assert.Error(t, err)
	_, err = o.Config(models.Platform("myspace"))
	assert.Error(t, err)
}

func TestRefreshInstagram(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh_access_token", r.URL.Path)
		assert.Equal(t, "ig_refresh_token", r.URL.Query().Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("access_token") != "long-lived" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"message":"Session has expired","code":190}}`)
			return
		}
		io.WriteString(w, `{"access_token":"renewed","token_type":"bearer","expires_in":5184000}`)
	}))
	defer srv.Close()

	o := NewOAuth(testConfig(), NewHTTPClient())
	o.urls.instagramGraph = srv.URL

	tok, err := o.Refresh(context.Background(), models.PlatformInstagram, "long-lived", "")
	require.NoError(t, err)
	assert.Equal(t, "renewed", tok.AccessToken)
	assert.False(t, tok.Expiry.IsZero())

	_, err = o.Refresh(context.Background(), models.PlatformInstagram, "gone", "")
	assert.ErrorIs(t, err, ErrRefreshRejected)
}

func TestRefreshTiktok(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		assert.Equal(t, "id", r.PostForm.Get("client_key"))
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("refresh_token") != "rt-1" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant","error_description":"Refresh token is invalid or expired."}`)
			return
		}
		io.WriteString(w, `{"access_token":"at-2","refresh_token":"rt-2","expires_in":86400}`)
	}))
	defer srv.Close()

	o := NewOAuth(testConfig(), NewHTTPClient())
	o.urls.tiktokToken = srv.URL

	tok, err := o.Refresh(context.Background(), models.PlatformTiktok, "at-1", "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)
	assert.Equal(t, "rt-2", tok.RefreshToken)

	_, err = o.Refresh(context.Background(), models.PlatformTiktok, "at-1", "revoked")
	assert.ErrorIs(t, err, ErrRefreshRejected)
}

func TestRefreshThroughTokenSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("refresh_token") != "rt" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		io.WriteString(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	o := NewOAuth(testConfig(), NewHTTPClient())
	o.configs[models.PlatformYoutube].Endpoint.TokenURL = srv.URL

	tok, err := o.Refresh(context.Background(), models.PlatformYoutube, "stale", "rt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	_, err = o.Refresh(context.Background(), models.PlatformYoutube, "stale", "bad")
	assert.ErrorIs(t, err, ErrRefreshRejected)

	_, err = o.Refresh(context.Background(), models.PlatformYoutube, "stale", "")
	assert.ErrorIs(t, err, ErrRefreshRejected)
}

func TestRefreshUsesClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	o := NewOAuth(testConfig(), NewHTTPClient().SetTimeout(50*time.Millisecond))
	o.configs[models.PlatformYoutube].Endpoint.TokenURL = srv.URL

	start := time.Now()
	_, err := o.Refresh(context.Background(), models.PlatformYoutube, "stale", "rt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRefreshRejected)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRefreshFacebookIsRejected(t *testing.T) {
	o := NewOAuth(testConfig(), NewHTTPClient())
	_, err := o.Refresh(context.Background(), models.PlatformFacebook, "page", "")
	assert.ErrorIs(t, err, ErrRefreshRejected)
}

func TestExchangeInstagramUpgradesToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"short","token_type":"bearer","user_id":17841}`)
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ig_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "short", r.URL.Query().Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"long","token_type":"bearer","expires_in":5184000}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	o := NewOAuth(testConfig(), NewHTTPClient())
	o.configs[models.PlatformInstagram].Endpoint.TokenURL = srv.URL + "/oauth/access_token"
	o.urls.instagramGraph = srv.URL

	tok, err := o.Exchange(context.Background(), models.PlatformInstagram, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "long", tok.AccessToken)

	_, err = o.Exchange(context.Background(), models.PlatformInstagram, "")
	assert.Error(t, err)
}

func TestRevokeSkipsInstagram(t *testing.T) {
	o := NewOAuth(testConfig(), NewHTTPClient())
	assert.NoError(t, o.Revoke(context.Background(), models.PlatformInstagram, "tok"))
}

func TestRevokeGoogle(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		got <- r.PostForm.Get("token")
	}))
	defer srv.Close()

	o := NewOAuth(testConfig(), NewHTTPClient())
	o.urls.googleRevoke = srv.URL

	require.NoError(t, o.Revoke(context.Background(), models.PlatformYoutube, "tok"))
	assert.Equal(t, "tok", <-got)
}
