package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/instagram"
	"golang.org/x/oauth2/linkedin"
	"google.golang.org/api/youtube/v3"
)

// ErrRefreshRejected means the platform definitively refused to renew the
// credentials and the account has to be reconnected.
var ErrRefreshRejected = errors.New("platform refused to refresh credentials")

var tiktokEndpoint = oauth2.Endpoint{
	AuthURL:   "https://www.tiktok.com/v2/auth/authorize/",
	TokenURL:  "https://open.tiktokapis.com/v2/oauth/token/",
	AuthStyle: oauth2.AuthStyleInParams,
}

const tiktokScopes = "user.info.basic,video.publish,video.upload"

type oauthURLs struct {
	facebookGraph  string
	instagramGraph string
	tiktokToken    string
	tiktokRevoke   string
	googleRevoke   string
	linkedinRevoke string
}

var defaultOAuthURLs = oauthURLs{
	facebookGraph:  facebookGraphURL,
	instagramGraph: "https://graph.instagram.com",
	tiktokToken:    tiktokEndpoint.TokenURL,
	tiktokRevoke:   "https://open.tiktokapis.com/v2/oauth/revoke/",
	googleRevoke:   "https://oauth2.googleapis.com/revoke",
	linkedinRevoke: "https://www.linkedin.com/oauth/v2/revoke",
}

// OAuth owns the authorization code flow and the credential lifecycle of
// every platform.
type OAuth struct {
	cfg     *config.Config
	http    *resty.Client
	urls    oauthURLs
	configs map[models.Platform]*oauth2.Config
}

func NewOAuth(cfg *config.Config, client *resty.Client) *OAuth {
	o := &OAuth{cfg: cfg, http: client, urls: defaultOAuthURLs}
	o.configs = map[models.Platform]*oauth2.Config{
		models.PlatformYoutube: {
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
		},
		models.PlatformFacebook: {
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			Endpoint:     facebook.Endpoint,
			Scopes:       []string{"pages_show_list", "pages_manage_posts", "pages_read_engagement"},
		},
		models.PlatformInstagram: {
			ClientID:     cfg.Instagram.ClientID,
			ClientSecret: cfg.Instagram.ClientSecret,
			Endpoint:     instagram.Endpoint,
			Scopes:       []string{"instagram_business_basic", "instagram_business_content_publish"},
		},
		models.PlatformLinkedin: {
			ClientID:     cfg.Linkedin.ClientID,
			ClientSecret: cfg.Linkedin.ClientSecret,
			Endpoint:     linkedin.Endpoint,
			Scopes:       []string{"openid", "profile", "email", "w_member_social"},
		},
		models.PlatformTiktok: {
			ClientID:     cfg.Tiktok.ClientID,
			ClientSecret: cfg.Tiktok.ClientSecret,
			Endpoint:     tiktokEndpoint,
		},
	}
	for p, c := range o.configs {
		c.RedirectURL = cfg.RedirectURI(p.String())
	}
	return o
}

// clientContext makes oauth2 use the shared client and its timeout instead of
// http.DefaultClient.
func (o *OAuth) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.http.GetClient())
}

// Config returns the OAuth2 client configuration of a platform.
func (o *OAuth) Config(p models.Platform) (*oauth2.Config, error) {
	c, ok := o.configs[p]
	if !ok {
		return nil, fmt.Errorf("unsupported platform %q", p)
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, fmt.Errorf("%s OAuth2 configuration is incomplete", p)
	}
	return c, nil
}

func (o *OAuth) AuthCodeURL(p models.Platform, state string) (string, error) {
	c, err := o.Config(p)
	if err != nil {
		return "", err
	}

	switch p {
	case models.PlatformYoutube:
		return c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
	case models.PlatformTiktok:
		return c.AuthCodeURL(state,
			oauth2.SetAuthURLParam("client_key", c.ClientID),
			oauth2.SetAuthURLParam("scope", tiktokScopes),
		), nil
	default:
		return c.AuthCodeURL(state), nil
	}
}

// Exchange trades an authorization code for a token. Facebook and Instagram
// short-lived tokens are upgraded to long-lived ones.
func (o *OAuth) Exchange(ctx context.Context, p models.Platform, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}
	c, err := o.Config(p)
	if err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if p == models.PlatformTiktok {
		opts = append(opts, oauth2.SetAuthURLParam("client_key", c.ClientID))
	}

	token, err := c.Exchange(o.clientContext(ctx), code, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s code exchange", p)
	}

	switch p {
	case models.PlatformFacebook:
		return o.graphToken(ctx, o.urls.facebookGraph+"/oauth/access_token", map[string]string{
			"grant_type":        "fb_exchange_token",
			"client_id":         c.ClientID,
			"client_secret":     c.ClientSecret,
			"fb_exchange_token": token.AccessToken,
		})
	case models.PlatformInstagram:
		return o.graphToken(ctx, o.urls.instagramGraph+"/access_token", map[string]string{
			"grant_type":    "ig_exchange_token",
			"client_secret": c.ClientSecret,
			"access_token":  token.AccessToken,
		})
	}
	return token, nil
}

// Refresh renews the credentials of an account. Errors wrapping
// ErrRefreshRejected are definitive.
func (o *OAuth) Refresh(ctx context.Context, p models.Platform, accessToken, refreshToken string) (*oauth2.Token, error) {
	c, err := o.Config(p)
	if err != nil {
		return nil, err
	}

	switch p {
	case models.PlatformInstagram:
		return o.graphToken(ctx, o.urls.instagramGraph+"/refresh_access_token", map[string]string{
			"grant_type":   "ig_refresh_token",
			"access_token": accessToken,
		})
	case models.PlatformFacebook:
		return nil, errors.Wrap(ErrRefreshRejected, "facebook page tokens cannot be refreshed")
	case models.PlatformTiktok:
		return o.refreshTiktok(ctx, c, refreshToken)
	}

	if refreshToken == "" {
		return nil, errors.Wrapf(ErrRefreshRejected, "%s account has no refresh token", p)
	}
	token, err := c.TokenSource(o.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, errors.Wrapf(ErrRefreshRejected, "%s: %s", p, rerr.Error())
		}
		return nil, errors.Wrapf(err, "%s token refresh", p)
	}
	return token, nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (t *tokenResponse) token() *oauth2.Token {
	tok := &oauth2.Token{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if t.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}

func (o *OAuth) refreshTiktok(ctx context.Context, c *oauth2.Config, refreshToken string) (*oauth2.Token, error) {
	var out tokenResponse
	resp, err := o.http.R().SetContext(ctx).
		SetFormData(map[string]string{
			"client_key":    c.ClientID,
			"client_secret": c.ClientSecret,
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&out).
		SetError(&out).
		Post(o.urls.tiktokToken)
	if err != nil {
		return nil, errors.Wrap(err, "tiktok token refresh")
	}
	if resp.IsError() || out.Error != "" || out.AccessToken == "" {
		return nil, errors.Wrapf(ErrRefreshRejected, "tiktok: %s %s", out.Error, out.ErrorDescription)
	}
	return out.token(), nil
}

// graphToken performs the Graph API token GET calls used by Facebook and
// Instagram for both exchange and refresh.
func (o *OAuth) graphToken(ctx context.Context, url string, params map[string]string) (*oauth2.Token, error) {
	var out tokenResponse
	resp, err := o.http.R().SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "graph token request")
	}
	if resp.StatusCode() >= http.StatusBadRequest && resp.StatusCode() < http.StatusInternalServerError {
		return nil, errors.Wrapf(ErrRefreshRejected, "graph token: %s", resp.String())
	}
	if resp.IsError() || out.AccessToken == "" {
		return nil, fmt.Errorf("graph token: unexpected response %d: %s", resp.StatusCode(), resp.String())
	}
	return out.token(), nil
}

// Revoke invalidates a token on the platform. Platforms without a revoke
// endpoint succeed without a call.
func (o *OAuth) Revoke(ctx context.Context, p models.Platform, token string) error {
	c, err := o.Config(p)
	if err != nil {
		return err
	}

	r := o.http.R().SetContext(ctx)
	var resp *resty.Response
	switch p {
	case models.PlatformYoutube:
		resp, err = r.SetFormData(map[string]string{"token": token}).Post(o.urls.googleRevoke)
	case models.PlatformTiktok:
		resp, err = r.SetFormData(map[string]string{
			"client_key":    c.ClientID,
			"client_secret": c.ClientSecret,
			"token":         token,
		}).Post(o.urls.tiktokRevoke)
	case models.PlatformLinkedin:
		resp, err = r.SetFormData(map[string]string{
			"client_id":     c.ClientID,
			"client_secret": c.ClientSecret,
			"token":         token,
		}).Post(o.urls.linkedinRevoke)
	case models.PlatformFacebook:
		resp, err = r.SetQueryParam("access_token", token).Delete(o.urls.facebookGraph + "/me/permissions")
	default:
		return nil
	}
	return checkResponse(p, resp, err)
}
