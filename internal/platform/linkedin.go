package platform

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/pkg/errors"
)

const linkedinAPIURL = "https://api.linkedin.com/v2"

// Linkedin shares text posts, with the first media URL attached as an article.
type Linkedin struct {
	http    *resty.Client
	baseURL string
}

func NewLinkedin(client *resty.Client) *Linkedin {
	return &Linkedin{http: client, baseURL: linkedinAPIURL}
}

func (l *Linkedin) Platform() models.Platform { return models.PlatformLinkedin }

type linkedinText struct {
	Text string `json:"text"`
}

type linkedinMedia struct {
	Status      string       `json:"status"`
	OriginalURL string       `json:"originalUrl"`
	Title       linkedinText `json:"title"`
}

type linkedinShare struct {
	ShareCommentary    linkedinText    `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []linkedinMedia `json:"media,omitempty"`
}

func (l *Linkedin) Publish(ctx context.Context, token string, req *publish.PublishRequest) (string, error) {
	share := linkedinShare{
		ShareCommentary:    linkedinText{Text: req.Content},
		ShareMediaCategory: "NONE",
	}
	if len(req.Media) > 0 {
		share.ShareMediaCategory = "ARTICLE"
		share.Media = []linkedinMedia{{
			Status:      "READY",
			OriginalURL: req.Media[0].FileURL,
			Title:       linkedinText{Text: req.Title},
		}}
	}

	body := map[string]any{
		"author":         "urn:li:person:" + req.Account.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": share,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var out struct {
		ID string `json:"id"`
	}
	resp, err := l.http.R().SetContext(ctx).
		SetAuthToken(token).
		SetHeader("X-Restli-Protocol-Version", "2.0.0").
		SetBody(body).
		SetResult(&out).
		Post(l.baseURL + "/ugcPosts")
	if err := checkResponse(models.PlatformLinkedin, resp, err); err != nil {
		return "", err
	}

	id := resp.Header().Get("X-RestLi-Id")
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return "", errors.New("linkedin returned no share id")
	}
	return id, nil
}

type linkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func (l *Linkedin) Profile(ctx context.Context, token string) (*Profile, error) {
	var u linkedinUserInfo
	resp, err := l.http.R().SetContext(ctx).
		SetAuthToken(token).
		SetResult(&u).
		Get(l.baseURL + "/userinfo")
	if err := checkResponse(models.PlatformLinkedin, resp, err); err != nil {
		return nil, err
	}
	return &Profile{
		AccountID: u.Sub,
		Name:      u.Name,
		Username:  u.Email,
		Picture:   u.Picture,
	}, nil
}
