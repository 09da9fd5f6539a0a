package platform

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/pkg/errors"
)

const instagramGraphURL = "https://graph.instagram.com/v21.0"

// Instagram publishes in two steps: a media container is created, then
// published. Carousels create one child container per item first.
type Instagram struct {
	http    *resty.Client
	baseURL string
}

func NewInstagram(client *resty.Client) *Instagram {
	return &Instagram{http: client, baseURL: instagramGraphURL}
}

func (ig *Instagram) Platform() models.Platform { return models.PlatformInstagram }

func (ig *Instagram) Publish(ctx context.Context, token string, req *publish.PublishRequest) (string, error) {
	accountID := req.Account.AccountID

	var containerID string
	var err error
	if len(req.Media) > 1 {
		containerID, err = ig.carousel(ctx, token, accountID, req)
	} else {
		params := mediaParams(req.Media[0])
		params["caption"] = req.Content
		containerID, err = ig.createContainer(ctx, token, accountID, params)
	}
	if err != nil {
		return "", err
	}

	var out graphID
	resp, err := ig.http.R().SetContext(ctx).
		SetFormData(map[string]string{
			"creation_id":  containerID,
			"access_token": token,
		}).
		SetResult(&out).
		Post(ig.baseURL + "/" + accountID + "/media_publish")
	if err := checkGraph(models.PlatformInstagram, resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("instagram returned no media id")
	}
	return out.ID, nil
}

func (ig *Instagram) carousel(ctx context.Context, token, accountID string, req *publish.PublishRequest) (string, error) {
	children := make([]string, 0, len(req.Media))
	for _, m := range req.Media {
		params := mediaParams(m)
		params["is_carousel_item"] = "true"
		id, err := ig.createContainer(ctx, token, accountID, params)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return ig.createContainer(ctx, token, accountID, map[string]string{
		"media_type": "CAROUSEL",
		"children":   strings.Join(children, ","),
		"caption":    req.Content,
	})
}

func mediaParams(m *models.MediaAsset) map[string]string {
	if m.Kind() == models.MediaVideo {
		return map[string]string{"media_type": "REELS", "video_url": m.FileURL}
	}
	return map[string]string{"image_url": m.FileURL}
}

func (ig *Instagram) createContainer(ctx context.Context, token, accountID string, params map[string]string) (string, error) {
	params["access_token"] = token

	var out graphID
	resp, err := ig.http.R().SetContext(ctx).
		SetFormData(params).
		SetResult(&out).
		Post(ig.baseURL + "/" + accountID + "/media")
	if err := checkGraph(models.PlatformInstagram, resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("instagram returned no container id")
	}
	return out.ID, nil
}

type instagramUser struct {
	UserID         string `json:"user_id"`
	ID             string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture_url"`
}

func (ig *Instagram) Profile(ctx context.Context, token string) (*Profile, error) {
	var u instagramUser
	resp, err := ig.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "user_id,username,name,profile_picture_url",
			"access_token": token,
		}).
		SetResult(&u).
		Get(ig.baseURL + "/me")
	if err := checkGraph(models.PlatformInstagram, resp, err); err != nil {
		return nil, err
	}

	id := u.UserID
	if id == "" {
		id = u.ID
	}
	return &Profile{
		AccountID: id,
		Name:      u.Name,
		Username:  u.Username,
		Picture:   u.ProfilePicture,
	}, nil
}
