package platform

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/pkg/errors"
)

const facebookGraphURL = "https://graph.facebook.com/v21.0"

// Facebook publishes to a page with a page access token.
type Facebook struct {
	http    *resty.Client
	baseURL string
}

func NewFacebook(client *resty.Client) *Facebook {
	return &Facebook{http: client, baseURL: facebookGraphURL}
}

func (f *Facebook) Platform() models.Platform { return models.PlatformFacebook }

type graphID struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (f *Facebook) Publish(ctx context.Context, token string, req *publish.PublishRequest) (string, error) {
	pageID := req.Account.AccountID
	r := f.http.R().SetContext(ctx).SetQueryParam("access_token", token)

	var out graphID
	var resp *resty.Response
	var err error

	video := firstOfKind(req.Media, models.MediaVideo)
	image := firstOfKind(req.Media, models.MediaImage)

	switch {
	case video != nil:
		resp, err = r.SetResult(&out).
			SetFormData(map[string]string{
				"file_url":    video.FileURL,
				"title":       req.Title,
				"description": req.Content,
			}).
			Post(f.baseURL + "/" + pageID + "/videos")
	case image != nil:
		resp, err = r.SetResult(&out).
			SetFormData(map[string]string{
				"url":     image.FileURL,
				"caption": req.Content,
			}).
			Post(f.baseURL + "/" + pageID + "/photos")
	default:
		resp, err = r.SetResult(&out).
			SetFormData(map[string]string{"message": req.Content}).
			Post(f.baseURL + "/" + pageID + "/feed")
	}
	if err := checkGraph(models.PlatformFacebook, resp, err); err != nil {
		return "", err
	}

	if out.PostID != "" {
		return out.PostID, nil
	}
	if out.ID == "" {
		return "", errors.New("facebook returned no post id")
	}
	return out.ID, nil
}

type facebookPages struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		AccessToken string `json:"access_token"`
		Picture     struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	} `json:"data"`
}

// Profile selects the first page the user manages and swaps the user token
// for that page's token.
func (f *Facebook) Profile(ctx context.Context, token string) (*Profile, error) {
	var pages facebookPages
	resp, err := f.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_token": token,
			"fields":       "id,name,access_token,picture",
		}).
		SetResult(&pages).
		Get(f.baseURL + "/me/accounts")
	if err := checkGraph(models.PlatformFacebook, resp, err); err != nil {
		return nil, err
	}
	if len(pages.Data) == 0 {
		return nil, errors.New("facebook user manages no pages")
	}

	page := pages.Data[0]
	return &Profile{
		AccountID:   page.ID,
		Name:        page.Name,
		Username:    page.Name,
		Picture:     page.Picture.Data.URL,
		AccessToken: page.AccessToken,
	}, nil
}
