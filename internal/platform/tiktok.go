package platform

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/pkg/errors"
)

const tiktokAPIURL = "https://open.tiktokapis.com/v2"

type Tiktok struct {
	http    *resty.Client
	baseURL string
}

func NewTiktok(client *resty.Client) *Tiktok {
	return &Tiktok{http: client, baseURL: tiktokAPIURL}
}

func (t *Tiktok) Platform() models.Platform { return models.PlatformTiktok }

type tiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

type tiktokPublishResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
	} `json:"data"`
	Error tiktokError `json:"error"`
}

type tiktokVideoPostInfo struct {
	Title                 string `json:"title"`
	PrivacyLevel          string `json:"privacy_level"`
	DisableDuet           bool   `json:"disable_duet"`
	DisableComment        bool   `json:"disable_comment"`
	DisableStitch         bool   `json:"disable_stitch"`
	VideoCoverTimestampMs int    `json:"video_cover_timestamp_ms"`
}

type tiktokPhotoPostInfo struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableComment bool   `json:"disable_comment"`
	AutoAddMusic   bool   `json:"auto_add_music"`
}

type tiktokVideoSource struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type tiktokPhotoSource struct {
	Source          string   `json:"source"`
	PhotoCoverIndex int      `json:"photo_cover_index"`
	PhotoImages     []string `json:"photo_images"`
}

const tiktokPrivacy = "PUBLIC_TO_EVERYONE"

// Publish pulls the media from its public URL. Videos use the video endpoint,
// image sets the content endpoint in photo mode.
func (t *Tiktok) Publish(ctx context.Context, token string, req *publish.PublishRequest) (string, error) {
	var body any
	var path string

	if video := firstOfKind(req.Media, models.MediaVideo); video != nil {
		path = "/post/publish/video/init/"
		body = map[string]any{
			"post_info": tiktokVideoPostInfo{
				Title:                 req.Content,
				PrivacyLevel:          tiktokPrivacy,
				VideoCoverTimestampMs: 1000,
			},
			"source_info": tiktokVideoSource{Source: "PULL_FROM_URL", VideoURL: video.FileURL},
		}
	} else {
		photos := make([]string, 0, len(req.Media))
		for _, m := range req.Media {
			photos = append(photos, m.FileURL)
		}
		path = "/post/publish/content/init/"
		body = map[string]any{
			"post_info": tiktokPhotoPostInfo{
				Title:        req.Title,
				Description:  req.Content,
				PrivacyLevel: tiktokPrivacy,
				AutoAddMusic: true,
			},
			"source_info": tiktokPhotoSource{Source: "PULL_FROM_URL", PhotoImages: photos},
			"post_mode":   "DIRECT_POST",
			"media_type":  "PHOTO",
		}
	}

	var out tiktokPublishResponse
	resp, err := t.http.R().SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json; charset=UTF-8").
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(t.baseURL + path)
	if err := checkResponse(models.PlatformTiktok, resp, err); err != nil {
		return "", err
	}
	if out.Error.Code != "" && out.Error.Code != "ok" {
		if out.Error.Code == "access_token_invalid" {
			return "", errors.Wrap(publish.ErrUnauthorized, out.Error.Message)
		}
		return "", &publish.RejectedError{Platform: models.PlatformTiktok, StatusCode: resp.StatusCode(), Payload: out.Error.Code + ": " + out.Error.Message}
	}
	if out.Data.PublishID == "" {
		return "", errors.New("tiktok returned no publish id")
	}
	return out.Data.PublishID, nil
}

type tiktokUserResponse struct {
	Data struct {
		User struct {
			OpenID      string `json:"open_id"`
			AvatarURL   string `json:"avatar_url"`
			DisplayName string `json:"display_name"`
			Username    string `json:"username"`
		} `json:"user"`
	} `json:"data"`
	Error tiktokError `json:"error"`
}

func (t *Tiktok) Profile(ctx context.Context, token string) (*Profile, error) {
	var out tiktokUserResponse
	resp, err := t.http.R().SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("fields", "open_id,avatar_url,display_name,username").
		SetResult(&out).
		Get(t.baseURL + "/user/info/")
	if err := checkResponse(models.PlatformTiktok, resp, err); err != nil {
		return nil, err
	}

	u := out.Data.User
	return &Profile{
		AccountID: u.OpenID,
		Name:      u.DisplayName,
		Username:  u.Username,
		Picture:   u.AvatarURL,
	}, nil
}
