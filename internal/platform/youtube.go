package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Youtube uploads the first video of a post, streamed from object storage.
type Youtube struct {
	http     *resty.Client
	endpoint string
}

func NewYoutube(client *resty.Client) *Youtube {
	return &Youtube{http: client}
}

func (y *Youtube) Platform() models.Platform { return models.PlatformYoutube }

func (y *Youtube) service(ctx context.Context, token string) (*youtube.Service, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if y.endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.endpoint))
	}
	return youtube.NewService(ctx, opts...)
}

func (y *Youtube) Publish(ctx context.Context, token string, req *publish.PublishRequest) (string, error) {
	video := firstOfKind(req.Media, models.MediaVideo)
	if video == nil {
		return "", &publish.RejectedError{Platform: models.PlatformYoutube, Payload: "youtube posts need a video"}
	}

	svc, err := y.service(ctx, token)
	if err != nil {
		return "", errors.Wrap(err, "creating youtube service")
	}

	resp, err := y.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(video.FileURL)
	if err != nil {
		return "", errors.Wrap(err, "downloading video")
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("downloading video: unexpected status %d", resp.StatusCode())
	}

	title := req.Title
	if title == "" {
		title = video.FileName
	}
	meta := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: req.Content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, meta).
		Media(body, googleapi.ContentType(video.FileType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", youtubeError(err)
	}
	return uploaded.Id, nil
}

func (y *Youtube) Profile(ctx context.Context, token string) (*Profile, error) {
	svc, err := y.service(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "creating youtube service")
	}

	res, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, youtubeError(err)
	}
	if len(res.Items) == 0 {
		return nil, errors.New("google account has no youtube channel")
	}

	ch := res.Items[0]
	p := &Profile{
		AccountID: ch.Id,
		Name:      ch.Snippet.Title,
		Username:  ch.Snippet.CustomUrl,
	}
	if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
		p.Picture = ch.Snippet.Thumbnails.Default.Url
	}
	return p, nil
}

func youtubeError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return errors.Wrap(err, "youtube request failed")
	}
	if gerr.Code == http.StatusUnauthorized || youtubeAuthReason(gerr) {
		return errors.Wrapf(publish.ErrUnauthorized, "youtube: %s", gerr.Message)
	}
	return &publish.RejectedError{Platform: models.PlatformYoutube, StatusCode: gerr.Code, Payload: gerr.Message}
}

// youtubeAuthReason reports whether the error items blame the credentials.
// Quota and rate limit refusals also come back as 403.
func youtubeAuthReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "authError", "invalidCredentials":
			return true
		}
	}
	return false
}
