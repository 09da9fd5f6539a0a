package platform

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/pkg/errors"
)

// NewHTTPClient is the resty client shared by every adapter. Deadlines come
// from the request context; the client timeout is only a backstop.
func NewHTTPClient() *resty.Client {
	c := resty.New().
		SetTimeout(5*time.Minute).
		SetHeader("Accept", "application/json")
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal
	return c
}

// graphError is the error envelope of the Facebook and Instagram Graph APIs.
type graphError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// graph code for expired or invalidated access tokens
const graphInvalidToken = 190

func checkResponse(p models.Platform, resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrapf(err, "%s request failed", p)
	}

	// 403 is a permission or quota refusal, not a dead token
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized:
		return errors.Wrapf(publish.ErrUnauthorized, "%s: %s", p, resp.String())
	case resp.IsError():
		return &publish.RejectedError{Platform: p, StatusCode: code, Payload: resp.String()}
	}
	return nil
}

// checkGraph additionally recognizes the Graph API's invalid token code,
// which is reported with status 400 or 403.
func checkGraph(p models.Platform, resp *resty.Response, err error) error {
	if err == nil && resp.IsError() {
		var ge graphError
		if json.Unmarshal(resp.Body(), &ge) == nil && ge.Error.Code == graphInvalidToken {
			return errors.Wrapf(publish.ErrUnauthorized, "%s: %s", p, ge.Error.Message)
		}
	}
	return checkResponse(p, resp, err)
}
