package service

import (
	"errors"
	"net/http"

	"github.com/maheshrc27/postpilot/internal/generate"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/maheshrc27/postpilot/internal/queue"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

var (
	ErrParamInvalid     = errors.New("invalid parameters")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrUserNotFound     = errors.New("user doesn't exist")
	ErrPostNotFound     = errors.New("post doesn't exist")
	ErrAccountNotFound  = errors.New("social account doesn't exist")
	ErrAccountExpired   = errors.New("social account must be reconnected")
	ErrKeyNotFound      = errors.New("key doesn't exist")
	ErrKeyLimit         = errors.New("only 5 API keys can be created")
	ErrInvalidState     = errors.New("invalid or expired OAuth state")
	ErrFileNotSupported = errors.New("file type is not supported")
	ErrMediaNotAccepted = errors.New("media is not accepted by a selected platform")
)

// ErrorMap assigns an HTTP status to every error a handler may surface.
// Errors are matched with errors.Is, so wrapped errors resolve too.
var ErrorMap = map[error]int{
	ErrParamInvalid:              http.StatusBadRequest,
	ErrUnauthenticated:           http.StatusUnauthorized,
	ErrUserNotFound:              http.StatusNotFound,
	ErrPostNotFound:              http.StatusNotFound,
	ErrAccountNotFound:           http.StatusNotFound,
	ErrAccountExpired:            http.StatusConflict,
	ErrKeyNotFound:               http.StatusNotFound,
	ErrKeyLimit:                  http.StatusBadRequest,
	ErrInvalidState:              http.StatusBadRequest,
	ErrFileNotSupported:          http.StatusBadRequest,
	ErrMediaNotAccepted:          http.StatusBadRequest,
	utils.ErrValidation:          http.StatusBadRequest,
	generate.ErrInvalidRequest:   http.StatusBadRequest,
	repository.ErrPostDispatched: http.StatusConflict,
	repository.ErrNotFound:       http.StatusNotFound,
	publish.ErrPostNotFound:      http.StatusNotFound,
	publish.ErrAlreadyTriggered:  http.StatusConflict,
	publish.ErrNotDue:            http.StatusConflict,
	publish.ErrNoTargets:         http.StatusBadRequest,
	queue.ErrAlreadyScheduled:    http.StatusConflict,
}

// StatusOf returns the HTTP status for err, 500 when it is not mapped.
func StatusOf(err error) int {
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code
		}
	}
	return http.StatusInternalServerError
}
