package publish

import (
	"errors"
	"fmt"

	"github.com/maheshrc27/postpilot/internal/models"
)

var (
	ErrAccountNotConnected = errors.New("social account is not connected")
	ErrUnauthorized        = errors.New("platform rejected the account credentials")
	ErrTimeout             = errors.New("timed out")
	ErrInterrupted         = errors.New("interrupted before the platform answered")
	ErrPanicked            = errors.New("panicked")
	ErrPlatformRejected    = errors.New("platform rejected the post")

	ErrPostNotFound      = errors.New("post not found")
	ErrNotDue            = errors.New("post is not due for publishing")
	ErrAlreadyTriggered  = errors.New("post dispatch already triggered")
	ErrNoTargets         = errors.New("post has no targets")
	ErrStaleDispatch     = errors.New("post was unscheduled during dispatch")
	ErrTargetResolved    = errors.New("target already resolved")
	ErrDuplicateDispatch = errors.New("target dispatched twice in one cycle")
)

// RejectedError carries the provider's error payload for a refused publish.
type RejectedError struct {
	Platform   models.Platform
	StatusCode int
	Payload    string
}

func (e *RejectedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s rejected the post: %s", e.Platform, e.Payload)
	}
	return fmt.Sprintf("%s rejected the post (status %d): %s", e.Platform, e.StatusCode, e.Payload)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrPlatformRejected
}
