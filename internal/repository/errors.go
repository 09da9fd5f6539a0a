package repository

import "errors"

var (
	ErrTokenChanged   = errors.New("access token changed since it was read")
	ErrPostDispatched = errors.New("post has already been dispatched")
	ErrNotFound       = errors.New("record not found")
)
