package models

import (
	"strings"
	"time"
)

// visible characters kept on each side of a redacted key
const keyVisible = 4

type ApiKey struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Key       string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Redacted returns a copy safe to list: only the ends of the key survive.
func (k *ApiKey) Redacted() *ApiKey {
	out := *k
	if len(k.Key) > 2*keyVisible {
		out.Key = k.Key[:keyVisible] + strings.Repeat("*", len(k.Key)-2*keyVisible) + k.Key[len(k.Key)-keyVisible:]
	} else {
		out.Key = strings.Repeat("*", len(k.Key))
	}
	return &out
}
