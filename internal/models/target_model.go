package models

import "time"

type TargetStatus string

const (
	TargetPending TargetStatus = "pending"
	TargetSuccess TargetStatus = "success"
	TargetFailed  TargetStatus = "failed"
)

// FailureKind classifies why a target failed.
type FailureKind string

const (
	FailureNone                FailureKind = ""
	FailureAccountNotConnected FailureKind = "account_not_connected"
	FailurePlatformRejected    FailureKind = "platform_rejected"
	FailureTimeout             FailureKind = "timeout"
	FailureUnauthorized        FailureKind = "unauthorized"
	FailureInternal            FailureKind = "internal"
)

// Target is one (post, social account) publish attempt and its outcome.
type Target struct {
	ID            int64        `db:"id" json:"id"`
	PostID        int64        `db:"post_id" json:"post_id"`
	AccountID     int64        `db:"account_id" json:"account_id"`
	Platform      Platform     `db:"platform" json:"platform"`
	Position      int          `db:"position" json:"position"`
	Status        TargetStatus `db:"status" json:"status"`
	FailureKind   FailureKind  `db:"failure_kind" json:"failure_kind,omitempty"`
	FailureReason string       `db:"failure_reason" json:"failure_reason,omitempty"`
	RemotePostID  string       `db:"remote_post_id" json:"remote_post_id,omitempty"`
	ResolvedAt    *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

func (t *Target) Resolved() bool {
	return t.Status != TargetPending
}
