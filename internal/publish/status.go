package publish

import (
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
)

// State is everything the aggregate status depends on.
type State struct {
	DispatchStarted bool
	ScheduledAt     *time.Time
	Targets         []models.TargetStatus
}

// Resolve derives a post status from its targets. The result depends only on
// the multiset of target statuses, never on their order.
func Resolve(s State) models.PostStatus {
	if !s.DispatchStarted {
		if s.ScheduledAt != nil {
			return models.PostStatusScheduled
		}
		return models.PostStatusDraft
	}

	var pending, success, failed int
	for _, t := range s.Targets {
		switch t {
		case models.TargetSuccess:
			success++
		case models.TargetFailed:
			failed++
		default:
			pending++
		}
	}

	switch {
	case pending > 0:
		return models.PostStatusPublishing
	case success > 0 && failed == 0:
		return models.PostStatusPublished
	case success > 0 && failed > 0:
		return models.PostStatusPartiallyPublished
	default:
		return models.PostStatusFailed
	}
}

// StateOf builds the resolver input from a post and its targets.
func StateOf(p *models.Post, targets []*models.Target) State {
	st := State{
		DispatchStarted: p.Dispatched(),
		ScheduledAt:     p.ScheduledAt,
		Targets:         make([]models.TargetStatus, len(targets)),
	}
	for i, t := range targets {
		st.Targets[i] = t.Status
	}
	return st
}
