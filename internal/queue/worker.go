package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postpilot/internal/publish"
)

type Triggerer interface {
	Trigger(ctx context.Context, postID int64) (*publish.Report, error)
}

type Worker struct {
	fanout Triggerer
}

func NewWorker(fanout Triggerer) *Worker {
	return &Worker{fanout: fanout}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	report, err := w.fanout.Trigger(ctx, payload.PostID)
	switch {
	case errors.Is(err, publish.ErrAlreadyTriggered),
		errors.Is(err, publish.ErrNotDue),
		errors.Is(err, publish.ErrPostNotFound),
		errors.Is(err, publish.ErrNoTargets):
		slog.Info("publish task skipped", "post_id", payload.PostID, "reason", err.Error())
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		slog.Error("publish task failed", "post_id", payload.PostID, "err", err)
		return err
	}

	slog.Info("post dispatched", "post_id", payload.PostID, "status", report.Status, "targets", len(report.Outcomes))
	return nil
}
