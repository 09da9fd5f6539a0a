package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
)

const TaskTypePublishPost = "post:publish"

var ErrAlreadyScheduled = errors.New("post already has a pending publish task")

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

// TaskID is the idempotency key of a post's publish task.
func TaskID(postID int64) string {
	return "post-" + strconv.FormatInt(postID, 10)
}

func NewPublishPostTask(postID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}

// Scheduler keeps at most one publish task per post in the queue.
type Scheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func NewScheduler(client *asynq.Client, inspector *asynq.Inspector) *Scheduler {
	return &Scheduler{client: client, inspector: inspector, queue: "default"}
}

func (s *Scheduler) Schedule(ctx context.Context, postID int64, at time.Time) error {
	err := s.enqueue(ctx, postID, at)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}

	// a finished task keeps its id until deleted
	info, ierr := s.inspector.GetTaskInfo(s.queue, TaskID(postID))
	if ierr != nil || (info.State != asynq.TaskStateArchived && info.State != asynq.TaskStateCompleted) {
		return ErrAlreadyScheduled
	}
	if err := s.inspector.DeleteTask(s.queue, TaskID(postID)); err != nil {
		return fmt.Errorf("removing finished task of post %d: %w", postID, err)
	}
	if err := s.enqueue(ctx, postID, at); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return ErrAlreadyScheduled
		}
		return err
	}
	return nil
}

func (s *Scheduler) enqueue(ctx context.Context, postID int64, at time.Time) error {
	task, err := NewPublishPostTask(postID)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task,
		asynq.TaskID(TaskID(postID)),
		asynq.Queue(s.queue),
		asynq.ProcessAt(at),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return err
	}

	slog.Info("publish task scheduled", "post_id", postID, "task_id", info.ID, "process_at", at)
	return nil
}

// Cancel removes the post's task. A missing task is not an error.
func (s *Scheduler) Cancel(ctx context.Context, postID int64) error {
	err := s.inspector.DeleteTask(s.queue, TaskID(postID))
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}
