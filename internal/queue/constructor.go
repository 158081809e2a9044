package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/walk-gallery/internal/models"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewRescueTask(payload RescuePostPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRescuePost, taskPayload), nil
}

// EnqueueRescue queues the post for insertion by the worker. The task id is
// derived from the post id, so enqueueing the same post twice is a no-op.
func EnqueueRescue(ctx context.Context, client enqueuer, payload RescuePostPayload) error {
	task, err := NewRescueTask(payload)
	if err != nil {
		return err
	}

	_, err = client.EnqueueContext(ctx, task,
		asynq.TaskID(TaskTypeRescuePost+":"+payload.Post.ID),
		asynq.MaxRetry(rescueMaxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("rescue task enqueued", "post", payload.Post.ID)
	return nil
}

// Rescuer hands stranded posts to the queue.
type Rescuer struct {
	client enqueuer
}

func NewRescuer(client *asynq.Client) *Rescuer {
	return &Rescuer{client: client}
}

func (r *Rescuer) Rescue(ctx context.Context, post models.Post) error {
	return EnqueueRescue(ctx, r.client, RescuePostPayload{Post: post})
}
