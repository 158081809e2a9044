package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/walk-gallery/internal/repository"
)

func (j *Queue) HandleRescuePostTask(ctx context.Context, task *asynq.Task) error {
	var payload RescuePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	return j.InsertPost(ctx, payload)
}

// InsertPost stores the rescued post. Any error other than an empty post is
// returned so the queue retries with backoff.
func (j *Queue) InsertPost(ctx context.Context, payload RescuePostPayload) error {
	err := j.posts.Create(ctx, &payload.Post)
	if errors.Is(err, repository.ErrEmptyPost) {
		slog.Warn("dropping empty rescued post", "post", payload.Post.ID)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("rescued post committed", "post", payload.Post.ID)
	return nil
}
