package queue

import (
	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/repository"
)

type Queue struct {
	posts repository.PostRepository
}

func NewQueue(posts repository.PostRepository) *Queue {
	return &Queue{posts: posts}
}

const (
	TaskTypeRescuePost = "rescue:post"

	rescueMaxRetry = 25
)

// RescuePostPayload carries a post a session could not persist.
type RescuePostPayload struct {
	Post models.Post `json:"post"`
}
