package repository

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/walk-gallery/internal/models"
)

// CachedPostRepository keeps the last listing for ttl. Writes through it
// invalidate the listing; writers elsewhere must call Invalidate.
type CachedPostRepository struct {
	next PostRepository
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	posts     []*models.Post
	fetchedAt time.Time
	valid     bool
	gen       uint64
}

func NewCachedPostRepository(next PostRepository, ttl time.Duration) *CachedPostRepository {
	return &CachedPostRepository{next: next, ttl: ttl, now: time.Now}
}

func (r *CachedPostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.next.Create(ctx, post); err != nil {
		return err
	}
	r.Invalidate()
	return nil
}

func (r *CachedPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	r.mu.Lock()
	if r.valid && r.now().Sub(r.fetchedAt) < r.ttl {
		posts := r.posts
		r.mu.Unlock()
		return posts, nil
	}
	gen := r.gen
	r.mu.Unlock()

	posts, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// An invalidation during the fetch means posts may already be stale.
	if gen == r.gen {
		r.posts = posts
		r.fetchedAt = r.now()
		r.valid = true
	}
	r.mu.Unlock()
	return posts, nil
}

func (r *CachedPostRepository) Remove(ctx context.Context, id string) error {
	if err := r.next.Remove(ctx, id); err != nil {
		return err
	}
	r.Invalidate()
	return nil
}

func (r *CachedPostRepository) Invalidate() {
	r.mu.Lock()
	r.posts = nil
	r.valid = false
	r.gen++
	r.mu.Unlock()
}
