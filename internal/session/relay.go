package session

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/repository"
)

const DefaultFailureThreshold = 3

type CommitStatus int

const (
	CommitIdle CommitStatus = iota
	CommitCommitted
	CommitPending
	CommitFallback
)

func (c CommitStatus) String() string {
	switch c {
	case CommitIdle:
		return "idle"
	case CommitCommitted:
		return "committed"
	case CommitPending:
		return "pending"
	case CommitFallback:
		return "fallback"
	}
	return "unknown"
}

// Rescuer takes over a post the relay has given up on.
type Rescuer interface {
	Rescue(ctx context.Context, post models.Post) error
}

// Invalidator drops a cached post listing.
type Invalidator interface {
	Invalidate()
}

// Relay persists a session's pending post on the session's next
// interaction, keeping it until an insert succeeds.
type Relay struct {
	posts     repository.PostRepository
	listing   Invalidator
	rescuer   Rescuer
	threshold int
}

func NewRelay(posts repository.PostRepository, listing Invalidator, threshold int) *Relay {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	return &Relay{posts: posts, listing: listing, threshold: threshold}
}

func (r *Relay) WithRescuer(rescuer Rescuer) *Relay {
	r.rescuer = rescuer
	return r
}

// Resume attempts the pending insert, if any.
func (r *Relay) Resume(ctx context.Context, s *Session) CommitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.resumeLocked(ctx, s)
}

// Retry clears a fallback and attempts the pending insert once more.
func (r *Relay) Retry(ctx context.Context, s *Session) CommitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fallback = false
	s.failures = 0
	return r.resumeLocked(ctx, s)
}

func (r *Relay) hold(s *Session, post models.Post) {
	s.pending = &post
	s.failures = 0
	s.fallback = false
}

func (r *Relay) resumeLocked(ctx context.Context, s *Session) CommitStatus {
	if s.fallback {
		return CommitFallback
	}
	if s.pending == nil {
		return CommitIdle
	}

	err := r.posts.Create(ctx, s.pending)
	if err == nil {
		slog.Info("post committed", "session", s.ID, "post", s.pending.ID)
		s.pending = nil
		s.failures = 0
		if s.step == StepViewing {
			s.draft.reset()
		}
		if r.listing != nil {
			r.listing.Invalidate()
		}
		return CommitCommitted
	}

	s.failures++
	slog.Warn("post commit failed", "session", s.ID, "post", s.pending.ID, "failures", s.failures, "error", err)
	if s.failures < r.threshold {
		return CommitPending
	}

	s.fallback = true
	if r.rescuer != nil {
		if err := r.rescuer.Rescue(ctx, *s.pending); err != nil {
			slog.Info(err.Error())
		} else {
			slog.Info("post handed to rescue queue", "session", s.ID, "post", s.pending.ID)
			s.pending = nil
		}
	}
	return CommitFallback
}
