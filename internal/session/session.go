package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/walk-gallery/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type Step int

const (
	StepDrawing Step = iota
	StepWord
	StepPicture
	StepSound
	StepCommitting
	StepViewing
)

func (s Step) String() string {
	switch s {
	case StepDrawing:
		return "drawing"
	case StepWord:
		return "word"
	case StepPicture:
		return "picture"
	case StepSound:
		return "sound"
	case StepCommitting:
		return "committing"
	case StepViewing:
		return "viewing"
	}
	return "unknown"
}

// Draft is the content collected so far. staged remembers which upload
// filled each media slot so an identical re-stage is a no-op.
type Draft struct {
	Content models.Content
	staged  map[models.Slot]string
}

func (d *Draft) reset() {
	d.Content = models.Content{}
	d.staged = nil
}

// Session is owned by one participant. Every interaction holds mu.
type Session struct {
	ID string

	mu       sync.Mutex
	step     Step
	draft    Draft
	pending  *models.Post
	failures int
	fallback bool
	touched  time.Time
}

func newSession(now time.Time) *Session {
	return &Session{ID: uuid.NewString(), step: StepDrawing, touched: now}
}

// State is a copy of the session for rendering.
type State struct {
	Step     string         `json:"step"`
	Draft    models.Content `json:"draft"`
	Pending  bool           `json:"pending"`
	Failures int            `json:"failures"`
	Fallback bool           `json:"fallback"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		Step:     s.step.String(),
		Draft:    s.draft.Content,
		Pending:  s.pending != nil,
		Failures: s.failures,
		Fallback: s.fallback,
	}
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}
