package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	config "github.com/maheshrc27/walk-gallery/configs"
	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/service"
)

var (
	ErrStepIncomplete    = errors.New("step is not complete")
	ErrStepRequired      = errors.New("step cannot be skipped")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrWrongStep         = errors.New("nothing can be staged at this step")
	ErrBlankWord         = errors.New("word is blank")
	ErrEmptyDraft        = errors.New("walk has no content")
	ErrCommitPending     = errors.New("previous walk is still being saved")
)

// Policy says which capture steps must be completed rather than skipped.
type Policy struct {
	Required map[Step]bool
}

func PolicyFromConfig(s config.Steps) Policy {
	return Policy{Required: map[Step]bool{
		StepDrawing: s.RequireDrawing,
		StepWord:    s.RequireWord,
		StepPicture: s.RequireImage,
		StepSound:   s.RequireAudio,
	}}
}

var stepSlots = map[Step]models.Slot{
	StepDrawing: models.SlotDrawing,
	StepWord:    models.SlotWord,
	StepPicture: models.SlotImage,
	StepSound:   models.SlotAudio,
}

// Workflow drives sessions through drawing, word, picture and sound, then
// hands the finished walk to the relay.
type Workflow struct {
	media  service.MediaService
	relay  *Relay
	policy Policy
	now    func() time.Time
	newID  func() string
}

func NewWorkflow(media service.MediaService, relay *Relay, policy Policy) *Workflow {
	return &Workflow{
		media:  media,
		relay:  relay,
		policy: policy,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (w *Workflow) StageWord(s *Session, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepWord {
		return fmt.Errorf("%w: %s", ErrWrongStep, s.step)
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return ErrBlankWord
	}
	s.draft.Content.Word = word
	return nil
}

// StageMedia stages data into slot, which must belong to the session's
// current step. Staging the same file again keeps the existing reference.
func (w *Workflow) StageMedia(ctx context.Context, s *Session, slot models.Slot, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot == models.SlotWord || stepSlots[s.step] != slot {
		return fmt.Errorf("%w: %s at %s", ErrWrongStep, slot, s.step)
	}

	key := stagingKey(slot, name, data)
	if s.draft.staged[slot] == key && s.draft.Content.Media(slot) != nil {
		return nil
	}

	ref, err := w.media.Stage(ctx, slot, name, data)
	if err != nil {
		return err
	}

	if s.draft.staged == nil {
		s.draft.staged = make(map[models.Slot]string)
	}
	s.draft.staged[slot] = key
	s.draft.Content.SetMedia(slot, ref)
	return nil
}

func stagingKey(slot models.Slot, name string, data []byte) string {
	sum := sha256.Sum256(data)
	return string(slot) + "/" + name + "/" + hex.EncodeToString(sum[:])
}

// Next moves forward once the current step is complete. Leaving the sound
// step commits the walk.
func (w *Workflow) Next(ctx context.Context, s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.step.capture() {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, s.step)
	}
	if !s.complete(s.step) {
		return fmt.Errorf("%w: %s", ErrStepIncomplete, s.step)
	}
	return w.advance(ctx, s)
}

// Skip moves forward without completing the current step, if the policy
// allows it. Data already staged for the step is kept.
func (w *Workflow) Skip(ctx context.Context, s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.step.capture() {
		return fmt.Errorf("%w: skip from %s", ErrInvalidTransition, s.step)
	}
	if w.policy.Required[s.step] {
		return fmt.Errorf("%w: %s", ErrStepRequired, s.step)
	}
	return w.advance(ctx, s)
}

// Back returns to the previous capture step. Staged data is untouched.
func (w *Workflow) Back(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.step.capture() || s.step == StepDrawing {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, s.step)
	}
	s.step--
	return nil
}

// Restart leaves the gallery view for a fresh draft. A post still waiting
// to be committed stays with the session.
func (w *Workflow) Restart(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepViewing {
		return fmt.Errorf("%w: restart from %s", ErrInvalidTransition, s.step)
	}
	s.draft.reset()
	if s.pending == nil {
		s.fallback = false
	}
	s.step = StepDrawing
	return nil
}

func (w *Workflow) advance(ctx context.Context, s *Session) error {
	if s.step != StepSound {
		s.step++
		return nil
	}
	return w.commit(ctx, s)
}

func (w *Workflow) commit(ctx context.Context, s *Session) error {
	if s.draft.Content.Empty() {
		return ErrEmptyDraft
	}
	if s.pending != nil {
		w.relay.resumeLocked(ctx, s)
		if s.pending != nil {
			return ErrCommitPending
		}
	}

	s.step = StepCommitting
	post := models.NewPost(w.newID(), s.draft.Content, w.now())
	w.relay.hold(s, post)
	s.step = StepViewing
	return nil
}

func (s Step) capture() bool {
	return s >= StepDrawing && s <= StepSound
}

func (s *Session) complete(step Step) bool {
	c := s.draft.Content
	switch step {
	case StepDrawing:
		return c.Drawing != nil
	case StepWord:
		return c.HasWord()
	case StepPicture:
		return c.Image != nil
	case StepSound:
		return c.Audio != nil
	}
	return false
}
