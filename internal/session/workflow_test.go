package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/walk-gallery/internal/database"
	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMedia struct {
	mu    sync.Mutex
	calls map[models.Slot]int
}

func (m *countingMedia) Stage(ctx context.Context, slot models.Slot, name string, data []byte) (*models.MediaRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[models.Slot]int{}
	}
	m.calls[slot]++
	return &models.MediaRef{Name: name, MimeType: "application/octet-stream", URL: "https://cdn.example/" + name}, nil
}

func openPosts(t *testing.T) repository.PostRepository {
	t.Helper()
	g, err := database.Open("sqlite://"+filepath.Join(t.TempDir(), "gallery.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	require.NoError(t, database.Migrate(context.Background(), g))
	return repository.NewPostRepository(g)
}

type fixture struct {
	registry *Registry
	workflow *Workflow
	relay    *Relay
	media    *countingMedia
}

func newFixture(posts repository.PostRepository, policy Policy) *fixture {
	media := &countingMedia{}
	relay := NewRelay(posts, nil, 3)
	return &fixture{
		registry: NewRegistry(time.Hour),
		workflow: NewWorkflow(media, relay, policy),
		relay:    relay,
		media:    media,
	}
}

func TestScenarioWordOnly(t *testing.T) {
	ctx := context.Background()
	posts := openPosts(t)
	f := newFixture(posts, Policy{})
	s := f.registry.Create()

	require.NoError(t, f.workflow.Skip(ctx, s))
	require.NoError(t, f.workflow.StageWord(s, "  echo "))
	require.NoError(t, f.workflow.Next(ctx, s))
	require.NoError(t, f.workflow.Skip(ctx, s))
	require.NoError(t, f.workflow.Skip(ctx, s))

	// The walk is visible to the participant before it is durable.
	assert.Equal(t, StepViewing, s.Step())
	assert.True(t, s.State().Pending)
	stored, err := posts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.Equal(t, CommitCommitted, f.relay.Resume(ctx, s))
	assert.Equal(t, CommitIdle, f.relay.Resume(ctx, s))

	stored, err = posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.Content{Word: "echo"}, stored[0].Content)
	assert.NotEmpty(t, stored[0].ID)
	assert.NotEmpty(t, stored[0].CreatedAtCompact)
	assert.NotEmpty(t, stored[0].CreatedAtDisplay)

	state := s.State()
	assert.False(t, state.Pending)
	assert.True(t, state.Draft.Empty(), "draft resets once committed")
}

func TestForwardTransitionsAreGated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(openPosts(t), Policy{})
	s := f.registry.Create()

	assert.True(t, errors.Is(f.workflow.Next(ctx, s), ErrStepIncomplete))
	require.NoError(t, f.workflow.StageMedia(ctx, s, models.SlotDrawing, "sketch.png", []byte("drawing")))
	require.NoError(t, f.workflow.Next(ctx, s))

	assert.True(t, errors.Is(f.workflow.Next(ctx, s), ErrStepIncomplete))
	assert.True(t, errors.Is(f.workflow.StageWord(s, "   "), ErrBlankWord))
	assert.True(t, errors.Is(f.workflow.StageMedia(ctx, s, models.SlotImage, "a.png", []byte("x")), ErrWrongStep))
	require.NoError(t, f.workflow.StageWord(s, "echo"))
	require.NoError(t, f.workflow.Next(ctx, s))

	assert.Equal(t, StepPicture, s.Step())
	assert.True(t, errors.Is(f.workflow.Next(ctx, s), ErrStepIncomplete))
	assert.True(t, errors.Is(f.workflow.StageWord(s, "late"), ErrWrongStep))
	require.NoError(t, f.workflow.StageMedia(ctx, s, models.SlotImage, "walk.png", []byte("image")))
	require.NoError(t, f.workflow.Next(ctx, s))

	assert.True(t, errors.Is(f.workflow.Next(ctx, s), ErrStepIncomplete))
	require.NoError(t, f.workflow.StageMedia(ctx, s, models.SlotAudio, "walk.wav", []byte("audio")))
	require.NoError(t, f.workflow.Next(ctx, s))

	assert.Equal(t, StepViewing, s.Step())
	assert.True(t, errors.Is(f.workflow.Next(ctx, s), ErrInvalidTransition))
	assert.True(t, errors.Is(f.workflow.Back(s), ErrInvalidTransition))
}

func TestRequiredStepsCannotBeSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(openPosts(t), Policy{Required: map[Step]bool{StepDrawing: true}})
	s := f.registry.Create()

	assert.True(t, errors.Is(f.workflow.Skip(ctx, s), ErrStepRequired))
	assert.Equal(t, StepDrawing, s.Step())

	require.NoError(t, f.workflow.StageMedia(ctx, s, models.SlotDrawing, "sketch.png", []byte("drawing")))
	require.NoError(t, f.workflow.Next(ctx, s))
	require.NoError(t, f.workflow.Skip(ctx, s))
	assert.Equal(t, StepPicture, s.Step())
}

func TestEmptyDraftIsNeverCommitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(openPosts(t), Policy{})
	s := f.registry.Create()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.workflow.Skip(ctx, s))
	}
	assert.True(t, errors.Is(f.workflow.Skip(ctx, s), ErrEmptyDraft))
	assert.Equal(t, StepSound, s.Step())
	assert.False(t, s.State().Pending)
}

func TestBackwardNavigationKeepsStagedImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(openPosts(t), Policy{})
	s := f.registry.Create()

	require.NoError(t, f.workflow.Skip(ctx, s))
	require.NoError(t, f.workflow.StageWord(s, "echo"))
	require.NoError(t, f.workflow.Next(ctx, s))
	require.NoError(t, f.workflow.StageMedia(ctx, s, models.SlotImage, "walk.png", []byte("image")))

	require.NoError(t, f.workflow.Back(s))
	assert.Equal(t, StepWord, s.Step())
	require.NoError(t, f.workflow.Next(ctx, s))
	assert.Equal(t, StepPicture, s.Step())

	state := s.State()
	require.NotNil(t, state.Draft.Image)
	assert.Equal(t, "walk.png", state.Draft.Image.Name)
	assert.Equal(t, "echo", state.Draft.Word)

	// Re-staging the same file is a no-op.
	require.NoError(t, f.workflow.StageMedia(ctx, s, models.SlotImage, "walk.png", []byte("image")))
	require.NoError(t, f.workflow.Next(ctx, s))
	assert.Equal(t, 1, f.media.calls[models.SlotImage])

	// A different file replaces it.
	require.NoError(t, f.workflow.Back(s))
	require.NoError(t, f.workflow.StageMedia(ctx, s, models.SlotImage, "other.png", []byte("image 2")))
	assert.Equal(t, 2, f.media.calls[models.SlotImage])
	assert.Equal(t, "other.png", s.State().Draft.Image.Name)
	assert.Equal(t, "echo", s.State().Draft.Word)
}

func unavailablePosts(opens *int) repository.PostRepository {
	g := database.NewGateway(func(ctx context.Context) (database.Conn, error) {
		*opens++
		return nil, errors.New("no route to host")
	}, database.SQLite, time.Second)
	return repository.NewPostRepository(g)
}

type recordingRescuer struct {
	posts []models.Post
	err   error
}

func (r *recordingRescuer) Rescue(ctx context.Context, post models.Post) error {
	if r.err != nil {
		return r.err
	}
	r.posts = append(r.posts, post)
	return nil
}

func commitWord(t *testing.T, f *fixture, s *Session, word string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.workflow.Skip(ctx, s))
	require.NoError(t, f.workflow.StageWord(s, word))
	require.NoError(t, f.workflow.Next(ctx, s))
	require.NoError(t, f.workflow.Skip(ctx, s))
	require.NoError(t, f.workflow.Skip(ctx, s))
}

func TestScenarioPersistenceUnavailable(t *testing.T) {
	ctx := context.Background()
	opens := 0
	f := newFixture(unavailablePosts(&opens), Policy{})
	s := f.registry.Create()
	commitWord(t, f, s, "echo")

	assert.Equal(t, CommitPending, f.relay.Resume(ctx, s))
	assert.Equal(t, database.DefaultAttempts, opens)

	state := s.State()
	assert.True(t, state.Pending)
	assert.Equal(t, 1, state.Failures)
	assert.Equal(t, "echo", state.Draft.Word)

	assert.Equal(t, CommitPending, f.relay.Resume(ctx, s))
	assert.Equal(t, CommitFallback, f.relay.Resume(ctx, s))
	assert.Equal(t, 3*database.DefaultAttempts, opens)

	// No more attempts once routed to the fallback channel.
	assert.Equal(t, CommitFallback, f.relay.Resume(ctx, s))
	assert.Equal(t, 3*database.DefaultAttempts, opens)
	state = s.State()
	assert.True(t, state.Pending, "post is kept")
	assert.True(t, state.Fallback)
}

func TestFallbackHandsPostToRescuer(t *testing.T) {
	ctx := context.Background()
	opens := 0
	f := newFixture(unavailablePosts(&opens), Policy{})
	rescuer := &recordingRescuer{}
	f.relay.WithRescuer(rescuer)
	s := f.registry.Create()
	commitWord(t, f, s, "echo")

	for i := 0; i < 3; i++ {
		f.relay.Resume(ctx, s)
	}
	require.Len(t, rescuer.posts, 1)
	assert.Equal(t, "echo", rescuer.posts[0].Content.Word)
	assert.False(t, s.State().Pending)
	assert.True(t, s.State().Fallback)

	require.NoError(t, f.workflow.Restart(s))
	assert.False(t, s.State().Fallback)
}

func TestRetryAfterRecovery(t *testing.T) {
	ctx := context.Background()
	posts := &togglePosts{PostRepository: openPosts(t), down: true}
	f := newFixture(posts, Policy{})
	s := f.registry.Create()
	commitWord(t, f, s, "echo")

	for i := 0; i < 3; i++ {
		f.relay.Resume(ctx, s)
	}
	assert.Equal(t, CommitFallback, f.relay.Resume(ctx, s))

	posts.down = false
	assert.Equal(t, CommitCommitted, f.relay.Retry(ctx, s))
	stored, err := posts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

type togglePosts struct {
	repository.PostRepository
	down bool
}

func (p *togglePosts) Create(ctx context.Context, post *models.Post) error {
	if p.down {
		return database.ErrUnavailable
	}
	return p.PostRepository.Create(ctx, post)
}

func TestRestartKeepsPendingPost(t *testing.T) {
	ctx := context.Background()
	posts := &togglePosts{PostRepository: openPosts(t), down: true}
	f := newFixture(posts, Policy{})
	s := f.registry.Create()
	commitWord(t, f, s, "echo")

	assert.Equal(t, CommitPending, f.relay.Resume(ctx, s))
	require.NoError(t, f.workflow.Restart(s))
	assert.Equal(t, StepDrawing, s.Step())
	assert.True(t, s.State().Pending)
	assert.True(t, s.State().Draft.Empty())

	// A second walk cannot be committed over the first.
	require.NoError(t, f.workflow.Skip(ctx, s))
	require.NoError(t, f.workflow.StageWord(s, "valley"))
	require.NoError(t, f.workflow.Next(ctx, s))
	require.NoError(t, f.workflow.Skip(ctx, s))
	assert.True(t, errors.Is(f.workflow.Skip(ctx, s), ErrCommitPending))
	assert.Equal(t, StepSound, s.Step())

	// Once the store is back, finishing commits the first walk and holds
	// the second.
	posts.down = false
	require.NoError(t, f.workflow.Skip(ctx, s))
	assert.Equal(t, StepViewing, s.Step())
	assert.Equal(t, CommitCommitted, f.relay.Resume(ctx, s))

	stored, err := posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	words := []string{stored[0].Content.Word, stored[1].Content.Word}
	assert.ElementsMatch(t, []string{"echo", "valley"}, words)
}

func TestRelayInvalidatesListing(t *testing.T) {
	ctx := context.Background()
	posts := openPosts(t)
	cached := repository.NewCachedPostRepository(posts, time.Hour)
	relay := NewRelay(posts, cached, 3)
	wf := NewWorkflow(&countingMedia{}, relay, Policy{})
	s := NewRegistry(time.Hour).Create()

	list, err := cached.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, wf.Skip(ctx, s))
	require.NoError(t, wf.StageWord(s, "echo"))
	require.NoError(t, wf.Next(ctx, s))
	require.NoError(t, wf.Skip(ctx, s))
	require.NoError(t, wf.Skip(ctx, s))
	assert.Equal(t, CommitCommitted, relay.Resume(ctx, s))

	list, err = cached.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegistry(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Hour)
	r.now = func() time.Time { return now }

	idle := r.Create()
	busy := r.Create()
	busy.pending = &models.Post{ID: "p"}

	got, err := r.Get(idle.ID)
	require.NoError(t, err)
	assert.Same(t, idle, got)

	_, err = r.Get("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())
	_, err = r.Get(busy.ID)
	assert.NoError(t, err)
}
