package poem

import (
	"context"

	"github.com/maheshrc27/walk-gallery/internal/repository"
)

// Memoizer maps fingerprints to generated poems, backed by the poems table.
type Memoizer struct {
	poems repository.PoemRepository
}

func NewMemoizer(poems repository.PoemRepository) *Memoizer {
	return &Memoizer{poems: poems}
}

// Get returns the authoritative poem for fingerprint; ok is false on a miss.
func (m *Memoizer) Get(ctx context.Context, fingerprint string) (text string, ok bool, err error) {
	p, err := m.poems.Latest(ctx, fingerprint)
	if err != nil {
		return "", false, err
	}
	if p == nil {
		return "", false, nil
	}
	return p.Text, true, nil
}

func (m *Memoizer) Put(ctx context.Context, fingerprint, text string) error {
	_, err := m.poems.Create(ctx, fingerprint, text)
	return err
}
