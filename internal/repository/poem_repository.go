package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/walk-gallery/internal/database"
	"github.com/maheshrc27/walk-gallery/internal/models"
)

type PoemRepository interface {
	Create(ctx context.Context, fingerprint, text string) (*models.Poem, error)
	// Latest returns the newest poem stored for fingerprint, or nil.
	Latest(ctx context.Context, fingerprint string) (*models.Poem, error)
}

type poemRepository struct {
	db  *database.Gateway
	now func() time.Time
}

func NewPoemRepository(db *database.Gateway) PoemRepository {
	return &poemRepository{db: db, now: time.Now}
}

// Concurrent writers for one fingerprint may both insert; the newest row
// shadows the rest.
func (r *poemRepository) Create(ctx context.Context, fingerprint, text string) (*models.Poem, error) {
	poem := &models.Poem{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		Text:        text,
		CreatedAt:   r.now().UTC(),
	}

	query := `
		INSERT INTO poems (id, words, poem, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, poem.ID, poem.Fingerprint, poem.Text, poem.CreatedAt)
	if err != nil && !errors.Is(err, database.ErrConflict) {
		return nil, err
	}
	return poem, nil
}

func (r *poemRepository) Latest(ctx context.Context, fingerprint string) (*models.Poem, error) {
	query := fmt.Sprintf(`
		SELECT id, words, poem, created_at
		FROM poems
		WHERE words = $1
		ORDER BY created_at DESC, %s DESC
		LIMIT 1
	`, r.db.Dialect().InsertionOrder)

	var poem *models.Poem
	err := r.db.Query(ctx, query, func(rows *sql.Rows) error {
		poem = nil
		if !rows.Next() {
			return nil
		}
		var p models.Poem
		if err := rows.Scan(&p.ID, &p.Fingerprint, &p.Text, &p.CreatedAt); err != nil {
			return err
		}
		poem = &p
		return nil
	}, fingerprint)
	if err != nil {
		return nil, err
	}
	return poem, nil
}
