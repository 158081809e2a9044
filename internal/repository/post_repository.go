package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/walk-gallery/internal/database"
	"github.com/maheshrc27/walk-gallery/internal/models"
)

var ErrEmptyPost = errors.New("post has no content")

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	List(ctx context.Context) ([]*models.Post, error)
	Remove(ctx context.Context, id string) error
}

type postRepository struct {
	db *database.Gateway
}

func NewPostRepository(db *database.Gateway) PostRepository {
	return &postRepository{db: db}
}

// Create inserts post. Ids are minted before the first attempt, so a
// conflict on the id means an earlier attempt already landed.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.Content.Empty() {
		return ErrEmptyPost
	}

	content, err := post.Content.Marshal()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		INSERT INTO posts (id, timestamp, datetime, content)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.db.Exec(ctx, query, post.ID, post.CreatedAtCompact, post.CreatedAtDisplay, content)
	if errors.Is(err, database.ErrConflict) {
		slog.Info("post already stored", "id", post.ID)
		return nil
	}
	if err != nil {
		return err
	}
	return nil
}

// List returns posts newest first. Rows with missing columns, or content
// that cannot be decoded or holds nothing, are skipped.
func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	query := fmt.Sprintf(`
		SELECT id, timestamp, datetime, content
		FROM posts
		ORDER BY timestamp DESC, %s DESC
	`, r.db.Dialect().InsertionOrder)

	var posts []*models.Post
	err := r.db.Query(ctx, query, func(rows *sql.Rows) error {
		posts = posts[:0]
		for rows.Next() {
			var id string
			var compact, display, raw sql.NullString
			if err := rows.Scan(&id, &compact, &display, &raw); err != nil {
				return err
			}
			if !compact.Valid || !display.Valid || !raw.Valid {
				slog.Warn("skipping corrupted post", "id", id, "error", "missing column value")
				continue
			}

			content, err := models.UnmarshalContent(raw.String)
			if err != nil {
				slog.Warn("skipping corrupted post", "id", id, "error", err)
				continue
			}
			if content.Empty() {
				slog.Warn("skipping corrupted post", "id", id, "error", "empty content")
				continue
			}

			posts = append(posts, &models.Post{
				ID:               id,
				CreatedAtCompact: compact.String,
				CreatedAtDisplay: display.String,
				Content:          content,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	return nil
}
