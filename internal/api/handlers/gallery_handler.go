package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/walk-gallery/configs"
	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/poem"
	"github.com/maheshrc27/walk-gallery/internal/repository"
	"github.com/maheshrc27/walk-gallery/internal/session"
	"github.com/maheshrc27/walk-gallery/internal/transfer"
)

type GalleryHandler struct {
	posts repository.PostRepository
	gate  *poem.Gate
	cfg   config.Config
}

func NewGalleryHandler(cfg config.Config, posts repository.PostRepository, gate *poem.Gate) *GalleryHandler {
	return &GalleryHandler{posts: posts, gate: gate, cfg: cfg}
}

// ListGallery renders every post newest first, with the collective poem
// when one is cached or may be generated for this caller now.
func (h *GalleryHandler) ListGallery(c *fiber.Ctx) error {
	posts, err := h.posts.List(c.UserContext())
	if err != nil {
		slog.Info(err.Error())
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error":  "Unable to load the gallery",
			"notice": h.cfg.FallbackMessage,
		})
	}

	resp := transfer.GalleryResponse{Posts: posts}
	if resp.Posts == nil {
		resp.Posts = []*models.Post{}
	}

	result := h.gate.GetOrGenerate(c.UserContext(), poem.Words(posts), c.IP())
	if result.Present() {
		resp.Poem = &transfer.GalleryPoem{Text: result.Text, Fingerprint: result.Fingerprint}
	}

	if s := GetSession(c); s != nil {
		status := GetCommitStatus(c)
		resp.Commit = status.String()
		if status == session.CommitFallback || s.State().Fallback {
			resp.Commit = session.CommitFallback.String()
			resp.Notice = h.cfg.FallbackMessage
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
