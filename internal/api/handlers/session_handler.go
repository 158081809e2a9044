package handlers

import (
	"context"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/walk-gallery/configs"
	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/session"
	"github.com/maheshrc27/walk-gallery/internal/transfer"
)

const maxUploadSize = 25 * 1024 * 1024

type SessionHandler struct {
	w     *session.Workflow
	relay *session.Relay
	cfg   config.Config
}

func NewSessionHandler(cfg config.Config, workflow *session.Workflow, relay *session.Relay) *SessionHandler {
	return &SessionHandler{w: workflow, relay: relay, cfg: cfg}
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	return h.respond(c, GetSession(c), GetCommitStatus(c))
}

func (h *SessionHandler) StageWord(c *fiber.Ctx) error {
	s := GetSession(c)

	var form transfer.WordForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse word",
		})
	}

	if err := h.w.StageWord(s, form.Word); err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, s, GetCommitStatus(c))
}

func (h *SessionHandler) StageDrawing(c *fiber.Ctx) error {
	return h.stageMedia(c, models.SlotDrawing)
}

func (h *SessionHandler) StagePicture(c *fiber.Ctx) error {
	return h.stageMedia(c, models.SlotImage)
}

func (h *SessionHandler) StageSound(c *fiber.Ctx) error {
	return h.stageMedia(c, models.SlotAudio)
}

func (h *SessionHandler) stageMedia(c *fiber.Ctx, slot models.Slot) error {
	s := GetSession(c)

	file, err := c.FormFile("file")
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}
	if file.Size > maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File is too large",
		})
	}

	f, err := file.Open()
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}

	if err := h.w.StageMedia(c.UserContext(), s, slot, file.Filename, data); err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, s, GetCommitStatus(c))
}

func (h *SessionHandler) Next(c *fiber.Ctx) error {
	return h.transition(c, h.w.Next)
}

func (h *SessionHandler) Skip(c *fiber.Ctx) error {
	return h.transition(c, h.w.Skip)
}

func (h *SessionHandler) Back(c *fiber.Ctx) error {
	return h.transition(c, func(_ context.Context, s *session.Session) error {
		return h.w.Back(s)
	})
}

func (h *SessionHandler) Restart(c *fiber.Ctx) error {
	return h.transition(c, func(_ context.Context, s *session.Session) error {
		return h.w.Restart(s)
	})
}

// Retry is the participant asking to try saving a walk again after the
// fallback notice was shown.
func (h *SessionHandler) Retry(c *fiber.Ctx) error {
	s := GetSession(c)
	return h.respond(c, s, h.relay.Retry(c.UserContext(), s))
}

func (h *SessionHandler) transition(c *fiber.Ctx, move func(context.Context, *session.Session) error) error {
	s := GetSession(c)
	if err := move(c.UserContext(), s); err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, s, GetCommitStatus(c))
}

func (h *SessionHandler) respond(c *fiber.Ctx, s *session.Session, status session.CommitStatus) error {
	return c.Status(fiber.StatusOK).JSON(h.body(s, status))
}

func (h *SessionHandler) fail(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (h *SessionHandler) body(s *session.Session, status session.CommitStatus) transfer.SessionResponse {
	state := s.State()
	resp := transfer.SessionResponse{Session: state, Commit: status.String()}
	if state.Fallback {
		resp.Commit = session.CommitFallback.String()
		resp.Notice = h.cfg.FallbackMessage
	}
	return resp
}
