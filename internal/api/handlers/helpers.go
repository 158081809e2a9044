package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/walk-gallery/internal/api/middleware"
	"github.com/maheshrc27/walk-gallery/internal/database"
	"github.com/maheshrc27/walk-gallery/internal/service"
	"github.com/maheshrc27/walk-gallery/internal/session"
)

func GetSession(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(middleware.SessionKey).(*session.Session)
	return s
}

func GetCommitStatus(c *fiber.Ctx) session.CommitStatus {
	status, _ := c.Locals(middleware.CommitKey).(session.CommitStatus)
	return status
}

// errorStatus maps workflow and infrastructure errors to a response code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrStepIncomplete),
		errors.Is(err, session.ErrStepRequired),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrWrongStep),
		errors.Is(err, session.ErrEmptyDraft),
		errors.Is(err, session.ErrCommitPending):
		return fiber.StatusConflict
	case errors.Is(err, session.ErrBlankWord),
		errors.Is(err, service.ErrEmptyMedia):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrUnsupportedMedia):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrUploadUnavailable),
		errors.Is(err, database.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
