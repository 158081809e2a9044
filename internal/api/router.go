package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/walk-gallery/internal/api/handlers"
	"github.com/maheshrc27/walk-gallery/internal/api/middleware"
)

func Register(app *fiber.App, sessions *middleware.SessionMiddleware, session *handlers.SessionHandler, gallery *handlers.GalleryHandler) {
	api := app.Group("/api")
	api.Use(sessions.SessionMiddleware())

	api.Get("/session", session.GetSession)
	api.Post("/session/drawing", session.StageDrawing)
	api.Post("/session/word", session.StageWord)
	api.Post("/session/picture", session.StagePicture)
	api.Post("/session/sound", session.StageSound)

	api.Post("/session/next", session.Next)
	api.Post("/session/skip", session.Skip)
	api.Post("/session/back", session.Back)
	api.Post("/session/restart", session.Restart)
	api.Post("/session/retry", session.Retry)

	api.Get("/gallery", gallery.ListGallery)
}
