package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/walk-gallery/configs"
	"github.com/maheshrc27/walk-gallery/internal/session"
	"github.com/maheshrc27/walk-gallery/pkg/utils"
)

const (
	SessionKey = "session"
	CommitKey  = "commit"

	tokenDuration = 24 * time.Hour
)

type SessionMiddleware struct {
	registry *session.Registry
	relay    *session.Relay
	cfg      config.Config
}

func NewSessionMiddleware(cfg config.Config, registry *session.Registry, relay *session.Relay) *SessionMiddleware {
	return &SessionMiddleware{registry: registry, relay: relay, cfg: cfg}
}

// SessionMiddleware loads the caller's session, creating one when the cookie
// is missing, invalid or refers to a swept session. Every request is an
// interaction, so a pending post is retried before the handler runs.
func (m *SessionMiddleware) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := m.load(c)
		if s == nil {
			s = m.registry.Create()
			token, err := utils.GenerateToken(m.cfg.SecretKey, s.ID, tokenDuration)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Unable to start session",
				})
			}
			c.Cookie(&fiber.Cookie{
				Name:     m.cfg.CookieName,
				Value:    token,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
				Path:     "/",
				Expires:  time.Now().Add(tokenDuration),
			})
		}

		c.Locals(SessionKey, s)
		c.Locals(CommitKey, m.relay.Resume(c.UserContext(), s))
		return c.Next()
	}
}

func (m *SessionMiddleware) load(c *fiber.Ctx) *session.Session {
	tokenString := c.Cookies(m.cfg.CookieName)
	if tokenString == "" {
		return nil
	}

	claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
	if err != nil {
		return nil
	}

	s, err := m.registry.Get(claims.SessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil
	}
	return s
}
