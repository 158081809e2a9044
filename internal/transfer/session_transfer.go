package transfer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/walk-gallery/internal/session"
)

type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type SessionResponse struct {
	Session session.State `json:"session"`
	Commit  string        `json:"commit"`
	Notice  string        `json:"notice,omitempty"`
}

type WordForm struct {
	Word string `json:"word" form:"word"`
}
