package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/postpilot/internal/models"
)

// CustomClaims is carried by the session cookie and by the OAuth state
// parameter. Platform is only set on state tokens.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	Platform string `json:"platform,omitempty"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Session is what the auth middleware resolves for every authenticated
// request.
type Session struct {
	UserID      int64
	Preferences *models.Preferences
}

// Location is the session timezone, UTC when unset or unknown.
func (s *Session) Location() *time.Location {
	if s.Preferences == nil || s.Preferences.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Preferences.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
