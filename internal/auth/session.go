package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the persisted token pair.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Valid reports whether the session carries an access token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// NeedsRefresh reports whether the token expires within leeway of now.
// A session without a known expiry never needs a refresh.
func (s Session) NeedsRefresh(now time.Time, leeway time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.ExpiresAt)
}

// TokenExpiry reads the exp claim without verifying the signature. The
// signing key belongs to the auth server; the client only needs the deadline.
func TokenExpiry(token string) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, errors.New("empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

// tokenResponse is the GoTrue token payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

func (r tokenResponse) session(now time.Time) Session {
	s := Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	if r.User != nil {
		s.User = *r.User
	}
	s.ExpiresAt = deriveExpiration(r.AccessToken, r.ExpiresAt, r.ExpiresIn, now)
	return s
}

// deriveExpiration prefers the JWT exp claim, then expires_at, then expires_in.
func deriveExpiration(token string, expiresAt, expiresIn int64, now time.Time) time.Time {
	if exp, err := TokenExpiry(token); err == nil {
		return exp.UTC()
	}
	if expiresAt > 0 {
		return time.Unix(expiresAt, 0).UTC()
	}
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second).UTC()
	}
	return time.Time{}
}
