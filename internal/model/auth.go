package model

import (
	"time"

	"github.com/google/uuid"
)

const TokenTypeBearer = "Bearer"

type LoginRequest struct {
	Username string `json:"username" binding:"required_without=Email"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required"`
}

type AuthUser struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Enabled  bool      `json:"enabled"`
	Roles    []string  `json:"roles"`
}

type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	ExpiresIn   int64    `json:"expiresIn"`
	TokenType   string   `json:"tokenType"`
	User        AuthUser `json:"user"`
}

// TokenClaims is the validated content of an access token.
type TokenClaims struct {
	TokenID   string
	UserID    uuid.UUID
	Username  string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// StoredSession is the session record a client keeps after login.
type StoredSession struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	TokenType   string    `json:"tokenType"`
	User        AuthUser  `json:"user"`
	StoredAt    time.Time `json:"storedAt"`
}

// NewStoredSession stamps a login response with the time it was received.
func NewStoredSession(resp LoginResponse, now time.Time) StoredSession {
	return StoredSession{
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.ExpiresIn,
		TokenType:   resp.TokenType,
		User:        resp.User,
		StoredAt:    now,
	}
}

// ExpiresAt is storedAt + expiresIn.
func (s StoredSession) ExpiresAt() time.Time {
	return s.StoredAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// Expired reports whether now is past the session expiry.
func (s StoredSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}
