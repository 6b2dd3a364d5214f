package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"hlopg/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
)

// Token is the opaque bearer credential a browser sends on every request.
type Token string

// Session binds a token to one account. The role is copied at sign-in so
// authorization does not need a user lookup.
type Session struct {
	Token     Token
	UserID    user.ID
	Role      user.Role
	ExpiresAt time.Time
}

func NewSession(token Token, account *user.User, now time.Time, ttl time.Duration) (*Session, error) {
	switch {
	case strings.TrimSpace(string(token)) == "":
		return nil, ErrTokenRequired
	case account == nil || account.ID == "":
		return nil, ErrUserRequired
	case ttl <= 0:
		return nil, ErrTTLInvalid
	}
	return &Session{
		Token:     token,
		UserID:    account.ID,
		Role:      account.Role,
		ExpiresAt: now.UTC().Add(ttl),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(at.UTC())
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}
