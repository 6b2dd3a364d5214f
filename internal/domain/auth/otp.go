package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"hlopg/internal/domain/user"
)

var (
	ErrChallengeNotFound = errors.New("auth: no pending otp for identifier")
	ErrOTPExpired        = errors.New("auth: otp expired")
	ErrOTPAttempts       = errors.New("auth: too many otp attempts")
	ErrOTPMismatch       = errors.New("auth: otp does not match")
)

// MaxOTPAttempts caps wrong guesses before the code has to be resent.
const MaxOTPAttempts = 5

// Challenge is a pending one-time password sent to a phone number.
type Challenge struct {
	Identifier string
	UserID     user.ID
	CodeHash   string
	Attempts   int
	SentAt     time.Time
	ExpiresAt  time.Time
}

type ChallengeParams struct {
	Identifier string
	UserID     user.ID
	CodeHash   string
	TTL        time.Duration
	Now        time.Time
}

func NewChallenge(params ChallengeParams) (*Challenge, error) {
	id := strings.TrimSpace(params.Identifier)
	if id == "" || params.UserID == "" {
		return nil, ErrUserRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now.UTC()
	return &Challenge{
		Identifier: id,
		UserID:     params.UserID,
		CodeHash:   params.CodeHash,
		SentAt:     now,
		ExpiresAt:  now.Add(params.TTL),
	}, nil
}

// Verify checks code with match and counts a failed attempt.
func (c *Challenge) Verify(code string, match func(hash, code string) bool, now time.Time) error {
	if !c.ExpiresAt.After(now.UTC()) {
		return ErrOTPExpired
	}
	if c.Attempts >= MaxOTPAttempts {
		return ErrOTPAttempts
	}
	if !match(c.CodeHash, strings.TrimSpace(code)) {
		c.Attempts++
		return ErrOTPMismatch
	}
	return nil
}

type ChallengeStore interface {
	Save(ctx context.Context, challenge *Challenge) error
	Get(ctx context.Context, identifier string) (*Challenge, error)
	Delete(ctx context.Context, identifier string) error
}
