package security

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("secret12")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "secret12"))
	assert.ErrorIs(t, h.Compare(hash, "secret13"), ErrSecretMismatch)
}

func TestRandomTokenGenerator_Unique(t *testing.T) {
	g := RandomTokenGenerator{}
	a, err := g.NewToken()
	require.NoError(t, err)
	b, err := g.NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestDigitCodeGenerator(t *testing.T) {
	code, err := DigitCodeGenerator{}.NewCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)

	for i := 0; i < 50; i++ {
		code, err = DigitCodeGenerator{Digits: 4}.NewCode()
		require.NoError(t, err)
		assert.Len(t, code, 4)
	}
	code, err = DigitCodeGenerator{Digits: 40}.NewCode()
	require.NoError(t, err)
	assert.Len(t, code, maxCodeDigits)
}

func TestKeyLimiter_PerKeyInterval(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	l := NewKeyLimiter(30*time.Second, 1, func() time.Time { return now })

	assert.True(t, l.Allow("9876543210"))
	assert.False(t, l.Allow("9876543210"))
	assert.True(t, l.Allow("9000000000"))

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("9876543210"))

	assert.Equal(t, 1, l.Purge(now))
	assert.Equal(t, 1, l.Purge(now.Add(time.Minute)))
}

func TestLogNotifier_MasksPhone(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, n.Send(context.Background(), "9876543210", "otp", map[string]any{"code": "123456"}))
	assert.Contains(t, buf.String(), "******3210")
	assert.NotContains(t, buf.String(), "9876543210")
}
