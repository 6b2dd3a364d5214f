package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	defaultTokenBytes = 32
	defaultCodeDigits = 6
	maxCodeDigits     = 18
)

// RandomTokenGenerator issues opaque bearer tokens as URL-safe base64.
type RandomTokenGenerator struct {
	Size int
}

func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = defaultTokenBytes
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DigitCodeGenerator issues zero-padded numeric OTPs drawn uniformly from [0, 10^Digits).
type DigitCodeGenerator struct {
	Digits int
}

func (g DigitCodeGenerator) NewCode() (string, error) {
	digits := g.Digits
	if digits <= 0 {
		digits = defaultCodeDigits
	}
	digits = min(digits, maxCodeDigits)
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("otp entropy: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
