package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	DefaultTokenLength = 32 // 256 bits
)

// GenerateToken returns byteLength random bytes, base64url encoded without padding.
func GenerateToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}

	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// NewStateNonce returns the random value bound to one authorization round-trip.
func NewStateNonce() (string, error) {
	return GenerateToken(DefaultTokenLength)
}
