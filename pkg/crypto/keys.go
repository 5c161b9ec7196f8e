package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes. Each cookie kind signs with its own derived key so an
// envelope minted for one purpose never verifies for another.
const (
	PurposeSessionCookie = "playlistify/session-cookie/v1"
	PurposeStateCookie   = "playlistify/oauth-state/v1"
)

const derivedKeyLength = 32

var ErrEmptySecret = errors.New("secret cannot be empty")

// DeriveKey expands secret into a purpose-bound HMAC key with HKDF-SHA256.
func DeriveKey(secret, purpose string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, derivedKeyLength)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// NewPurposeSigner returns a Signer keyed for purpose.
func NewPurposeSigner(secret, purpose string) (*Signer, error) {
	key, err := DeriveKey(secret, purpose)
	if err != nil {
		return nil, err
	}
	return NewSigner(key), nil
}
