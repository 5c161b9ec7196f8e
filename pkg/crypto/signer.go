package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

const (
	envelopeSeparator = '.'
	expirySeparator   = '~'
)

// Signer produces and checks "value.signature" envelopes.
//
// The signature is HMAC-SHA256 over value, base64url encoded without padding.
// Its alphabet never contains '.', so envelopes split on the last separator.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) *Signer {
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}
}

func (s *Signer) Sign(value string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature belongs to value, in constant time.
func (s *Signer) Verify(value, signature string) bool {
	expected := s.Sign(value)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func (s *Signer) BuildEnvelope(value string) string {
	return value + string(envelopeSeparator) + s.Sign(value)
}

// ParseEnvelope returns the signed value, or false for anything malformed or forged.
func (s *Signer) ParseEnvelope(envelope string) (string, bool) {
	i := strings.LastIndexByte(envelope, envelopeSeparator)
	if i < 0 {
		return "", false
	}
	value, signature := envelope[:i], envelope[i+1:]
	if !s.Verify(value, signature) {
		return "", false
	}
	return value, true
}

// BuildTimedEnvelope signs value together with an absolute expiry.
func (s *Signer) BuildTimedEnvelope(value string, expiresAt time.Time) string {
	payload := value + string(expirySeparator) + strconv.FormatInt(expiresAt.Unix(), 10)
	return s.BuildEnvelope(payload)
}

// ParseTimedEnvelope is ParseEnvelope plus rejection once now reaches the embedded expiry.
func (s *Signer) ParseTimedEnvelope(envelope string, now time.Time) (string, bool) {
	payload, ok := s.ParseEnvelope(envelope)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(payload, expirySeparator)
	if i < 0 {
		return "", false
	}
	expiresAt, err := strconv.ParseInt(payload[i+1:], 10, 64)
	if err != nil {
		return "", false
	}
	if now.Unix() >= expiresAt {
		return "", false
	}
	return payload[:i], true
}

// Sign computes the signature of value under secret.
func Sign(value, secret string) string {
	return NewSigner([]byte(secret)).Sign(value)
}

// Verify checks signature against value under secret.
func Verify(value, signature, secret string) bool {
	return NewSigner([]byte(secret)).Verify(value, signature)
}

// BuildEnvelope returns "value.signature" under secret.
func BuildEnvelope(value, secret string) string {
	return NewSigner([]byte(secret)).BuildEnvelope(value)
}

// ParseEnvelope recovers the value of an envelope built with secret.
func ParseEnvelope(envelope, secret string) (string, bool) {
	return NewSigner([]byte(secret)).ParseEnvelope(envelope)
}
