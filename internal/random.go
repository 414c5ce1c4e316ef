package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// SessionID is the raw form of an opaque session identifier.
type SessionID [16]byte

const cookieSecretSize = 32

// ErrInvalidSessionID is returned by ParseSessionID for malformed input.
var ErrInvalidSessionID = errors.New("invalid session id")

// NewSessionID draws 128 random bits from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

// String returns the cookie and store key form.
func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// NewSessionIDString is a convenience wrapper returning the encoded form.
func NewSessionIDString() (string, error) {
	sid, err := NewSessionID()
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}

// ParseSessionID decodes the base64url form produced by String and rejects
// anything of the wrong length.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, ErrInvalidSessionID
	}
	if len(raw) != len(sid) {
		return sid, ErrInvalidSessionID
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewCookieSecret returns a random signing secret for deployments that allow
// an ephemeral secret.
func NewCookieSecret() ([]byte, error) {
	secret := make([]byte, cookieSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}
