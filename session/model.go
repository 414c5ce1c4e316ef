package session

import "time"

// DefaultMaxAge is the session lifetime applied when a caller passes a
// non-positive maxAge.
const DefaultMaxAge = 24 * time.Hour

// Data is the payload stored for one browser session. Identity fields are
// empty until login.
type Data struct {
	UserID    string    `cbor:"1,keyasint,omitempty" json:"userId,omitempty"`
	Username  string    `cbor:"2,keyasint,omitempty" json:"username,omitempty"`
	LoginTime time.Time `cbor:"3,keyasint" json:"loginTime"`
	CreatedAt time.Time `cbor:"4,keyasint" json:"createdAt"`
}

// Authenticated reports whether an identity has been written to the session.
func (d Data) Authenticated() bool {
	return d.UserID != ""
}

// Record is a stored session together with its absolute expiry.
type Record struct {
	ID        string
	Data      Data
	ExpiresAt time.Time
}

func normalizeMaxAge(maxAge time.Duration) time.Duration {
	if maxAge <= 0 {
		return DefaultMaxAge
	}
	return maxAge
}
