package goSession

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// LoginRequest is the identity a client asserts at login. Password must be
// present but is not verified.
type LoginRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UnmarshalJSON accepts strings or numbers for every field, so a numeric
// userId logs in as its decimal text. null and a zero number count as
// absent. Other JSON types are rejected.
func (r *LoginRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		UserID   json.RawMessage `json:"userId"`
		Username json.RawMessage `json:"username"`
		Password json.RawMessage `json:"password"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var out LoginRequest
	var err error
	if out.UserID, err = scalarString("userId", raw.UserID); err != nil {
		return err
	}
	if out.Username, err = scalarString("username", raw.Username); err != nil {
		return err
	}
	if out.Password, err = scalarString("password", raw.Password); err != nil {
		return err
	}
	*r = out
	return nil
}

func scalarString(field string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%s must be a string or a number", field)
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil && f == 0 {
		return "", nil
	}
	return n.String(), nil
}

// User is the identity view derived from an authenticated session.
type User struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	LoginTime time.Time `json:"loginTime"`
}

func userFromData(d session.Data) User {
	return User{UserID: d.UserID, Username: d.Username, LoginTime: d.LoginTime}
}

// UserFromSession returns the identity held by h, if any.
func UserFromSession(h *session.Handle) (User, bool) {
	if h == nil {
		return User{}, false
	}
	d := h.Data()
	if !d.Authenticated() {
		return User{}, false
	}
	return userFromData(d), true
}

// CommitAction tells the middleware which cookie operation follows a commit.
type CommitAction uint8

const (
	// CommitNone leaves the response cookies untouched.
	CommitNone CommitAction = iota
	// CommitSaved means the payload was written; issue the cookie.
	CommitSaved
	// CommitTouched means the expiry was rolled; re-issue the cookie.
	CommitTouched
	// CommitCleared means the session was destroyed; clear every cookie variant.
	CommitCleared
)

// String names the action for logs.
func (a CommitAction) String() string {
	switch a {
	case CommitSaved:
		return "saved"
	case CommitTouched:
		return "touched"
	case CommitCleared:
		return "cleared"
	default:
		return "none"
	}
}

// CommitResult is the outcome of Engine.CommitSession.
type CommitResult struct {
	Action    CommitAction
	SessionID string
	MaxAge    time.Duration
}

// StoreStats is a point-in-time view of the session backend.
type StoreStats struct {
	Backend      string `json:"backend"`
	LiveSessions int    `json:"liveSessions"`
}
