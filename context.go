package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

type sessionContextKey struct{}
type userContextKey struct{}
type clientIPContextKey struct{}
type requestIDContextKey struct{}

// WithSession attaches the request's session handle to ctx. The session
// middleware does this for every request it serves.
func WithSession(ctx context.Context, h *session.Handle) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, h)
}

// SessionFromContext returns the handle attached by WithSession.
func SessionFromContext(ctx context.Context) (*session.Handle, bool) {
	if ctx == nil {
		return nil, false
	}
	h, ok := ctx.Value(sessionContextKey{}).(*session.Handle)
	return h, ok && h != nil
}

// WithUser attaches the authenticated user derived by the gate.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the user attached by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	u, ok := ctx.Value(userContextKey{}).(User)
	return u, ok
}

// WithClientIP attaches the caller's IP address for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequestID attaches the request correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the id attached by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
