package goSession

import "errors"

var (
	// ErrUnauthorized is returned when the request carries no authenticated session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingIdentity is returned by Login when userId or username is empty.
	ErrMissingIdentity = errors.New("userId and username are required")
	// ErrMissingCredential is returned by Login when the password is empty.
	ErrMissingCredential = errors.New("Password is required")
	// ErrSessionUnavailable is returned when no session handle is attached to the context.
	ErrSessionUnavailable = errors.New("session unavailable")
	// ErrStoreUnavailable wraps session backend failures surfaced by the engine.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
)
