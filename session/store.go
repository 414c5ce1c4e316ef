package session

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps every backend failure. Callers treat it as fatal
// for the in-flight request only.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrInvalidPayload is returned when a stored payload cannot be decoded.
var ErrInvalidPayload = errors.New("invalid session payload")

// Store is the operation contract shared by every session backend.
//
// Implementations must be safe for concurrent use. Operations on the same id
// are not serialized; the last Set to complete wins.
type Store interface {
	// Get returns the live record for id. Unknown and expired ids report
	// ok == false with a nil error.
	Get(ctx context.Context, id string) (rec Record, ok bool, err error)

	// Set inserts or overwrites id and sets its expiry to now+maxAge.
	Set(ctx context.Context, id string, data Data, maxAge time.Duration) error

	// Touch moves the expiry of a live entry to now+maxAge. It succeeds
	// without creating anything when id is absent.
	Touch(ctx context.Context, id string, maxAge time.Duration) error

	// Destroy removes id. Removing an absent id succeeds.
	Destroy(ctx context.Context, id string) error

	// Count returns the number of live entries.
	Count(ctx context.Context) (int, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases background resources. It is safe to call more than once.
	Close() error
}
