package session

import "sync"

// Handle is the per-request view of a session. Handlers mutate it; the
// middleware persists it once, before the response is written.
//
// A Handle is safe for concurrent use, though a request normally touches it
// from one goroutine.
type Handle struct {
	mu sync.Mutex

	id         string
	previousID string
	data       Data

	resumed   bool
	modified  bool
	destroyed bool
}

// Resume wraps a record loaded from the store.
func Resume(rec Record) *Handle {
	return &Handle{id: rec.ID, data: rec.Data, resumed: true}
}

// Fresh returns an unsaved, anonymous handle. Its id is assigned on first
// save.
func Fresh() *Handle {
	return &Handle{}
}

// ID returns the current id, or "" when none has been assigned yet.
func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// PreviousID returns the id replaced by Rotate, if any.
func (h *Handle) PreviousID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.previousID
}

// Data returns a copy of the payload.
func (h *Handle) Data() Data {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// Resumed reports whether the handle was loaded from the store.
func (h *Handle) Resumed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resumed
}

// Modified reports whether Update has been called since load.
func (h *Handle) Modified() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.modified
}

// Destroyed reports whether Destroy has been called.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// Update applies fn to the payload and marks the handle for saving.
func (h *Handle) Update(fn func(*Data)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.data)
	h.modified = true
	h.destroyed = false
}

// Rotate drops the current id so the next save issues a new one. The old id
// is kept in PreviousID for removal from the store. Rotating a handle with
// no id does nothing.
func (h *Handle) Rotate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.id == "" {
		return
	}
	if h.previousID == "" {
		h.previousID = h.id
	}
	h.id = ""
	h.modified = true
}

// Destroy clears the payload and marks the session for removal.
func (h *Handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = Data{}
	h.destroyed = true
	h.modified = false
}

// EnsureID returns the current id, assigning one from gen when empty.
func (h *Handle) EnsureID(gen func() (string, error)) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.id != "" {
		return h.id, nil
	}
	id, err := gen()
	if err != nil {
		return "", err
	}
	h.id = id
	return id, nil
}

// Saved records a successful save: the handle now mirrors the stored state.
func (h *Handle) Saved() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.previousID = ""
	h.resumed = true
	h.modified = false
}
