package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// AuditEventType names what happened to a session.
type AuditEventType string

const (
	AuditLoginSuccess AuditEventType = "login_success"
	AuditLoginFailure AuditEventType = "login_failure"
	AuditLogout       AuditEventType = "logout"
	// AuditStoreFailure is a backend error on load, commit or destroy.
	AuditStoreFailure AuditEventType = "session_store_failure"
)

// AuditEvent describes one login, logout or store failure. Session ids,
// cookie values and passwords are never recorded.
type AuditEvent struct {
	Time        time.Time         `json:"time"`
	Type        AuditEventType    `json:"event"`
	Environment string            `json:"env,omitempty"`
	Backend     string            `json:"backend,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
	IP          string            `json:"ip,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the engine's audit worker, one at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

// Emit calls f.
func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// ChannelSink hands events to a consumer goroutine.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink returns a sink whose channel holds up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

// Emit waits for room in the channel or for ctx to end.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events is the receive side for the consumer.
func (s *ChannelSink) Events() <-chan AuditEvent { return s.events }

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONWriterSink writes to w; a nil w discards.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

// Emit encodes event as one line. Write errors are ignored.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	log logr.Logger
}

// NewLogSink logs events at V(0) under the message "audit".
func NewLogSink(log logr.Logger) LogSink {
	return LogSink{log: log}
}

// Emit logs event with its fields as key/value pairs.
func (s LogSink) Emit(_ context.Context, event AuditEvent) {
	kv := []any{
		"event", string(event.Type),
		"success", event.Success,
		"env", event.Environment,
		"backend", event.Backend,
	}
	if event.UserID != "" {
		kv = append(kv, "user_id", event.UserID)
	}
	if event.RequestID != "" {
		kv = append(kv, "request_id", event.RequestID)
	}
	if event.IP != "" {
		kv = append(kv, "ip", event.IP)
	}
	if event.Error != "" {
		kv = append(kv, "error", event.Error)
	}
	for k, v := range event.Metadata {
		kv = append(kv, "meta."+k, v)
	}
	s.log.Info("audit", kv...)
}
