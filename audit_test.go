package goSession

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newAuditTestEngine(t *testing.T, sink AuditSink, enabled bool) *Engine {
	t.Helper()
	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: enabled, BufferSize: 32, DropIfFull: false}

	engine, err := New().WithConfig(cfg).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func collectEvents(sink *ChannelSink, n int) []AuditEvent {
	events := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	engine := newAuditTestEngine(t, sink, false)

	ctx, _ := freshCtx()
	_, _ = engine.Login(ctx, LoginRequest{UserID: "1", Username: "john"})
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLoginEventsCarryRequestContext(t *testing.T) {
	sink := NewChannelSink(8)
	engine := newAuditTestEngine(t, sink, true)

	ctx, _ := freshCtx()
	ctx = WithRequestID(WithClientIP(ctx, "198.51.100.33"), "req-1")

	_, _ = engine.Login(ctx, LoginRequest{UserID: "1", Username: "john"})
	_, _ = engine.Login(ctx, LoginRequest{UserID: "1", Username: "john", Password: "super-secret-password"})
	_ = engine.Logout(ctx)

	events := collectEvents(sink, 3)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	want := []struct {
		typ     AuditEventType
		success bool
		code    string
	}{
		{AuditLoginFailure, false, string(auditErrMissingCredential)},
		{AuditLoginSuccess, true, ""},
		{AuditLogout, true, ""},
	}
	for i, w := range want {
		ev := events[i]
		if ev.Type != w.typ || ev.Success != w.success || ev.Error != w.code {
			t.Fatalf("event %d: got %+v, want %+v", i, ev, w)
		}
		if ev.IP != "198.51.100.33" || ev.RequestID != "req-1" || ev.UserID != "1" {
			t.Fatalf("event %d missing request context: %+v", i, ev)
		}
		for _, v := range ev.Metadata {
			if strings.Contains(v, "super-secret-password") {
				t.Fatal("password leaked into audit metadata")
			}
		}
	}
}

func TestAuditStoreFailureEvent(t *testing.T) {
	sink := NewChannelSink(8)
	engine := newAuditTestEngine(t, sink, true)
	withFailingStore(t, engine)

	_, _ = engine.LoadSession(context.Background(), "AAAAAAAAAAAAAAAAAAAAAA")

	events := collectEvents(sink, 1)
	if len(events) != 1 {
		t.Fatal("expected a store failure event")
	}
	ev := events[0]
	if ev.Type != AuditStoreFailure || ev.Error != string(auditErrUnavailable) {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["op"] != "get" || ev.Backend != BackendLocal || ev.Environment != "dev" {
		t.Fatalf("unexpected metadata %v", ev.Metadata)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, logr.Discard())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{Type: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{Type: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{Type: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, logr.Discard())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{Type: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{Type: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{Type: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Time:    time.Now().UTC(),
		Type:    AuditLoginSuccess,
		UserID:  "u1",
		IP:      "127.0.0.1",
		Success: true,
	})
	sink.Emit(context.Background(), AuditEvent{Type: AuditLogout})

	out := buf.String()
	if !strings.Contains(out, "login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !strings.Contains(out, "\"user_id\":\"u1\"") {
		t.Fatal("expected JSON log line to contain user id")
	}
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink, logr.Discard())

	dispatcher.Emit(context.Background(), AuditEvent{Type: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{Type: "e2"})

	if sink.Count() != 1 {
		t.Fatalf("expected queued event flushed on close and later ones ignored, got %d", sink.Count())
	}
}

func TestAuditLogSinkWritesStructuredLine(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{})

	NewLogSink(log).Emit(context.Background(), AuditEvent{
		Type:        AuditStoreFailure,
		Environment: "qa",
		Backend:     BackendRemoteCache,
		UserID:      "u1",
		Error:       string(auditErrUnavailable),
		Metadata:    map[string]string{"op": "touch"},
	})

	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	for _, want := range []string{
		`"msg"="audit"`,
		`"event"="session_store_failure"`,
		`"env"="qa"`,
		`"backend"="remote-cache"`,
		`"user_id"="u1"`,
		`"error"="backend_unavailable"`,
		`"meta.op"="touch"`,
	} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("line %q missing %s", lines[0], want)
		}
	}
}

func TestAuditSinkFuncReceivesEngineEvents(t *testing.T) {
	var mu sync.Mutex
	var got []AuditEventType
	sink := AuditSinkFunc(func(_ context.Context, ev AuditEvent) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})
	engine := newAuditTestEngine(t, sink, true)

	ctx, _ := freshCtx()
	_, _ = engine.Login(ctx, LoginRequest{UserID: "1", Username: "john", Password: "pw"})
	_ = engine.Logout(ctx)
	engine.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != AuditLoginSuccess || got[1] != AuditLogout {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestAuditEnabledWithoutSinkIsNoOp(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, nil, logr.Discard()); d != nil {
		t.Fatal("expected no dispatcher without a sink")
	}
	engine := newAuditTestEngine(t, nil, true)
	ctx, _ := freshCtx()
	if _, err := engine.Login(ctx, LoginRequest{UserID: "1", Username: "john", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("expected nothing dropped")
	}
}
