package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) logger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lines = append(s.lines, args)
	}, funcr.Options{Verbosity: 1})
}

func (s *lineSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func newLoggedEngine(t *testing.T, sink *lineSink) *goSession.Engine {
	t.Helper()
	cfg := testConfig()
	cfg.Metrics.EnableLatencyHistograms = true
	engine, err := goSession.New().WithConfig(cfg).WithLogger(sink.logger()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	engine := newTestEngine(t)
	var seen string
	h := RequestID(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = goSession.RequestIDFromContext(r.Context())
		if _, err := logr.FromContext(r.Context()); err != nil {
			t.Errorf("expected logger in context: %v", err)
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated id echoed, context=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "inbound-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "inbound-1" || rec.Header().Get(RequestIDHeader) != "inbound-1" {
		t.Fatalf("expected inbound id honoured, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) > maxInboundRequestID {
		t.Fatal("oversized inbound id must be replaced")
	}
}

func TestAccessLogSkipsStaticAssets(t *testing.T) {
	sink := &lineSink{}
	engine := newLoggedEngine(t, sink)
	h := RequestID(engine)(AccessLog(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	before := len(sink.all())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/home/app.js", nil))
	if got := len(sink.all()); got != before {
		t.Fatalf("static asset request was logged: %v", sink.all()[before:])
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	lines := sink.all()[before:]
	if len(lines) != 1 {
		t.Fatalf("expected one access line, got %v", lines)
	}
	for _, want := range []string{`"path"="/api/health"`, `"status"=418`, `"request_id"=`} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("access line %q missing %s", lines[0], want)
		}
	}

	snap := engine.MetricsSnapshot()
	var total uint64
	for _, n := range snap.Histograms[goSession.MetricRequestLatency] {
		total += n
	}
	if total != 2 {
		t.Fatalf("expected 2 latency observations, got %d", total)
	}
}

func TestRecoverAnswers500(t *testing.T) {
	sink := &lineSink{}
	engine := newLoggedEngine(t, sink)
	h := Recover(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal Server Error") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	found := false
	for _, l := range sink.all() {
		if strings.Contains(l, "handler panic") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected panic to be logged")
	}
}

func TestAccessLogCarriesSessionUser(t *testing.T) {
	sink := &lineSink{}
	engine := newLoggedEngine(t, sink)
	h := RequestID(engine)(AccessLog(engine)(testHandler(engine)))

	lastLine := func() string {
		lines := sink.all()
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.Contains(lines[i], `"msg"="request"`) {
				return lines[i]
			}
		}
		t.Fatal("no access line logged")
		return ""
	}

	do(t, h, http.MethodGet, "/public")
	if line := lastLine(); strings.Contains(line, `"user_id"`) {
		t.Fatalf("anonymous request logged a user: %q", line)
	}

	rec := do(t, h, http.MethodPost, "/login")
	if line := lastLine(); !strings.Contains(line, `"user_id"="1"`) {
		t.Fatalf("login line missing user id: %q", line)
	}
	c := findCookie(rec, cookieName)
	if c == nil {
		t.Fatal("expected session cookie")
	}

	do(t, h, http.MethodGet, "/public", c)
	if line := lastLine(); !strings.Contains(line, `"user_id"="1"`) {
		t.Fatalf("resumed request missing user id: %q", line)
	}

	do(t, h, http.MethodGet, "/logout", c)
	if line := lastLine(); !strings.Contains(line, `"user_id"="1"`) {
		t.Fatalf("logout line missing user id: %q", line)
	}
}
