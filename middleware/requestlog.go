package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"runtime/debug"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request correlation id in both directions.
const RequestIDHeader = "X-Request-Id"

const maxInboundRequestID = 128

// RequestID assigns every request an id, honouring a sane inbound
// X-Request-Id, echoes it on the response and stores it, the client IP and
// a logger carrying both in the request context.
func RequestID(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxInboundRequestID {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ip := clientIP(r)
			log := engine.Logger().WithValues("request_id", id)

			ctx := goSession.WithRequestID(r.Context(), id)
			ctx = goSession.WithClientIP(ctx, ip)
			ctx = logr.NewContext(ctx, log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var quietExtensions = map[string]struct{}{
	".js": {}, ".css": {}, ".map": {}, ".png": {}, ".jpg": {}, ".jpeg": {},
	".gif": {}, ".svg": {}, ".ico": {}, ".woff": {}, ".woff2": {}, ".ttf": {},
}

type accessKey struct{}

// accessRecord carries what inner middleware learns about a request back
// out to AccessLog. It is only touched by the request's goroutine.
type accessRecord struct {
	userID string
}

func recordUser(r *http.Request, userID string) {
	if userID == "" {
		return
	}
	if rec, ok := r.Context().Value(accessKey{}).(*accessRecord); ok {
		rec.userID = userID
	}
}

// AccessLog writes one line per request and records its latency. Static
// asset requests are timed but not logged. The user id is the one Sessions
// saw, if it runs inside.
func AccessLog(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			rec := &accessRecord{}

			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), accessKey{}, rec)))

			elapsed := time.Since(start)
			engine.ObserveLatency(elapsed)

			if _, quiet := quietExtensions[strings.ToLower(path.Ext(r.URL.Path))]; quiet {
				return
			}
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", elapsed.Milliseconds(),
			}
			if rec.userID != "" {
				kv = append(kv, "user_id", rec.userID)
			}
			loggerFrom(r.Context(), engine).Info("request", kv...)
		})
	}
}

// Recover turns a handler panic into a 500 JSON response. Nothing is
// written when the handler had already started the response.
func Recover(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				loggerFrom(r.Context(), engine).Error(fmt.Errorf("panic: %v", rec), "handler panic",
					"stack", string(debug.Stack()),
				)
				if !sw.wroteHeader {
					WriteInternalError(sw)
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.wroteHeader = true
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func loggerFrom(ctx context.Context, engine *goSession.Engine) logr.Logger {
	if log, err := logr.FromContext(ctx); err == nil {
		return log
	}
	return engine.Logger()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
