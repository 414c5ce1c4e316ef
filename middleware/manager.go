package middleware

import (
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

var errSessionCommit = errors.New("session commit failed")

// Sessions loads the session named by the request cookie, attaches it to the
// request context and commits it right before the response header is sent,
// or after the handler returns when it wrote nothing.
//
// A missing, malformed or foreign cookie yields an anonymous session. A
// store failure on load or commit answers 500. The session's user id is
// passed to an enclosing AccessLog.
func Sessions(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteInternalError(w)
				return
			}

			policy := engine.CookiePolicy()
			var id string
			if value, ok := policy.Read(r); ok {
				id, _ = engine.VerifySessionCookie(value)
			}

			h, err := engine.LoadSession(r.Context(), id)
			if err != nil {
				loggerFrom(r.Context(), engine).Error(err, "session load failed")
				WriteInternalError(w)
				return
			}

			recordUser(r, h.Data().UserID)

			cw := &commitWriter{ResponseWriter: w, r: r, engine: engine, handle: h}
			next.ServeHTTP(cw, r.WithContext(goSession.WithSession(r.Context(), h)))
			cw.commit()

			// a login in this request replaces the loaded identity
			recordUser(r, h.Data().UserID)
		})
	}
}

// commitWriter delays the session commit until the handler is about to send
// headers, which is the last moment a cookie can still be set.
type commitWriter struct {
	http.ResponseWriter
	r      *http.Request
	engine *goSession.Engine
	handle *session.Handle

	committed bool
	failed    bool
}

func (w *commitWriter) commit() bool {
	if w.committed {
		return !w.failed
	}
	w.committed = true

	res, err := w.engine.CommitSession(w.r.Context(), w.handle)
	if err != nil {
		w.failed = true
		loggerFrom(w.r.Context(), w.engine).Error(err, "session commit failed")
		WriteInternalError(w.ResponseWriter)
		return false
	}

	policy := w.engine.CookiePolicy()
	switch res.Action {
	case goSession.CommitSaved, goSession.CommitTouched:
		value, err := w.engine.SignSessionID(res.SessionID)
		if err != nil {
			w.failed = true
			loggerFrom(w.r.Context(), w.engine).Error(err, "session cookie signing failed")
			WriteInternalError(w.ResponseWriter)
			return false
		}
		policy.Issue(w.ResponseWriter, w.r, value)
	case goSession.CommitCleared:
		policy.ClearAll(w.ResponseWriter, w.r)
	}
	return true
}

func (w *commitWriter) WriteHeader(code int) {
	if !w.commit() {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return 0, errSessionCommit
	}
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Flush() {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
