package goSession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/session"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

// Engine owns the session backend and implements the auth operations. It is
// safe for concurrent use after Build.
type Engine struct {
	config     Config
	store      session.Store
	backend    string
	ownedRedis redis.UniversalClient
	signer     *cookie.Signer
	policy     cookie.Policy
	audit      *auditDispatcher
	metrics    *Metrics
	log        logr.Logger
	clock      clock.Clock

	closed    atomic.Bool
	closeOnce sync.Once
}

// Close stops the sweep worker, flushes audit events and closes a Redis
// client the engine created itself.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.store != nil {
			err = e.store.Close()
		}
		if e.ownedRedis != nil {
			err = errors.Join(err, e.ownedRedis.Close())
		}
		e.audit.Close()
	})
	return err
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && !e.closed.Load()
}

// AuditDropped reports audit events discarded because the queue was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters and latency buckets.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ObserveLatency records one request duration.
func (e *Engine) ObserveLatency(d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricRequestLatency, d)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Backend reports which store Build selected.
func (e *Engine) Backend() string {
	if e == nil {
		return ""
	}
	return e.backend
}

// Environment is the configured deployment environment, e.g. "dev".
func (e *Engine) Environment() string {
	if e == nil {
		return ""
	}
	return e.config.Environment
}

// Logger returns the engine logger; request middleware derives from it.
func (e *Engine) Logger() logr.Logger {
	if e == nil {
		return logr.Discard()
	}
	return e.log
}

// CookiePolicy returns the cookie name and attribute policy.
func (e *Engine) CookiePolicy() cookie.Policy {
	return e.policy
}

// SignSessionID returns the cookie value for id.
func (e *Engine) SignSessionID(id string) (string, error) {
	return e.signer.Sign(id)
}

// VerifySessionCookie returns the session id in a cookie value. Any
// verification failure yields ok == false.
func (e *Engine) VerifySessionCookie(value string) (id string, ok bool) {
	id, err := e.signer.Verify(value)
	if err != nil {
		e.log.V(1).Info("ignoring session cookie", "reason", err.Error())
		return "", false
	}
	return id, true
}

// Login writes the asserted identity into the request's session. The
// password must be non-empty but is not checked against anything.
//
// An existing session gets a new id; the old id is removed from the store
// when the session is committed.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if req.UserID == "" || req.Username == "" {
		e.loginFailed(ctx, req.UserID, ErrMissingIdentity)
		return nil, ErrMissingIdentity
	}
	if req.Password == "" {
		e.loginFailed(ctx, req.UserID, ErrMissingCredential)
		return nil, ErrMissingCredential
	}

	h, ok := SessionFromContext(ctx)
	if !ok {
		e.loginFailed(ctx, req.UserID, ErrSessionUnavailable)
		return nil, ErrSessionUnavailable
	}

	now := e.clock.Now()
	if h.Resumed() {
		h.Rotate()
	}
	h.Update(func(d *session.Data) {
		d.UserID = req.UserID
		d.Username = req.Username
		d.LoginTime = now
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
	})

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, true, req.UserID, nil, nil)

	u := userFromData(h.Data())
	return &u, nil
}

func (e *Engine) loginFailed(ctx context.Context, userID string, err error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditLoginFailure, false, userID, err, nil)
}

// Logout destroys the request's session. It succeeds whether or not a
// session exists; store errors are logged and audited but not returned.
func (e *Engine) Logout(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	e.metricInc(MetricLogout)

	h, ok := SessionFromContext(ctx)
	if !ok {
		e.emitAudit(ctx, AuditLogout, true, "", nil, nil)
		return nil
	}

	userID := h.Data().UserID
	if h.Resumed() {
		e.destroyStored(ctx, h.ID(), userID)
	}
	e.destroyStored(ctx, h.PreviousID(), userID)
	h.Destroy()

	e.emitAudit(ctx, AuditLogout, true, userID, nil, nil)
	return nil
}

func (e *Engine) destroyStored(ctx context.Context, id, userID string) {
	if id == "" {
		return
	}
	if err := e.store.Destroy(ctx, id); err != nil {
		e.storeFailure(ctx, "destroy", userID, err)
		return
	}
	e.metricInc(MetricSessionDestroyed)
}

// WhoAmI returns the identity of the request's session.
func (e *Engine) WhoAmI(ctx context.Context) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	u, err := e.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate is the gate check: it returns the identity of the request's
// session or ErrUnauthorized, counting rejections.
func (e *Engine) Authenticate(ctx context.Context) (User, error) {
	if !e.ready() {
		return User{}, ErrEngineNotReady
	}
	u, err := e.currentUser(ctx)
	if err != nil {
		e.metricInc(MetricUnauthorized)
		return User{}, err
	}
	return u, nil
}

func (e *Engine) currentUser(ctx context.Context) (User, error) {
	if u, ok := UserFromContext(ctx); ok {
		return u, nil
	}
	h, ok := SessionFromContext(ctx)
	if !ok {
		return User{}, ErrUnauthorized
	}
	u, ok := UserFromSession(h)
	if !ok {
		return User{}, ErrUnauthorized
	}
	return u, nil
}

// LoadSession resolves a verified cookie id to a handle. Unknown, expired
// and malformed ids yield a fresh anonymous handle.
func (e *Engine) LoadSession(ctx context.Context, id string) (*session.Handle, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if id == "" {
		return session.Fresh(), nil
	}
	if _, err := internal.ParseSessionID(id); err != nil {
		return session.Fresh(), nil
	}

	rec, ok, err := e.store.Get(ctx, id)
	if err != nil {
		e.storeFailure(ctx, "get", "", err)
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if !ok {
		e.metricInc(MetricSessionLoadMiss)
		return session.Fresh(), nil
	}
	return session.Resume(rec), nil
}

// CommitSession persists h and reports which cookie operation must follow.
//
//   - destroyed: nothing left to store; clear cookies.
//   - modified: save under the current or a new id; issue the cookie.
//   - resumed and unmodified: roll the expiry when Rolling is set.
//   - fresh and unmodified: nothing.
func (e *Engine) CommitSession(ctx context.Context, h *session.Handle) (CommitResult, error) {
	if !e.ready() {
		return CommitResult{}, ErrEngineNotReady
	}
	if h == nil {
		return CommitResult{Action: CommitNone}, nil
	}

	maxAge := e.config.Session.MaxAge

	switch {
	case h.Destroyed():
		return CommitResult{Action: CommitCleared}, nil

	case h.Modified():
		id, err := h.EnsureID(internal.NewSessionIDString)
		if err != nil {
			return CommitResult{}, fmt.Errorf("generate session id: %w", err)
		}
		data := h.Data()
		if err := e.store.Set(ctx, id, data, maxAge); err != nil {
			e.storeFailure(ctx, "set", data.UserID, err)
			return CommitResult{}, errors.Join(ErrStoreUnavailable, err)
		}

		prev := h.PreviousID()
		if prev != "" {
			e.destroyStored(ctx, prev, data.UserID)
			e.metricInc(MetricSessionRotated)
		}
		if !h.Resumed() || prev != "" {
			e.metricInc(MetricSessionCreated)
		}
		h.Saved()
		return CommitResult{Action: CommitSaved, SessionID: id, MaxAge: maxAge}, nil

	case h.Resumed():
		if !e.config.Session.Rolling {
			return CommitResult{Action: CommitNone}, nil
		}
		id := h.ID()
		if err := e.store.Touch(ctx, id, maxAge); err != nil {
			e.storeFailure(ctx, "touch", h.Data().UserID, err)
			return CommitResult{}, errors.Join(ErrStoreUnavailable, err)
		}
		e.metricInc(MetricSessionTouched)
		return CommitResult{Action: CommitTouched, SessionID: id, MaxAge: maxAge}, nil

	default:
		return CommitResult{Action: CommitNone}, nil
	}
}

// Stats reports the active backend and its live session count.
func (e *Engine) Stats(ctx context.Context) (StoreStats, error) {
	if !e.ready() {
		return StoreStats{}, ErrEngineNotReady
	}
	n, err := e.store.Count(ctx)
	if err != nil {
		e.storeFailure(ctx, "count", "", err)
		return StoreStats{}, errors.Join(ErrStoreUnavailable, err)
	}
	return StoreStats{Backend: e.backend, LiveSessions: n}, nil
}
