package goSession

import (
	"context"
	"errors"
)

// AuditErrorCode is the stable error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrMissingIdentity    AuditErrorCode = "missing_identity"
	auditErrMissingCredential  AuditErrorCode = "missing_credential"
	auditErrSessionUnavailable AuditErrorCode = "session_unavailable"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType AuditEventType,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Time:        e.clock.Now().UTC(),
		Type:        eventType,
		Environment: e.config.Environment,
		Backend:     e.backend,
		UserID:      userID,
		RequestID:   RequestIDFromContext(ctx),
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// storeFailure records a backend error on any path.
func (e *Engine) storeFailure(ctx context.Context, op string, userID string, err error) {
	e.metricInc(MetricStoreFailure)
	e.log.Error(err, "session store operation failed", "op", op, "backend", e.backend, "request_id", RequestIDFromContext(ctx))
	e.emitAudit(ctx, AuditStoreFailure, false, userID, err, func() map[string]string {
		return map[string]string{"op": op}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrMissingIdentity):
		return auditErrMissingIdentity
	case errors.Is(err, ErrMissingCredential):
		return auditErrMissingCredential
	case errors.Is(err, ErrSessionUnavailable):
		return auditErrSessionUnavailable
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
