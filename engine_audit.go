package goLink

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLinkInitiate       = "link_initiate"
	auditEventLinkConfirm        = "link_confirm"
	auditEventLinkNotify         = "link_notify"
	auditEventLinkExpired        = "link_expired"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// AuditErrorCode is the stable, non-sensitive error label written to
// [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidAccount     AuditErrorCode = "invalid_account"
	auditErrInvalidExternalID  AuditErrorCode = "invalid_external_id"
	auditErrAlreadyLinked      AuditErrorCode = "already_linked"
	auditErrUnknownCode        AuditErrorCode = "unknown_code"
	auditErrOwnerMismatch      AuditErrorCode = "owner_mismatch"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrPersistenceFailed  AuditErrorCode = "persistence_failed"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrCodeSpaceExhausted AuditErrorCode = "code_space_exhausted"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	account string,
	externalID string,
	requestID string,
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
		Timestamp:         e.now().UTC(),
		EventType:         eventType,
		Account:           account,
		ExternalAccountID: externalID,
		RequestID:         requestID,
		Source:            sourceFromContext(ctx),
		IP:                clientIPFromContext(ctx),
		Success:           success,
		Metadata:          metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, account string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, account, "", "", nil, func() map[string]string {
		return map[string]string{
			"scope": scope,
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidAccount):
		return auditErrInvalidAccount
	case errors.Is(err, ErrInvalidExternalID):
		return auditErrInvalidExternalID
	case errors.Is(err, ErrAlreadyLinked):
		return auditErrAlreadyLinked
	case errors.Is(err, ErrUnknownOrExpiredCode):
		return auditErrUnknownCode
	case errors.Is(err, ErrCodeOwnerMismatch):
		return auditErrOwnerMismatch
	case errors.Is(err, ErrNotificationDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrPersistenceFailed):
		return auditErrPersistenceFailed
	case errors.Is(err, ErrLinkRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrCodeSpaceExhausted):
		return auditErrCodeSpaceExhausted
	case errors.Is(err, ErrLinkUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, e.now().Sub(start))
}
