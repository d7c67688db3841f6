package goLink

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalflows "github.com/MrEthical07/goLink/internal/flows"
	"github.com/MrEthical07/goLink/internal/limiters"
	"github.com/MrEthical07/goLink/internal/stores"
	"github.com/MrEthical07/goLink/messages"
)

// InitiateLinking starts a link between requestingAccount and
// externalAccountID. On success a fresh verification code is held as a
// pending registration and sent through the Notifier; the code itself is
// never returned.
//
// Checks run in order and the first failure wins: empty account
// ([ErrInvalidAccount]), id format ([ErrInvalidExternalID]), rate limit
// ([ErrLinkRateLimited]), existing link ([ErrAlreadyLinked]). Malformed ids
// do not count against the limit.
//
// A failed delivery keeps the pending registration and reports
// Delivered=false. It is an error only with Notification.RequireDelivery.
//
//	Docs: types.go (IdentityStore, Notifier)
func (e *Engine) InitiateLinking(ctx context.Context, requestingAccount, externalAccountID string) (InitiateResult, error) {
	result, err := internalflows.RunInitiateLink(ctx, requestingAccount, externalAccountID, e.flowDeps().Link)
	return InitiateResult{
		RequestID: result.RequestID,
		ExpiresAt: result.ExpiresAt,
		Delivered: result.Delivered,
	}, err
}

// ConfirmLinking completes the link for the pending registration holding
// code. The code must be live ([ErrUnknownOrExpiredCode]) and owned by
// confirmingAccount ([ErrCodeOwnerMismatch]).
//
// The link is written with IdentityStore.Set and Save before the code is
// consumed. When either fails the call returns [ErrPersistenceFailed], the
// code stays usable and no notification is sent.
func (e *Engine) ConfirmLinking(ctx context.Context, confirmingAccount, code string) (ConfirmResult, error) {
	result, err := internalflows.RunConfirmLink(ctx, confirmingAccount, code, e.flowDeps().Link)
	return ConfirmResult{
		RequestID:         result.RequestID,
		ExternalAccountID: result.ExternalAccountID,
		LinkedAt:          result.LinkedAt,
		Delivered:         result.Delivered,
	}, err
}

func isValidExternalID(s string) bool {
	return internalflows.ValidExternalID(s)
}

// flowDeps returns the set wired by Build. Engines that did not come from a
// Builder get a set that fails with ErrEngineNotReady.
func (e *Engine) flowDeps() internalflows.Deps {
	if e == nil || e.flows.Link.IsLinked == nil {
		return internalflows.Deps{Link: e.linkFlowDeps()}
	}
	return e.flows
}

func (e *Engine) linkFlowDeps() internalflows.LinkDeps {
	deps := internalflows.LinkDeps{
		Errors: internalflows.LinkErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidAccount:     ErrInvalidAccount,
			InvalidExternalID:  ErrInvalidExternalID,
			AlreadyLinked:      ErrAlreadyLinked,
			UnknownCode:        ErrUnknownOrExpiredCode,
			OwnerMismatch:      ErrCodeOwnerMismatch,
			NotificationFailed: ErrNotificationDeliveryFailed,
			PersistenceFailed:  ErrPersistenceFailed,
			RateLimited:        ErrLinkRateLimited,
			Unavailable:        ErrLinkUnavailable,
			CodeSpaceExhausted: ErrCodeSpaceExhausted,
		},
	}
	if e == nil || e.store == nil || e.notifier == nil || e.pending == nil {
		return deps
	}

	cfg := e.config
	deps.CodeTTL = cfg.Code.TTL
	deps.MaxCodeDraws = cfg.Code.MaxDraws
	deps.RequireDelivery = cfg.Notification.RequireDelivery
	deps.Now = e.now
	deps.Serialize = func() func() {
		e.mu.Lock()
		return e.mu.Unlock
	}
	deps.CheckInitiateLimiter = e.limiter.CheckInitiate
	deps.CheckConfirmLimiter = e.limiter.CheckConfirm
	deps.MapLimiterError = mapLinkLimiterError
	deps.IsLinked = e.isLinked
	deps.CommitLink = e.commitLink
	deps.GenerateCode = func() (string, error) {
		return e.generateCode()
	}
	deps.NewRequestID = func() string {
		return e.newRequestID()
	}
	deps.ReservePending = func(p internalflows.LinkPending) bool {
		return e.pending.Reserve(stores.PendingEntry(p), e.now())
	}
	deps.LookupPending = func(code string) (internalflows.LinkPending, bool, bool) {
		entry, found, expired := e.pending.Lookup(code, e.now())
		return internalflows.LinkPending(entry), found, expired
	}
	deps.RemovePending = e.pending.Remove
	deps.NotifyVerification = func(ctx context.Context, p internalflows.LinkPending) error {
		return e.deliver(ctx, "verification", p, e.verificationPayload(p))
	}
	deps.NotifyLinked = func(ctx context.Context, p internalflows.LinkPending) error {
		return e.deliver(ctx, "linked", p, e.linkedPayload(p))
	}
	deps.MetricInc = func(id int) {
		e.metricInc(MetricID(id))
	}
	deps.EmitAudit = e.emitAudit
	deps.EmitRateLimit = e.emitRateLimit
	deps.Metrics = internalflows.LinkMetrics{
		InitiateSuccess:    int(MetricInitiateSuccess),
		InitiateFailure:    int(MetricInitiateFailure),
		InvalidExternalID:  int(MetricInvalidExternalID),
		AlreadyLinked:      int(MetricAlreadyLinked),
		CodeCollision:      int(MetricCodeCollision),
		ConfirmSuccess:     int(MetricConfirmSuccess),
		ConfirmFailure:     int(MetricConfirmFailure),
		UnknownCode:        int(MetricUnknownCode),
		OwnerMismatch:      int(MetricOwnerMismatch),
		PendingExpired:     int(MetricPendingExpired),
		PersistenceFailure: int(MetricPersistenceFailure),
	}
	deps.Events = internalflows.LinkEvents{
		Initiate: auditEventLinkInitiate,
		Confirm:  auditEventLinkConfirm,
		Expired:  auditEventLinkExpired,
	}
	return deps
}

func (e *Engine) isLinked(ctx context.Context, externalID string) (bool, error) {
	linked, err := e.store.Exists(ctx, externalID)
	if err != nil {
		e.logger.ErrorContext(ctx, "identity store lookup failed", "external_account_id", externalID, "error", err)
	}
	return linked, err
}

func (e *Engine) commitLink(ctx context.Context, externalID, account string, linkedAt time.Time) error {
	record := LinkedAccount{
		LocalAccount:      account,
		ExternalAccountID: externalID,
		LinkedAt:          linkedAt.UTC(),
	}
	if err := e.store.Set(ctx, externalID, record); err != nil {
		e.logger.ErrorContext(ctx, "identity store write failed", "external_account_id", externalID, "account", account, "error", err)
		return fmt.Errorf("set: %w", err)
	}
	if err := e.store.Save(ctx); err != nil {
		e.logger.ErrorContext(ctx, "identity store save failed", "external_account_id", externalID, "account", account, "error", err)
		return fmt.Errorf("save: %w", err)
	}
	e.logger.InfoContext(ctx, "account linked", "external_account_id", externalID, "account", account)
	return nil
}

// deliver sends payload, bounded by Notification.Timeout, and records the
// outcome. The verification code is never logged.
func (e *Engine) deliver(ctx context.Context, kind string, p internalflows.LinkPending, payload Payload) error {
	if timeout := e.config.Notification.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := e.notifier.Send(ctx, payload)
	if e.metrics != nil {
		e.metrics.Observe(MetricNotificationLatency, time.Since(start))
	}

	if err != nil {
		e.metricInc(MetricNotificationFailed)
		e.logger.WarnContext(ctx, "notification delivery failed",
			"kind", kind,
			"request_id", p.RequestID,
			"external_account_id", p.ExternalAccountID,
			"error", err,
		)
		e.emitAudit(ctx, auditEventLinkNotify, false, p.RequestingAccount, p.ExternalAccountID, p.RequestID, ErrNotificationDeliveryFailed, func() map[string]string {
			return map[string]string{
				"kind": kind,
			}
		})
		return err
	}

	e.metricInc(MetricNotificationSent)
	e.emitAudit(ctx, auditEventLinkNotify, true, p.RequestingAccount, p.ExternalAccountID, p.RequestID, nil, func() map[string]string {
		return map[string]string{
			"kind": kind,
		}
	})
	return nil
}

func (e *Engine) verificationPayload(p internalflows.LinkPending) Payload {
	vars := []string{
		PlaceholderPlayerName, p.RequestingAccount,
		PlaceholderPlayer, p.RequestingAccount,
		PlaceholderExternalID, p.ExternalAccountID,
		PlaceholderVerificationCode, p.Code,
	}

	payload := Payload{
		Content: messages.Render(e.messages.Message(TemplateChannelVerification), vars...),
	}
	if e.config.Embed.Enabled {
		payload.Embeds = []Embed{{
			Title:       messages.Render(e.messages.Message(TemplateVerificationTitle), vars...),
			Description: messages.Render(e.messages.Message(TemplateVerificationMessage), vars...),
			Color:       e.config.Embed.Color,
		}}
	}
	return payload
}

func (e *Engine) linkedPayload(p internalflows.LinkPending) Payload {
	return Payload{
		Content: messages.Render(e.messages.Message(TemplateRoleCommand),
			PlaceholderPlayer, p.RequestingAccount,
			PlaceholderPlayerName, p.RequestingAccount,
			PlaceholderExternalID, p.ExternalAccountID,
		),
	}
}

func mapLinkLimiterError(err error) error {
	switch {
	case errors.Is(err, limiters.ErrLinkRateLimited):
		return ErrLinkRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrLinkUnavailable, err)
	}
}
