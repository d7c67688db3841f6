package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goLink/internal"
)

const (
	MinExternalIDLength = 17
	MaxExternalIDLength = 19
)

// ValidExternalID reports whether id is a Discord snowflake: decimal digits
// only, 17 to 19 characters.
func ValidExternalID(id string) bool {
	return len(id) >= MinExternalIDLength && len(id) <= MaxExternalIDLength && internal.IsDecimal(id)
}

type LinkPending struct {
	Code              string
	RequestID         string
	RequestingAccount string
	ExternalAccountID string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

type LinkMetrics struct {
	InitiateSuccess    int
	InitiateFailure    int
	InvalidExternalID  int
	AlreadyLinked      int
	CodeCollision      int
	ConfirmSuccess     int
	ConfirmFailure     int
	UnknownCode        int
	OwnerMismatch      int
	PendingExpired     int
	PersistenceFailure int
}

type LinkEvents struct {
	Initiate string
	Confirm  string
	Expired  string
}

type LinkErrors struct {
	EngineNotReady     error
	InvalidAccount     error
	InvalidExternalID  error
	AlreadyLinked      error
	UnknownCode        error
	OwnerMismatch      error
	NotificationFailed error
	PersistenceFailed  error
	RateLimited        error
	Unavailable        error
	CodeSpaceExhausted error
}

type LinkDeps struct {
	CodeTTL         time.Duration
	MaxCodeDraws    int
	RequireDelivery bool
	Now             func() time.Time

	// Serialize acquires the engine-wide critical section and returns its release.
	Serialize func() func()

	CheckInitiateLimiter func(context.Context, string) error
	CheckConfirmLimiter  func(context.Context, string) error
	MapLimiterError      func(error) error

	IsLinked   func(context.Context, string) (bool, error)
	CommitLink func(context.Context, string, string, time.Time) error

	GenerateCode   func() (string, error)
	NewRequestID   func() string
	ReservePending func(LinkPending) bool
	LookupPending  func(string) (LinkPending, bool, bool)
	RemovePending  func(string)

	NotifyVerification func(context.Context, LinkPending) error
	NotifyLinked       func(context.Context, LinkPending) error

	MetricInc     func(int)
	EmitAudit     func(context.Context, string, bool, string, string, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, string)

	Metrics LinkMetrics
	Events  LinkEvents
	Errors  LinkErrors
}

type InitiateLinkResult struct {
	RequestID string
	ExpiresAt time.Time
	Delivered bool
}

type ConfirmLinkResult struct {
	RequestID         string
	ExternalAccountID string
	LinkedAt          time.Time
	Delivered         bool
}

func RunInitiateLink(ctx context.Context, account, externalID string, deps LinkDeps) (InitiateLinkResult, error) {
	normalizeLinkDeps(&deps)

	if deps.IsLinked == nil || deps.GenerateCode == nil || deps.ReservePending == nil || deps.NotifyVerification == nil {
		return InitiateLinkResult{}, deps.Errors.EngineNotReady
	}
	if account == "" {
		deps.MetricInc(deps.Metrics.InitiateFailure)
		deps.EmitAudit(ctx, deps.Events.Initiate, false, "", externalID, "", deps.Errors.InvalidAccount, func() map[string]string {
			return map[string]string{
				"reason": "empty_account",
			}
		})
		return InitiateLinkResult{}, deps.Errors.InvalidAccount
	}

	// Malformed ids never reach the limiter.
	if !ValidExternalID(externalID) {
		deps.MetricInc(deps.Metrics.InitiateFailure)
		deps.MetricInc(deps.Metrics.InvalidExternalID)
		deps.EmitAudit(ctx, deps.Events.Initiate, false, account, "", "", deps.Errors.InvalidExternalID, func() map[string]string {
			return map[string]string{
				"length": fmt.Sprint(len(externalID)),
			}
		})
		return InitiateLinkResult{}, deps.Errors.InvalidExternalID
	}

	if err := deps.CheckInitiateLimiter(ctx, account); err != nil {
		mapped := deps.MapLimiterError(err)
		deps.MetricInc(deps.Metrics.InitiateFailure)
		deps.EmitAudit(ctx, deps.Events.Initiate, false, account, externalID, "", mapped, nil)
		if errors.Is(mapped, deps.Errors.RateLimited) {
			deps.EmitRateLimit(ctx, "link_initiate", account)
		}
		return InitiateLinkResult{}, mapped
	}

	unlock := deps.Serialize()
	pending, err := reserveLink(ctx, account, externalID, &deps)
	unlock()
	if err != nil {
		return InitiateLinkResult{}, err
	}

	result := InitiateLinkResult{
		RequestID: pending.RequestID,
		ExpiresAt: pending.ExpiresAt,
	}

	// The entry is already committed; delivery failure leaves it in place.
	notifyErr := deps.NotifyVerification(ctx, pending)
	result.Delivered = notifyErr == nil

	deps.MetricInc(deps.Metrics.InitiateSuccess)
	deps.EmitAudit(ctx, deps.Events.Initiate, true, account, externalID, pending.RequestID, nil, func() map[string]string {
		return map[string]string{
			"delivered": fmt.Sprint(result.Delivered),
		}
	})

	if notifyErr != nil && deps.RequireDelivery {
		return result, fmt.Errorf("%w: %v", deps.Errors.NotificationFailed, notifyErr)
	}
	return result, nil
}

func reserveLink(ctx context.Context, account, externalID string, deps *LinkDeps) (LinkPending, error) {
	linked, err := deps.IsLinked(ctx, externalID)
	if err != nil {
		deps.MetricInc(deps.Metrics.InitiateFailure)
		deps.MetricInc(deps.Metrics.PersistenceFailure)
		mapped := fmt.Errorf("%w: %v", deps.Errors.PersistenceFailed, err)
		deps.EmitAudit(ctx, deps.Events.Initiate, false, account, externalID, "", mapped, func() map[string]string {
			return map[string]string{
				"reason": "store_lookup_failed",
			}
		})
		return LinkPending{}, mapped
	}
	if linked {
		deps.MetricInc(deps.Metrics.InitiateFailure)
		deps.MetricInc(deps.Metrics.AlreadyLinked)
		deps.EmitAudit(ctx, deps.Events.Initiate, false, account, externalID, "", deps.Errors.AlreadyLinked, nil)
		return LinkPending{}, deps.Errors.AlreadyLinked
	}

	now := deps.Now()
	pending := LinkPending{
		RequestID:         deps.NewRequestID(),
		RequestingAccount: account,
		ExternalAccountID: externalID,
		CreatedAt:         now,
	}
	if deps.CodeTTL > 0 {
		pending.ExpiresAt = now.Add(deps.CodeTTL)
	}

	for draw := 0; draw < deps.MaxCodeDraws; draw++ {
		code, err := deps.GenerateCode()
		if err != nil {
			deps.MetricInc(deps.Metrics.InitiateFailure)
			deps.EmitAudit(ctx, deps.Events.Initiate, false, account, externalID, pending.RequestID, deps.Errors.Unavailable, func() map[string]string {
				return map[string]string{
					"reason": "code_generation_failed",
				}
			})
			return LinkPending{}, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
		}
		pending.Code = code
		if deps.ReservePending(pending) {
			return pending, nil
		}
		deps.MetricInc(deps.Metrics.CodeCollision)
	}

	deps.MetricInc(deps.Metrics.InitiateFailure)
	deps.EmitAudit(ctx, deps.Events.Initiate, false, account, externalID, pending.RequestID, deps.Errors.CodeSpaceExhausted, func() map[string]string {
		return map[string]string{
			"draws": fmt.Sprint(deps.MaxCodeDraws),
		}
	})
	return LinkPending{}, deps.Errors.CodeSpaceExhausted
}

func RunConfirmLink(ctx context.Context, account, code string, deps LinkDeps) (ConfirmLinkResult, error) {
	normalizeLinkDeps(&deps)

	if deps.IsLinked == nil || deps.CommitLink == nil || deps.LookupPending == nil || deps.RemovePending == nil || deps.NotifyLinked == nil {
		return ConfirmLinkResult{}, deps.Errors.EngineNotReady
	}
	if account == "" {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, "", "", "", deps.Errors.InvalidAccount, func() map[string]string {
			return map[string]string{
				"reason": "empty_account",
			}
		})
		return ConfirmLinkResult{}, deps.Errors.InvalidAccount
	}

	if err := deps.CheckConfirmLimiter(ctx, account); err != nil {
		mapped := deps.MapLimiterError(err)
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, account, "", "", mapped, nil)
		if errors.Is(mapped, deps.Errors.RateLimited) {
			deps.EmitRateLimit(ctx, "link_confirm", account)
		}
		return ConfirmLinkResult{}, mapped
	}

	unlock := deps.Serialize()
	pending, linkedAt, err := commitLink(ctx, account, code, &deps)
	unlock()
	if err != nil {
		return ConfirmLinkResult{}, err
	}

	result := ConfirmLinkResult{
		RequestID:         pending.RequestID,
		ExternalAccountID: pending.ExternalAccountID,
		LinkedAt:          linkedAt,
	}

	// The mapping is persisted and the code consumed before the role notification goes out.
	notifyErr := deps.NotifyLinked(ctx, pending)
	result.Delivered = notifyErr == nil

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, account, pending.ExternalAccountID, pending.RequestID, nil, func() map[string]string {
		return map[string]string{
			"delivered": fmt.Sprint(result.Delivered),
		}
	})

	if notifyErr != nil && deps.RequireDelivery {
		return result, fmt.Errorf("%w: %v", deps.Errors.NotificationFailed, notifyErr)
	}
	return result, nil
}

func commitLink(ctx context.Context, account, code string, deps *LinkDeps) (LinkPending, time.Time, error) {
	pending, found, expired := deps.LookupPending(code)
	if expired {
		deps.MetricInc(deps.Metrics.PendingExpired)
		deps.EmitAudit(ctx, deps.Events.Expired, false, pending.RequestingAccount, pending.ExternalAccountID, pending.RequestID, nil, func() map[string]string {
			return map[string]string{
				"trigger": "lookup",
			}
		})
	}
	if !found {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.MetricInc(deps.Metrics.UnknownCode)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, account, "", "", deps.Errors.UnknownCode, func() map[string]string {
			return map[string]string{
				"expired": fmt.Sprint(expired),
			}
		})
		return LinkPending{}, time.Time{}, deps.Errors.UnknownCode
	}

	if pending.RequestingAccount != account {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.MetricInc(deps.Metrics.OwnerMismatch)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, account, pending.ExternalAccountID, pending.RequestID, deps.Errors.OwnerMismatch, nil)
		return LinkPending{}, time.Time{}, deps.Errors.OwnerMismatch
	}

	linked, err := deps.IsLinked(ctx, pending.ExternalAccountID)
	if err != nil {
		return LinkPending{}, time.Time{}, persistenceFailure(ctx, account, pending, "store_lookup_failed", err, deps)
	}
	if linked {
		// Another confirmation won the race for this external id; the entry can never succeed.
		deps.RemovePending(code)
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.MetricInc(deps.Metrics.AlreadyLinked)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, account, pending.ExternalAccountID, pending.RequestID, deps.Errors.AlreadyLinked, nil)
		return LinkPending{}, time.Time{}, deps.Errors.AlreadyLinked
	}

	linkedAt := deps.Now()
	if err := deps.CommitLink(ctx, pending.ExternalAccountID, account, linkedAt); err != nil {
		return LinkPending{}, time.Time{}, persistenceFailure(ctx, account, pending, "store_write_failed", err, deps)
	}

	deps.RemovePending(code)
	return pending, linkedAt, nil
}

func persistenceFailure(ctx context.Context, account string, pending LinkPending, reason string, cause error, deps *LinkDeps) error {
	mapped := fmt.Errorf("%w: %v", deps.Errors.PersistenceFailed, cause)
	deps.MetricInc(deps.Metrics.ConfirmFailure)
	deps.MetricInc(deps.Metrics.PersistenceFailure)
	deps.EmitAudit(ctx, deps.Events.Confirm, false, account, pending.ExternalAccountID, pending.RequestID, mapped, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return mapped
}

func normalizeLinkDeps(deps *LinkDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MaxCodeDraws <= 0 {
		deps.MaxCodeDraws = 1
	}
	if deps.Serialize == nil {
		deps.Serialize = func() func() { return func() {} }
	}
	if deps.NewRequestID == nil {
		deps.NewRequestID = func() string { return "" }
	}
	if deps.CheckInitiateLimiter == nil {
		deps.CheckInitiateLimiter = func(context.Context, string) error { return nil }
	}
	if deps.CheckConfirmLimiter == nil {
		deps.CheckConfirmLimiter = func(context.Context, string) error { return nil }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(error) error { return deps.Errors.Unavailable }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, string, error, func() map[string]string) {}
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, string) {}
	}
}
