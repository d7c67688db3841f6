package goLink

import "errors"

var (
	// ErrInvalidExternalID is returned when the external account id is not a 17-19 digit snowflake.
	ErrInvalidExternalID = errors.New("invalid external account id")
	// ErrAlreadyLinked is returned when the external account id already has a linked account.
	ErrAlreadyLinked = errors.New("external account already linked")
	// ErrUnknownOrExpiredCode is returned when no live pending registration holds the code.
	ErrUnknownOrExpiredCode = errors.New("unknown or expired verification code")
	// ErrCodeOwnerMismatch is returned when the code was issued to a different local account.
	ErrCodeOwnerMismatch = errors.New("verification code issued to another account")
	// ErrNotificationDeliveryFailed is returned only when Notification.RequireDelivery is set.
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
	// ErrPersistenceFailed is returned when the identity store cannot be read or written.
	ErrPersistenceFailed = errors.New("identity store persistence failed")
	// ErrInvalidAccount is returned when the local account name is empty.
	ErrInvalidAccount = errors.New("invalid local account")
	// ErrLinkRateLimited is returned when the per-account throttle rejects the call.
	ErrLinkRateLimited = errors.New("link rate limited")
	// ErrLinkUnavailable is returned when a backend needed by the flow is unavailable.
	ErrLinkUnavailable = errors.New("link backend unavailable")
	// ErrCodeSpaceExhausted is returned when no free code was found within Code.MaxDraws draws.
	ErrCodeSpaceExhausted = errors.New("verification code space exhausted")
	// ErrEngineNotReady is returned when the engine is missing a collaborator.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Message keys looked up by presentation layers for each outcome.
const (
	MessageKeyVerificationSent    = "verification-sent"
	MessageKeyRegistrationSuccess = "registration-success"
	MessageKeyInvalidExternalID   = "invalid-discord-id"
	MessageKeyAlreadyLinked       = "already-registered"
	MessageKeyInvalidCode         = "invalid-code"
	MessageKeyCodeOwnerMismatch   = "code-not-for-player"
	MessageKeyDeliveryFailed      = "verification-failed"
	MessageKeyRateLimited         = "rate-limited"
	MessageKeyInternalError       = "internal-error"
)

// MessageKey maps an error returned by the Engine to the configuration key of
// the user-facing message. A nil error maps to the empty string.
func MessageKey(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidExternalID):
		return MessageKeyInvalidExternalID
	case errors.Is(err, ErrAlreadyLinked):
		return MessageKeyAlreadyLinked
	case errors.Is(err, ErrUnknownOrExpiredCode):
		return MessageKeyInvalidCode
	case errors.Is(err, ErrCodeOwnerMismatch):
		return MessageKeyCodeOwnerMismatch
	case errors.Is(err, ErrNotificationDeliveryFailed):
		return MessageKeyDeliveryFailed
	case errors.Is(err, ErrLinkRateLimited):
		return MessageKeyRateLimited
	default:
		return MessageKeyInternalError
	}
}
