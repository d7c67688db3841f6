package goLink

import (
	"context"
	"time"
)

// LinkedAccount is the durable record binding one external account to a
// local account. IdentityStore implementations key it by ExternalAccountID.
type LinkedAccount struct {
	LocalAccount      string    `json:"player" yaml:"player"`
	ExternalAccountID string    `json:"discord_id" yaml:"discord_id"`
	LinkedAt          time.Time `json:"linked_at,omitempty" yaml:"linked_at,omitempty"`
}

// IdentityStore is the durable mapping of external account id to
// [LinkedAccount]. Set may buffer; Save must make every prior Set durable.
// Exists reports saved records only. A failed Save must leave the saved
// state unchanged and discard what was staged.
//
//	Docs: stores/yamlstore, stores/redisstore, stores/sqlitestore
type IdentityStore interface {
	Exists(ctx context.Context, externalAccountID string) (bool, error)
	Set(ctx context.Context, externalAccountID string, record LinkedAccount) error
	Save(ctx context.Context) error
}

// Embed is one rich display object attached to a [Payload].
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
}

// Payload is the body delivered by a [Notifier]. Its JSON form is a Discord
// webhook execute request.
type Payload struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Notifier delivers a payload to the external platform. A nil error means the
// platform acknowledged the message.
//
//	Docs: notify
type Notifier interface {
	Send(ctx context.Context, payload Payload) error
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, payload Payload) error

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, payload Payload) error {
	return f(ctx, payload)
}

// MessageProvider supplies message templates by key. Missing keys return "".
//
//	Docs: messages
type MessageProvider interface {
	Message(key string) string
}

// Template keys read by the Engine when building notifications.
const (
	TemplateVerificationTitle   = "verification-title"
	TemplateVerificationMessage = "verification-message"
	TemplateChannelVerification = "discord-verification-message"
	TemplateRoleCommand         = "role-command"
)

// Placeholder tokens substituted into templates.
const (
	PlaceholderPlayerName       = "{player_name}"
	PlaceholderExternalID       = "{discord_id}"
	PlaceholderVerificationCode = "{verification_code}"
	PlaceholderPlayer           = "{player}"
)

// InitiateResult is returned by [Engine.InitiateLinking]. It never carries the
// verification code; the code reaches the user only through the Notifier.
type InitiateResult struct {
	RequestID string
	// ExpiresAt is zero when codes do not expire.
	ExpiresAt time.Time
	Delivered bool
}

// ConfirmResult is returned by [Engine.ConfirmLinking].
type ConfirmResult struct {
	RequestID         string
	ExternalAccountID string
	LinkedAt          time.Time
	Delivered         bool
}

// IsValidExternalID reports whether s consists only of decimal digits and is
// 17 to 19 characters long.
func IsValidExternalID(s string) bool {
	return isValidExternalID(s)
}
