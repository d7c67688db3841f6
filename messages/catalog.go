package messages

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys of every message the linking workflow reads.
const (
	KeyOnlyInGame                 = "only-in-game"
	KeyDiscordUsage               = "discord-usage"
	KeyRegisterUsage              = "register-usage"
	KeyInvalidDiscordID           = "invalid-discord-id"
	KeyAlreadyRegistered          = "already-registered"
	KeyVerificationSent           = "verification-sent"
	KeyVerificationFailed         = "verification-failed"
	KeyInvalidCode                = "invalid-code"
	KeyCodeNotForPlayer           = "code-not-for-player"
	KeyRegistrationSuccess        = "registration-success"
	KeyRateLimited                = "rate-limited"
	KeyInternalError              = "internal-error"
	KeyUnknownCommand             = "unknown-command"
	KeyVerificationTitle          = "verification-title"
	KeyVerificationMessage        = "verification-message"
	KeyDiscordVerificationMessage = "discord-verification-message"
	KeyRoleCommand                = "role-command"
	KeyWebhookURL                 = "webhook-url"
)

var defaults = map[string]string{
	KeyOnlyInGame:                 "This command can only be used in-game.",
	KeyDiscordUsage:               "Usage: /discord <discord_id>",
	KeyRegisterUsage:              "Usage: /register <code>",
	KeyInvalidDiscordID:           "That is not a valid Discord ID.",
	KeyAlreadyRegistered:          "That Discord account is already registered.",
	KeyVerificationSent:           "A verification code was sent to Discord. Use /register <code> to finish.",
	KeyVerificationFailed:         "The verification code could not be delivered. Try again later.",
	KeyInvalidCode:                "Invalid or expired verification code.",
	KeyCodeNotForPlayer:           "That verification code was not issued to you.",
	KeyRegistrationSuccess:        "Your Discord account is now linked.",
	KeyRateLimited:                "Too many attempts. Try again later.",
	KeyInternalError:              "Something went wrong. Try again later.",
	KeyUnknownCommand:             "Unknown command.",
	KeyVerificationTitle:          "Account verification",
	KeyVerificationMessage:        "Player {player_name} requested a link. Verification code: {verification_code}",
	KeyDiscordVerificationMessage: "<@{discord_id}> your verification code is {verification_code}",
	KeyRoleCommand:                "!role add {discord_id} verified {player}",
	KeyWebhookURL:                 "",
}

// Catalog maps message keys to templates. The zero value is empty; Message on
// a nil Catalog returns "".
type Catalog struct {
	entries map[string]string
}

// Default returns a Catalog holding the built-in texts.
func Default() *Catalog {
	return New(nil)
}

// New returns the built-in texts overridden by overrides.
func New(overrides map[string]string) *Catalog {
	entries := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		entries[k] = v
	}
	for k, v := range overrides {
		entries[k] = v
	}
	return &Catalog{entries: entries}
}

// Message returns the template stored under key, or "" when it is missing.
func (c *Catalog) Message(key string) string {
	if c == nil {
		return ""
	}
	return c.entries[key]
}

// Len returns the number of templates held.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Parse reads a flat YAML document of key: text pairs over the built-in
// texts. Non-scalar values are skipped so a shared config file may carry
// other sections.
func Parse(data []byte) (*Catalog, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}

	overrides := make(map[string]string, len(doc))
	for key, node := range doc {
		if node.Kind != yaml.ScalarNode {
			continue
		}
		overrides[key] = node.Value
	}
	return New(overrides), nil
}

// LoadFile parses the YAML file at path with [Parse].
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return Parse(data)
}

// Render substitutes placeholder tokens in template. oldnew holds token and
// value pairs as in strings.NewReplacer; a trailing odd token is ignored.
func Render(template string, oldnew ...string) string {
	if template == "" || len(oldnew) < 2 {
		return template
	}
	if len(oldnew)%2 != 0 {
		oldnew = oldnew[:len(oldnew)-1]
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}
