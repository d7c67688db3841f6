package goLink

import (
	"errors"
	"time"

	"github.com/MrEthical07/goLink/internal"
)

// Config defines the tunables of an [Engine].
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Code         CodeConfig
	Notification NotificationConfig
	Embed        EmbedConfig
	RateLimit    RateLimitConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
CODE CONFIG
====================================
*/

// CodeConfig controls verification code generation and pending registration lifetime.
type CodeConfig struct {
	Digits int
	// TTL of a pending registration. Zero keeps registrations until confirmed.
	TTL time.Duration
	// SweepInterval of the background eviction loop. Zero disables the loop;
	// expired entries are still evicted lazily on lookup. Ignored when TTL is zero.
	SweepInterval time.Duration
	// MaxDraws bounds how many codes are drawn before giving up on collisions.
	MaxDraws int
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig controls outbound notification behavior.
type NotificationConfig struct {
	// Timeout bounds a single Notifier.Send call. Zero leaves the caller's context untouched.
	Timeout time.Duration
	// RequireDelivery surfaces ErrNotificationDeliveryFailed to callers instead of
	// only recording the failure. State is committed either way.
	RequireDelivery bool
}

// EmbedConfig controls the rich embed attached to verification notifications.
type EmbedConfig struct {
	Enabled bool
	Color   int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the per-account throttle. It is active only when
// Enabled is true and the Builder received a Redis client.
type RateLimitConfig struct {
	Enabled             bool
	RedisPrefix         string
	MaxInitiateAttempts int
	MaxConfirmAttempts  int
	Window              time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig configures the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig configures in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultEmbedColor is the blue used for verification embeds.
const DefaultEmbedColor = 3447003

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Code: CodeConfig{
			Digits:        6,
			TTL:           10 * time.Minute,
			SweepInterval: time.Minute,
			MaxDraws:      32,
		},
		Notification: NotificationConfig{
			Timeout:         10 * time.Second,
			RequireDelivery: false,
		},
		Embed: EmbedConfig{
			Enabled: true,
			Color:   DefaultEmbedColor,
		},
		RateLimit: RateLimitConfig{
			Enabled:             false,
			RedisPrefix:         "gl",
			MaxInitiateAttempts: 5,
			MaxConfirmAttempts:  10,
			Window:              15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Code
	if c.Code.Digits < internal.MinCodeDigits || c.Code.Digits > internal.MaxCodeDigits {
		return errors.New("Code Digits must be between 6 and 10")
	}
	if c.Code.TTL < 0 {
		return errors.New("Code TTL must be >= 0")
	}
	if c.Code.SweepInterval < 0 {
		return errors.New("Code SweepInterval must be >= 0")
	}
	if c.Code.MaxDraws <= 0 {
		return errors.New("Code MaxDraws must be > 0")
	}

	// Notification
	if c.Notification.Timeout < 0 {
		return errors.New("Notification Timeout must be >= 0")
	}
	if c.Embed.Color < 0 || c.Embed.Color > 0xFFFFFF {
		return errors.New("Embed Color must be a 24-bit value")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
		if c.RateLimit.MaxInitiateAttempts <= 0 {
			return errors.New("RateLimit MaxInitiateAttempts must be > 0")
		}
		if c.RateLimit.MaxConfirmAttempts <= 0 {
			return errors.New("RateLimit MaxConfirmAttempts must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
