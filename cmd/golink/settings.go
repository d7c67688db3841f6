package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/messages"
)

// Store backends selectable through GOLINK_STORE.
const (
	storeYAML     = "yaml"
	storeRedis    = "redis"
	storeSQLite   = "sqlite"
	storeMemRedis = "memredis"
)

// settings are process level knobs read from the environment.
type settings struct {
	Listen     string `env:"GOLINK_LISTEN" envDefault:":8080"`
	Store      string `env:"GOLINK_STORE" envDefault:"yaml"`
	StorePath  string `env:"GOLINK_STORE_PATH" envDefault:"players.yml"`
	RedisAddr  string `env:"GOLINK_REDIS_ADDR"`
	RedisKey   string `env:"GOLINK_REDIS_KEY"`
	LogFormat  string `env:"GOLINK_LOG_FORMAT" envDefault:"text"`
	LogLevel   string `env:"GOLINK_LOG_LEVEL" envDefault:"info"`
	APIToken   string `env:"GOLINK_API_TOKEN"`
	WebhookURL string `env:"GOLINK_WEBHOOK_URL"`
}

func parseSettings() (settings, error) {
	var s settings
	if err := env.Parse(&s); err != nil {
		return settings{}, fmt.Errorf("parse env: %w", err)
	}
	s.Store = strings.ToLower(strings.TrimSpace(s.Store))
	switch s.Store {
	case storeYAML, storeSQLite:
		if s.StorePath == "" {
			return settings{}, fmt.Errorf("GOLINK_STORE_PATH is required for the %s store", s.Store)
		}
	case storeRedis:
		if s.RedisAddr == "" {
			return settings{}, fmt.Errorf("GOLINK_REDIS_ADDR is required for the redis store")
		}
	case storeMemRedis:
	default:
		return settings{}, fmt.Errorf("unknown GOLINK_STORE %q", s.Store)
	}
	return s, nil
}

// fileConfig is everything read from the --config file.
type fileConfig struct {
	Engine      goLink.Config
	WebhookURL  string
	AsyncNotify bool
	AsyncBuffer int
	Messages    *messages.Catalog
}

// loadFileConfig reads path with viper over the engine defaults. An empty
// path yields the defaults and the built-in message texts.
func loadFileConfig(path string) (fileConfig, error) {
	v := viper.New()
	setConfigDefaults(v)

	catalog := messages.Default()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fileConfig{}, fmt.Errorf("read config: %w", err)
		}
		loaded, err := messages.LoadFile(path)
		if err != nil {
			return fileConfig{}, err
		}
		catalog = loaded
	}

	cfg := goLink.DefaultConfig()
	cfg.Code.Digits = v.GetInt("link.code.digits")
	cfg.Code.TTL = v.GetDuration("link.code.ttl")
	cfg.Code.SweepInterval = v.GetDuration("link.code.sweep-interval")
	cfg.Code.MaxDraws = v.GetInt("link.code.max-draws")
	cfg.Notification.Timeout = v.GetDuration("link.notification.timeout")
	cfg.Notification.RequireDelivery = v.GetBool("link.notification.require-delivery")
	cfg.Embed.Enabled = v.GetBool("link.embed.enabled")
	cfg.Embed.Color = v.GetInt("link.embed.color")
	cfg.RateLimit.Enabled = v.GetBool("link.rate-limit.enabled")
	cfg.RateLimit.RedisPrefix = v.GetString("link.rate-limit.redis-prefix")
	cfg.RateLimit.MaxInitiateAttempts = v.GetInt("link.rate-limit.max-initiate-attempts")
	cfg.RateLimit.MaxConfirmAttempts = v.GetInt("link.rate-limit.max-confirm-attempts")
	cfg.RateLimit.Window = v.GetDuration("link.rate-limit.window")
	cfg.Audit.Enabled = v.GetBool("link.audit.enabled")
	cfg.Audit.BufferSize = v.GetInt("link.audit.buffer-size")
	cfg.Audit.DropIfFull = v.GetBool("link.audit.drop-if-full")
	cfg.Metrics.Enabled = v.GetBool("link.metrics.enabled")
	cfg.Metrics.EnableLatencyHistograms = v.GetBool("link.metrics.latency-histograms")

	if err := cfg.Validate(); err != nil {
		return fileConfig{}, fmt.Errorf("invalid link settings: %w", err)
	}

	return fileConfig{
		Engine:      cfg,
		WebhookURL:  strings.TrimSpace(v.GetString(messages.KeyWebhookURL)),
		AsyncNotify: v.GetBool("link.notification.async"),
		AsyncBuffer: v.GetInt("link.notification.async-buffer"),
		Messages:    catalog,
	}, nil
}

func setConfigDefaults(v *viper.Viper) {
	d := goLink.DefaultConfig()

	v.SetDefault("link.code.digits", d.Code.Digits)
	v.SetDefault("link.code.ttl", d.Code.TTL)
	v.SetDefault("link.code.sweep-interval", d.Code.SweepInterval)
	v.SetDefault("link.code.max-draws", d.Code.MaxDraws)

	v.SetDefault("link.notification.timeout", d.Notification.Timeout)
	v.SetDefault("link.notification.require-delivery", d.Notification.RequireDelivery)
	v.SetDefault("link.notification.async", false)
	v.SetDefault("link.notification.async-buffer", 256)

	v.SetDefault("link.embed.enabled", d.Embed.Enabled)
	v.SetDefault("link.embed.color", d.Embed.Color)

	v.SetDefault("link.rate-limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("link.rate-limit.redis-prefix", d.RateLimit.RedisPrefix)
	v.SetDefault("link.rate-limit.max-initiate-attempts", d.RateLimit.MaxInitiateAttempts)
	v.SetDefault("link.rate-limit.max-confirm-attempts", d.RateLimit.MaxConfirmAttempts)
	v.SetDefault("link.rate-limit.window", d.RateLimit.Window)

	v.SetDefault("link.audit.enabled", true)
	v.SetDefault("link.audit.buffer-size", d.Audit.BufferSize)
	v.SetDefault("link.audit.drop-if-full", d.Audit.DropIfFull)

	v.SetDefault("link.metrics.enabled", true)
	v.SetDefault("link.metrics.latency-histograms", true)
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid GOLINK_LOG_LEVEL %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid GOLINK_LOG_FORMAT %q", format)
	}
}
