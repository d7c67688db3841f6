package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/messages"
)

func TestParseSettingsDefaults(t *testing.T) {
	t.Setenv("GOLINK_STORE", "")
	t.Setenv("GOLINK_STORE_PATH", "")
	os.Unsetenv("GOLINK_STORE")
	os.Unsetenv("GOLINK_STORE_PATH")

	s, err := parseSettings()
	require.NoError(t, err)
	assert.Equal(t, ":8080", s.Listen)
	assert.Equal(t, storeYAML, s.Store)
	assert.Equal(t, "players.yml", s.StorePath)
	assert.Equal(t, "text", s.LogFormat)
}

func TestParseSettingsRejectsBadStore(t *testing.T) {
	cases := []struct {
		name  string
		env   map[string]string
		valid bool
	}{
		{name: "unknown", env: map[string]string{"GOLINK_STORE": "mongo"}},
		{name: "redis without addr", env: map[string]string{"GOLINK_STORE": "redis", "GOLINK_REDIS_ADDR": ""}},
		{name: "redis with addr", env: map[string]string{"GOLINK_STORE": "Redis", "GOLINK_REDIS_ADDR": "localhost:6379"}, valid: true},
		{name: "memredis", env: map[string]string{"GOLINK_STORE": "memredis"}, valid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := parseSettings()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadFileConfigDefaults(t *testing.T) {
	fc, err := loadFileConfig("")
	require.NoError(t, err)

	want := goLink.DefaultConfig()
	assert.Equal(t, want.Code, fc.Engine.Code)
	assert.True(t, fc.Engine.Audit.Enabled)
	assert.True(t, fc.Engine.Metrics.Enabled)
	assert.Empty(t, fc.WebhookURL)
	assert.Equal(t, messages.Default().Message(messages.KeyInvalidCode), fc.Messages.Message(messages.KeyInvalidCode))
}

func TestLoadFileConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golink.yml")
	doc := `webhook-url: https://discord.example/api/webhooks/1/abc
invalid-code: "Nope."
link:
  code:
    digits: 8
    ttl: 2m
    sweep-interval: 30s
  notification:
    require-delivery: true
    async: true
  embed:
    enabled: false
  rate-limit:
    enabled: true
    window: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	fc, err := loadFileConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://discord.example/api/webhooks/1/abc", fc.WebhookURL)
	assert.Equal(t, "Nope.", fc.Messages.Message(messages.KeyInvalidCode))
	assert.Equal(t, 8, fc.Engine.Code.Digits)
	assert.Equal(t, 2*time.Minute, fc.Engine.Code.TTL)
	assert.Equal(t, 30*time.Second, fc.Engine.Code.SweepInterval)
	assert.True(t, fc.Engine.Notification.RequireDelivery)
	assert.True(t, fc.AsyncNotify)
	assert.False(t, fc.Engine.Embed.Enabled)
	assert.True(t, fc.Engine.RateLimit.Enabled)
	assert.Equal(t, time.Minute, fc.Engine.RateLimit.Window)
}

func TestLoadFileConfigRejectsInvalidTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golink.yml")
	require.NoError(t, os.WriteFile(path, []byte("link:\n  code:\n    digits: 3\n"), 0o600))

	_, err := loadFileConfig(path)
	assert.ErrorContains(t, err, "Code Digits")
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("json", "debug")
	assert.NoError(t, err)
	_, err = newLogger("text", "warn")
	assert.NoError(t, err)
	_, err = newLogger("xml", "info")
	assert.Error(t, err)
	_, err = newLogger("text", "loud")
	assert.Error(t, err)
}
