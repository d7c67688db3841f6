package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/messages"
)

const testDiscordID = "123456789012345678"

var codePattern = regexp.MustCompile(`code is (\d{6})`)

type testApp struct {
	*app
	notifications *bytes.Buffer
	audit         *bytes.Buffer
	router        http.Handler
}

func newTestApp(t *testing.T, store string, token string) *testApp {
	t.Helper()

	fc, err := loadFileConfig("")
	require.NoError(t, err)
	fc.Engine.Code.SweepInterval = 0

	s := settings{Store: store, StorePath: filepath.Join(t.TempDir(), "players.db")}
	if store == storeYAML {
		s.StorePath = filepath.Join(t.TempDir(), "players.yml")
	}

	notifications := &bytes.Buffer{}
	audit := &bytes.Buffer{}
	a, err := newApp(appOptions{
		settings:  s,
		file:      fc,
		dryRun:    true,
		dryRunOut: notifications,
		auditOut:  audit,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return &testApp{app: a, notifications: notifications, audit: audit, router: newRouter(a, token)}
}

func (ta *testApp) post(t *testing.T, cmd string, body string, token string) (int, commandResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/commands/"+cmd, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:4242"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)

	var resp commandResponse
	if rec.Code != http.StatusUnauthorized {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func (ta *testApp) lastCode(t *testing.T) string {
	t.Helper()
	m := codePattern.FindAllStringSubmatch(ta.notifications.String(), -1)
	require.NotEmpty(t, m, "no verification code in %q", ta.notifications.String())
	return m[len(m)-1][1]
}

func TestServeLinkFlow(t *testing.T) {
	for _, store := range []string{storeYAML, storeSQLite, storeMemRedis} {
		t.Run(store, func(t *testing.T) {
			ta := newTestApp(t, store, "")

			status, resp := ta.post(t, "discord", `{"sender":"Alice","args":["`+testDiscordID+`"]}`, "")
			require.Equal(t, http.StatusOK, status)
			require.True(t, resp.OK, resp.Message)
			assert.Equal(t, messages.KeyVerificationSent, resp.Key)

			code := ta.lastCode(t)

			_, resp = ta.post(t, "register", `{"sender":"Bob","args":["`+code+`"]}`, "")
			assert.False(t, resp.OK)
			assert.Equal(t, messages.KeyCodeNotForPlayer, resp.Key)

			_, resp = ta.post(t, "register", `{"sender":"Alice","args":["`+code+`"]}`, "")
			require.True(t, resp.OK, resp.Message)
			assert.Equal(t, messages.KeyRegistrationSuccess, resp.Key)
			assert.Contains(t, ta.notifications.String(), "!role add "+testDiscordID+" verified Alice")

			_, resp = ta.post(t, "discord", `{"sender":"Carol","args":["`+testDiscordID+`"]}`, "")
			assert.False(t, resp.OK)
			assert.Equal(t, messages.KeyAlreadyRegistered, resp.Key)
		})
	}
}

func TestServeAuditCarriesClientIPAndSource(t *testing.T) {
	ta := newTestApp(t, storeYAML, "")

	_, resp := ta.post(t, "discord", `{"sender":"Alice","args":["`+testDiscordID+`"]}`, "")
	require.True(t, resp.OK)
	code := ta.lastCode(t)
	require.NoError(t, ta.Close())

	assert.Contains(t, ta.audit.String(), `"ip":"203.0.113.9"`)
	assert.Contains(t, ta.audit.String(), `"source":"http"`)
	assert.NotContains(t, ta.audit.String(), code)
}

func TestServeRejectsBadRequests(t *testing.T) {
	ta := newTestApp(t, storeYAML, "s3cret")

	status, _ := ta.post(t, "discord", `{"sender":"Alice","args":["`+testDiscordID+`"]}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ta.post(t, "discord", `not json`, "s3cret")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ta.post(t, "discord", `{"args":["x"]}`, "s3cret")
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp := ta.post(t, "discord", `{"console":true,"args":["`+testDiscordID+`"]}`, "s3cret")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, messages.KeyOnlyInGame, resp.Key)

	_, resp = ta.post(t, "teleport", `{"sender":"Alice"}`, "s3cret")
	assert.Equal(t, messages.KeyUnknownCommand, resp.Key)
}

func TestServeMetricsAndHealth(t *testing.T) {
	ta := newTestApp(t, storeYAML, "")
	_, _ = ta.post(t, "discord", `{"sender":"Alice","args":["not-an-id"]}`, "")

	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "golink_invalid_external_id_total 1")

	_, resp := ta.post(t, "discord", `{"sender":"Alice","args":["`+testDiscordID+`"]}`, "")
	require.True(t, resp.OK)

	rec = httptest.NewRecorder()
	ta.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 1, health["pending"])
	assert.EqualValues(t, 0, health["audit_dropped"])
}

func TestNewAppRequiresWebhook(t *testing.T) {
	fc, err := loadFileConfig("")
	require.NoError(t, err)

	_, err = newApp(appOptions{
		settings: settings{Store: storeYAML, StorePath: filepath.Join(t.TempDir(), "players.yml")},
		file:     fc,
	})
	assert.ErrorContains(t, err, "webhook-url")
}

func TestPrintNotifier(t *testing.T) {
	var buf bytes.Buffer
	err := printNotifier{out: &buf}.Send(context.Background(), goLink.Payload{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "notify {\"content\":\"hi\"}\n", buf.String())
}
