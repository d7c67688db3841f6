package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	goLink "github.com/MrEthical07/goLink"
)

var (
	// ErrInvalidWebhookURL is returned by NewWebhook for an empty or non-http(s) URL.
	ErrInvalidWebhookURL = errors.New("invalid webhook url")
	// ErrUnexpectedStatus wraps every non-success HTTP status.
	ErrUnexpectedStatus = errors.New("webhook returned unexpected status")
)

const maxDrainBytes = 64 << 10

// Webhook delivers payloads with one JSON POST each. Only HTTP 200 counts as
// delivered unless WithAcceptNoContent is set.
type Webhook struct {
	url             string
	client          *http.Client
	userAgent       string
	acceptNoContent bool
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(w *Webhook) {
		if client != nil {
			w.client = client
		}
	}
}

// WithAcceptNoContent also treats 204 as delivered. Discord answers 204 when
// the URL has no ?wait=true.
func WithAcceptNoContent() Option {
	return func(w *Webhook) {
		w.acceptNoContent = true
	}
}

func WithUserAgent(userAgent string) Option {
	return func(w *Webhook) {
		w.userAgent = userAgent
	}
}

func NewWebhook(rawURL string, opts ...Option) (*Webhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return nil, ErrInvalidWebhookURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidWebhookURL
	}

	w := &Webhook{
		url:       rawURL,
		client:    http.DefaultClient,
		userAgent: "goLink (webhook)",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Send posts payload and reports whether the webhook acknowledged it.
func (w *Webhook) Send(ctx context.Context, payload goLink.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNoContent && w.acceptNoContent:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
}
