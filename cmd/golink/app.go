package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/command"
	"github.com/MrEthical07/goLink/notify"
	"github.com/MrEthical07/goLink/stores/redisstore"
	"github.com/MrEthical07/goLink/stores/sqlitestore"
	"github.com/MrEthical07/goLink/stores/yamlstore"
)

// app owns the engine and every resource built for it.
type app struct {
	engine     *goLink.Engine
	dispatcher *command.Dispatcher
	logger     *slog.Logger
	closers    []func() error
}

type appOptions struct {
	settings settings
	file     fileConfig
	logger   *slog.Logger
	dryRun   bool
	// auditOut receives audit events as JSON lines. Nil means stderr.
	auditOut io.Writer
	// dryRunOut receives payloads when dryRun is set. Nil means stdout.
	dryRunOut io.Writer
}

func newApp(opts appOptions) (*app, error) {
	a := &app{logger: opts.logger}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}

	client, err := a.redisClient(opts)
	if err != nil {
		return nil, a.abort(err)
	}

	store, err := a.identityStore(opts.settings, client)
	if err != nil {
		return nil, a.abort(err)
	}

	notifier, err := a.notifier(opts)
	if err != nil {
		return nil, a.abort(err)
	}

	builder := goLink.New().
		WithConfig(opts.file.Engine).
		WithIdentityStore(store).
		WithNotifier(notifier).
		WithMessages(opts.file.Messages).
		WithLogger(a.logger)
	if client != nil {
		builder = builder.WithRedis(client)
	}
	if opts.file.Engine.Audit.Enabled {
		out := opts.auditOut
		if out == nil {
			out = os.Stderr
		}
		builder = builder.WithAuditSink(goLink.NewJSONWriterSink(out))
	}

	engine, err := builder.Build()
	if err != nil {
		return nil, a.abort(fmt.Errorf("build engine: %w", err))
	}
	a.engine = engine
	// Closed first: stops the sweeper and flushes audit before the notifier
	// and stores go away.
	a.closers = append(a.closers, func() error { engine.Close(); return nil })

	a.dispatcher = command.NewDispatcher(engine, opts.file.Messages, a.logger)

	report := engine.SecurityReport()
	a.logger.Info("link engine ready",
		"store", opts.settings.Store,
		"code_digits", report.CodeDigits,
		"code_ttl", report.CodeTTL,
		"sweeper", report.SweeperActive,
		"rate_limiting", report.RateLimitingActive,
		"require_delivery", report.RequireDelivery,
		"audit", report.AuditEnabled,
		"metrics", report.MetricsEnabled,
	)
	return a, nil
}

// redisClient connects to GOLINK_REDIS_ADDR, or starts an in-process
// miniredis when the memredis store or rate limiting needs one without it.
func (a *app) redisClient(opts appOptions) (redis.UniversalClient, error) {
	addr := opts.settings.RedisAddr
	needRedis := opts.settings.Store == storeRedis || opts.settings.Store == storeMemRedis || opts.file.Engine.RateLimit.Enabled
	if !needRedis {
		return nil, nil
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		a.closers = append(a.closers, func() error { mr.Close(); return nil })
		addr = mr.Addr()
		a.logger.Warn("using in-process miniredis; links are lost on exit", "addr", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *app) identityStore(s settings, client redis.UniversalClient) (goLink.IdentityStore, error) {
	switch s.Store {
	case storeYAML:
		return yamlstore.Open(s.StorePath)
	case storeSQLite:
		store, err := sqlitestore.Open(s.StorePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case storeRedis, storeMemRedis:
		return redisstore.New(client, s.RedisKey), nil
	default:
		return nil, fmt.Errorf("unknown store %q", s.Store)
	}
}

func (a *app) notifier(opts appOptions) (goLink.Notifier, error) {
	var next goLink.Notifier
	if opts.dryRun {
		out := opts.dryRunOut
		if out == nil {
			out = os.Stdout
		}
		next = printNotifier{out: out}
	} else {
		url := opts.settings.WebhookURL
		if url == "" {
			url = opts.file.WebhookURL
		}
		if url == "" {
			return nil, errors.New("webhook-url is not configured; set it in --config, GOLINK_WEBHOOK_URL, or use --dry-run")
		}
		webhook, err := notify.NewWebhook(url, notify.WithUserAgent("golink"))
		if err != nil {
			return nil, err
		}
		next = webhook
	}

	if !opts.file.AsyncNotify {
		return next, nil
	}
	async := notify.NewAsync(next, notify.AsyncConfig{
		BufferSize: opts.file.AsyncBuffer,
		Timeout:    opts.file.Engine.Notification.Timeout,
	}, a.logger)
	a.closers = append(a.closers, func() error { async.Close(); return nil })
	return async, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) abort(err error) error {
	if cerr := a.Close(); cerr != nil {
		a.logger.Warn("cleanup after startup failure", "error", cerr)
	}
	return err
}

// printNotifier writes payloads as JSON lines instead of posting them.
type printNotifier struct {
	out io.Writer
}

func (p printNotifier) Send(_ context.Context, payload goLink.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.out, "notify %s\n", data)
	return err
}
