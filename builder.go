package goLink

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goLink/internal"
	internalflows "github.com/MrEthical07/goLink/internal/flows"
	"github.com/MrEthical07/goLink/internal/limiters"
	"github.com/MrEthical07/goLink/internal/stores"
	"github.com/MrEthical07/goLink/messages"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     IdentityStore
	notifier  Notifier
	messages  MessageProvider
	auditSink AuditSink
	logger    *slog.Logger

	now func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithIdentityStore sets the durable link mapping. Required.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the outbound delivery channel. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithMessages sets the template source. Defaults to messages.Default().
func (b *Builder) WithMessages(p MessageProvider) *Builder {
	b.messages = p
	return b
}

// WithRedis sets the client used by the rate limiter. Required when
// RateLimit.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the expiry sweeper when both
// Code.TTL and Code.SweepInterval are set. Call [Engine.Close] to stop it.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("identity store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if cfg.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("RateLimit requires redis client")
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		store:    b.store,
		notifier: b.notifier,
		messages: b.messages,
		pending:  stores.NewPendingTable(),
		logger:   b.logger,
		now:      b.now,
	}
	if engine.messages == nil {
		engine.messages = messages.Default()
	}
	if engine.logger == nil {
		engine.logger = slog.New(slog.DiscardHandler)
	}
	if engine.now == nil {
		engine.now = time.Now
	}

	digits := cfg.Code.Digits
	engine.generateCode = func() (string, error) {
		return internal.NewCode(digits)
	}
	engine.newRequestID = uuid.NewString

	if cfg.RateLimit.Enabled {
		engine.limiter = limiters.NewLinkLimiter(b.redis, limiters.LinkConfig{
			Prefix:              cfg.RateLimit.RedisPrefix,
			MaxInitiateAttempts: cfg.RateLimit.MaxInitiateAttempts,
			MaxConfirmAttempts:  cfg.RateLimit.MaxConfirmAttempts,
			Window:              cfg.RateLimit.Window,
		})
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, engine.logger)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = internalflows.Deps{Link: engine.linkFlowDeps()}

	if cfg.Code.TTL > 0 && cfg.Code.SweepInterval > 0 {
		engine.startSweeper(cfg.Code.SweepInterval)
	}

	b.built = true

	return engine, nil
}
