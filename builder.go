package goEMS

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goEMS/projects"
	"github.com/MrEthical07/goEMS/realtime"
	"github.com/MrEthical07/goEMS/session"
	"github.com/MrEthical07/goEMS/storage"
	"github.com/MrEthical07/goEMS/token"
)

// Builder assembles a [Client]. A Builder is single use.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	backend    storage.Backend
	logger     *slog.Logger
	auditSink  AuditSink
	dialer     realtime.Dialer
	httpClient *http.Client

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client for the durable mirror. The caller
// keeps ownership and must close it. Without it, Build dials
// Config.Storage.RedisAddr itself.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBackend supplies the durable mirror directly and takes precedence
// over every storage setting.
func (b *Builder) WithBackend(backend storage.Backend) *Builder {
	b.backend = backend
	return b
}

// WithLogger sets the structured logger shared by every component.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithDialer replaces the realtime transport, mainly for tests.
func (b *Builder) WithDialer(d realtime.Dialer) *Builder {
	b.dialer = d
	return b
}

// WithHTTPClient sets the HTTP client used for REST calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires every component and hydrates
// the session store. Hydration happens exactly once, here, so no setter on
// the returned Client can run before persisted state has been restored.
//
// Storage problems never fail Build: an unreachable or corrupt mirror
// yields a logged-out Client.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	inspector, err := token.NewInspector(token.Config{
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		VerifyKey:     []byte(cfg.Token.VerifyKey),
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink, logger.With("component", "audit")),
	}

	// -------- DURABLE MIRROR --------
	c.backend = b.backend
	if c.backend == nil {
		switch cfg.Storage.Backend {
		case StorageMemory:
			c.backend = storage.NewMemoryBackend()
		default:
			rdb := b.redis
			if rdb == nil {
				owned := redis.NewClient(&redis.Options{
					Addr:     cfg.Storage.RedisAddr,
					Password: cfg.Storage.RedisPassword,
					DB:       cfg.Storage.RedisDB,
				})
				c.ownedRedis = owned
				rdb = owned
			}
			rb := storage.NewRedisBackend(rdb, cfg.Storage.Prefix, cfg.Storage.Origin, cfg.Storage.TTL)
			if _, err := rb.Ping(ctx); err != nil {
				logger.Warn("durable storage unreachable, session will be memory-only until it recovers", "err", err)
			}
			c.backend = rb
		}
	}

	// -------- SESSION STORE --------
	c.store = session.NewStore(c.backend, session.Options{
		Logger:    logger,
		Observer:  clientObserver{c: c},
		OpTimeout: cfg.Storage.OpTimeout,
	})

	// -------- REST CLIENT --------
	hc := b.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.API.Timeout}
	}
	c.projects = projects.NewClient(projects.Config{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: hc,
		Tokens:     c.bearerToken,
		Inspector:  inspector,
	})

	// -------- REALTIME --------
	if cfg.Realtime.Enabled {
		c.socket = realtime.New(realtime.Config{
			URL:                  cfg.Realtime.URL,
			Transports:           cfg.Realtime.Transports,
			AutoConnect:          cfg.Realtime.AutoConnect,
			Reconnection:         cfg.Realtime.Reconnection,
			ReconnectionAttempts: cfg.Realtime.ReconnectionAttempts,
			ReconnectionDelay:    cfg.Realtime.ReconnectionDelay,
		}, b.dialer, realtime.Options{
			Logger:      logger,
			OnConnect:   func() { c.metricInc(MetricSocketConnect) },
			OnReconnect: func() { c.metricInc(MetricSocketReconnect) },
			OnGiveUp:    c.socketGaveUp,
		})
	}

	// -------- HYDRATE --------
	// A reset session must not keep the bearer it was issued with.
	state := c.store.Hydrate(ctx)
	switch {
	case c.hydrateFailed():
		c.setBearer(ctx, "")
	case state.LoggedIn():
		c.loadBearer(ctx)
	}
	c.gate(ctx, state.LoggedIn())

	b.built = true
	return c, nil
}
