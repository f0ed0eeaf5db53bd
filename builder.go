package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nightscribe/authcore/internal/audit"
	"github.com/nightscribe/authcore/password"
	"github.com/nightscribe/authcore/session"
	"github.com/nightscribe/authcore/token"
)

// Builder assembles an [Engine]. Configure it once, call Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessionStore session.Store
	accounts     AccountProvider
	auditSink    audit.Sink
	logger       *zerolog.Logger

	built bool
}

// New returns a builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Unset fields still receive
// defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the default session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore supplies a custom session store, for example
// [session.PGStore]. Takes precedence over WithRedis.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithAccountProvider supplies the account database adapter. Required.
func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

// WithAuditSink supplies the destination for audit events. Auditing also
// needs Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger supplies the structured logger. Build falls back to a no-op
// logger when none is given.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = &log
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, resolves TTLs, and assembles the
// engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("authcore: builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if b.accounts == nil {
		return nil, errors.New("authcore: account provider required")
	}

	store := b.sessionStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("authcore: session store or redis client required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	}

	log := zerolog.Nop()
	if b.logger != nil {
		log = *b.logger
	}
	log = log.With().Str("component", "authcore").Logger()

	accessTTL, ok := token.ParseTTL(cfg.Token.AccessTTL)
	if !ok {
		log.Warn().Str("ttl", cfg.Token.AccessTTL).Msg("unparseable access TTL, using fallback")
	}
	refreshTTL, ok := token.ParseTTL(cfg.Token.RefreshTTL)
	if !ok {
		log.Warn().Str("ttl", cfg.Token.RefreshTTL).Msg("unparseable refresh TTL, using fallback")
	}

	codec, err := token.NewCodec(token.Config{
		AccessTTL:         accessTTL,
		RefreshTTL:        refreshTTL,
		SigningMethod:     token.SigningMethod(cfg.Token.SigningMethod),
		AccessSecret:      cfg.Token.AccessSecret,
		RefreshSecret:     cfg.Token.RefreshSecret,
		AccessPrivateKey:  cfg.Token.AccessPrivateKey,
		AccessPublicKey:   cfg.Token.AccessPublicKey,
		RefreshPrivateKey: cfg.Token.RefreshPrivateKey,
		RefreshPublicKey:  cfg.Token.RefreshPublicKey,
		Issuer:            cfg.Token.Issuer,
		Leeway:            cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasherCfg := password.DefaultConfig()
	if cfg.Password.Memory > 0 {
		hasherCfg.Memory = cfg.Password.Memory
	}
	if cfg.Password.Time > 0 {
		hasherCfg.Time = cfg.Password.Time
	}
	if cfg.Password.Parallelism > 0 {
		hasherCfg.Parallelism = cfg.Password.Parallelism
	}
	hasher, err := password.NewHasher(hasherCfg)
	if err != nil {
		return nil, err
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine := &Engine{
		config:     cfg,
		codec:      codec,
		hasher:     hasher,
		store:      store,
		accounts:   b.accounts,
		metrics:    NewMetrics(cfg.Metrics),
		audit:      dispatcher,
		log:        log,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}

	b.built = true
	return engine, nil
}
