package goGuard

import (
	"errors"

	"github.com/MrEthical07/goGuard/account"
	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/rate"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/profile"
	"github.com/MrEthical07/goGuard/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config  Config
	redis   *redis.Client
	records RecordStore

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used for sessions, identity events, accounts
// and, unless WithProfileStore is used, profiles.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithProfileStore replaces the Redis profile backend, for example with
// gormstore.Store.
func (b *Builder) WithProfileStore(records RecordStore) *Builder {
	b.records = records
	return b
}

// WithAuditSink sets the audit destination. It only takes effect when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the resolve latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every store.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- SESSIONS --------
	idle := cfg.Session.IdleTimeout
	if !cfg.Session.SlidingExpiration {
		idle = 0
	}
	sessions := session.NewStore(b.redis, cfg.Session.RedisPrefix, idle)

	// -------- PROFILES --------
	records := b.records
	if records == nil {
		records = profile.NewRedisStore(b.redis, cfg.Profile.RedisPrefix)
	}

	engine := &Engine{
		config:   cfg,
		sessions: sessions,
		bus:      session.NewBus(b.redis, cfg.Session.EventChannel, sessions).WithRecheck(cfg.Session.WatchInterval),
		records:  records,
		profiles: ProfilesFromRecords(records),
		accounts: account.NewStore(b.redis, cfg.Profile.RedisPrefix),
		metrics:  NewMetrics(cfg.Metrics),
	}

	if cfg.Throttle.Enabled {
		engine.throttle = rate.New(b.redis, rate.Config{
			Prefix:      cfg.Profile.RedisPrefix,
			MaxAttempts: cfg.Throttle.MaxAttempts,
			Window:      cfg.Throttle.Window,
			ByIP:        cfg.Throttle.ByIP,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
