package goGuard

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full engine configuration. Build clones it; later changes
// to the caller's copy have no effect.
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	JWT      JWTConfig      `toml:"jwt"`
	Session  SessionConfig  `toml:"session"`
	Profile  ProfileConfig  `toml:"profile"`
	Guard    GuardConfig    `toml:"guard"`
	Password PasswordConfig `toml:"password"`
	Throttle ThrottleConfig `toml:"throttle"`
	Audit    AuditConfig    `toml:"audit"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

/*
====================================
PATHS CONFIG
====================================
*/

// PathsConfig names the redirect targets.
type PathsConfig struct {
	SignIn     string `toml:"sign_in"`
	Onboarding string `toml:"onboarding"`
	Home       string `toml:"home"`
	Dashboard  string `toml:"dashboard"`
}

// Paths converts the config section into the value [ResolveAccess] takes.
func (p PathsConfig) Paths() Paths {
	return Paths{
		SignIn:     p.SignIn,
		Onboarding: p.Onboarding,
		Home:       p.Home,
		Dashboard:  p.Dashboard,
	}
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls identity token issuance. Keys are never read from
// the config file; set them in code or name an environment variable with
// SecretEnv (HS256 only).
type JWTConfig struct {
	AccessTTL     time.Duration `toml:"access_ttl"`
	SigningMethod string        `toml:"signing_method"` // "ed25519" (default) or "hs256"
	Issuer        string        `toml:"issuer"`
	Audience      string        `toml:"audience"`
	Leeway        time.Duration `toml:"leeway"`
	SecretEnv     string        `toml:"secret_env"`
	PrivateKey    []byte        `toml:"-"`
	PublicKey     []byte        `toml:"-"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls Redis session storage and the identity event
// channel.
type SessionConfig struct {
	RedisPrefix       string        `toml:"redis_prefix"`
	EventChannel      string        `toml:"event_channel"`
	TTL               time.Duration `toml:"ttl"`
	SlidingExpiration bool          `toml:"sliding_expiration"`
	IdleTimeout       time.Duration `toml:"idle_timeout"` // sliding window; ignored unless SlidingExpiration
	// WatchInterval is how often mounted guards re-read their session to
	// notice silent expiry. Zero checks only at the session's ExpiresAt.
	WatchInterval time.Duration `toml:"watch_interval"`
}

// ProfileConfig controls the built-in Redis profile store.
type ProfileConfig struct {
	RedisPrefix string `toml:"redis_prefix"`
}

// GuardConfig controls mounted guards.
type GuardConfig struct {
	// FetchTimeout bounds one profile fetch. Zero leaves it to the store.
	FetchTimeout time.Duration `toml:"fetch_timeout"`
	// EventBuffer is the identity event queue depth per guard.
	EventBuffer int `toml:"event_buffer"`
}

// PasswordConfig holds argon2id parameters for Register/SignInWithPassword.
type PasswordConfig struct {
	Memory      uint32 `toml:"memory_kb"`
	Time        uint32 `toml:"time"`
	Parallelism uint8  `toml:"parallelism"`
	SaltLength  uint32 `toml:"salt_length"`
	KeyLength   uint32 `toml:"key_length"`
	// UpgradeOnLogin rehashes passwords stored with weaker parameters after
	// a successful password sign-in.
	UpgradeOnLogin bool `toml:"upgrade_on_login"`
}

// ThrottleConfig limits failed password sign-ins per email and,
// optionally, per client IP. Counters live under the profile prefix.
type ThrottleConfig struct {
	Enabled     bool          `toml:"enabled"`
	MaxAttempts int           `toml:"max_attempts"`
	Window      time.Duration `toml:"window"`
	ByIP        bool          `toml:"by_ip"`
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool `toml:"enabled"`
	BufferSize int  `toml:"buffer_size"`
	DropIfFull bool `toml:"drop_if_full"`
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `toml:"enabled"`
	EnableLatencyHistograms bool `toml:"enable_latency_histograms"`
}

// DefaultConfig returns the configuration used when no file is loaded.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			SignIn:     "/login",
			Onboarding: "/onboarding",
			Home:       "/",
			Dashboard:  "/dashboard",
		},
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "goguard",
		},
		Session: SessionConfig{
			RedisPrefix:       "gs",
			EventChannel:      "gs:events",
			TTL:               24 * time.Hour,
			SlidingExpiration: true,
			IdleTimeout:       2 * time.Hour,
			WatchInterval:     30 * time.Second,
		},
		Profile: ProfileConfig{
			RedisPrefix: "gp",
		},
		Guard: GuardConfig{
			EventBuffer: 8,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           1,
			Parallelism:    4,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Throttle: ThrottleConfig{
			Enabled:     true,
			MaxAttempts: 10,
			Window:      15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for values Build cannot work with.
func (c *Config) Validate() error {
	for name, p := range map[string]string{
		"SignIn":     c.Paths.SignIn,
		"Onboarding": c.Paths.Onboarding,
		"Home":       c.Paths.Home,
		"Dashboard":  c.Paths.Dashboard,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("Paths %s must be an absolute path", name)
		}
	}
	if c.Paths.Home == c.Paths.Dashboard {
		return errors.New("Paths Home and Dashboard must differ")
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	switch c.JWT.SigningMethod {
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix is required")
	}
	if c.Session.EventChannel == "" {
		return errors.New("Session EventChannel is required")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.SlidingExpiration && (c.Session.IdleTimeout <= 0 || c.Session.IdleTimeout > c.Session.TTL) {
		return errors.New("Session IdleTimeout must be in (0, TTL] when sliding expiration is enabled")
	}
	if c.Profile.RedisPrefix == "" {
		return errors.New("Profile RedisPrefix is required")
	}
	if c.Profile.RedisPrefix == c.Session.RedisPrefix {
		return errors.New("Profile and Session RedisPrefix must differ")
	}

	if c.Session.WatchInterval < 0 {
		return errors.New("Session WatchInterval must be >= 0")
	}
	if c.Guard.FetchTimeout < 0 {
		return errors.New("Guard FetchTimeout must be >= 0")
	}
	if c.Guard.EventBuffer <= 0 {
		return errors.New("Guard EventBuffer must be > 0")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("Throttle MaxAttempts must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

// LoadConfigTOML decodes the TOML file at path over [DefaultConfig],
// resolves JWT.SecretEnv, and validates the result.
func LoadConfigTOML(path string) (Config, error) {
	cfg := defaultConfig()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("decode %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if cfg.JWT.SecretEnv != "" {
		secret := os.Getenv(cfg.JWT.SecretEnv)
		if secret == "" {
			return Config{}, fmt.Errorf("JWT SecretEnv %s is empty", cfg.JWT.SecretEnv)
		}
		cfg.JWT.SigningMethod = "hs256"
		cfg.JWT.PrivateKey = []byte(secret)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
