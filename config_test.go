package goGuard

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Parallelism = 1
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "baseline", mutate: func(*Config) {}, wantValid: true},
		{
			name:      "relative sign-in path",
			mutate:    func(c *Config) { c.Paths.SignIn = "login" },
			wantValid: false,
		},
		{
			name:      "home equals dashboard",
			mutate:    func(c *Config) { c.Paths.Dashboard = c.Paths.Home },
			wantValid: false,
		},
		{
			name:      "jwt leeway too large",
			mutate:    func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
			wantValid: false,
		},
		{
			name:      "unsupported signing method",
			mutate:    func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantValid: false,
		},
		{
			name: "ed25519 without keys",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
			},
			wantValid: false,
		},
		{
			name:      "idle timeout beyond ttl",
			mutate:    func(c *Config) { c.Session.IdleTimeout = 48 * time.Hour },
			wantValid: false,
		},
		{
			name:      "negative watch interval",
			mutate:    func(c *Config) { c.Session.WatchInterval = -time.Second },
			wantValid: false,
		},
		{
			name:      "watch interval disabled",
			mutate:    func(c *Config) { c.Session.WatchInterval = 0 },
			wantValid: true,
		},
		{
			name: "idle timeout ignored without sliding",
			mutate: func(c *Config) {
				c.Session.SlidingExpiration = false
				c.Session.IdleTimeout = 0
			},
			wantValid: true,
		},
		{
			name:      "shared redis prefix",
			mutate:    func(c *Config) { c.Profile.RedisPrefix = c.Session.RedisPrefix },
			wantValid: false,
		},
		{
			name:      "zero event buffer",
			mutate:    func(c *Config) { c.Guard.EventBuffer = 0 },
			wantValid: false,
		},
		{
			name:      "negative fetch timeout",
			mutate:    func(c *Config) { c.Guard.FetchTimeout = -time.Second },
			wantValid: false,
		},
		{
			name:      "weak argon2 memory",
			mutate:    func(c *Config) { c.Password.Memory = 1024 },
			wantValid: false,
		},
		{
			name:      "throttle without window",
			mutate:    func(c *Config) { c.Throttle.Window = 0 },
			wantValid: false,
		},
		{
			name: "throttle disabled ignores limits",
			mutate: func(c *Config) {
				c.Throttle.Enabled = false
				c.Throttle.MaxAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)
	clone.JWT.PrivateKey[0] = 'X'
	if cfg.JWT.PrivateKey[0] == 'X' {
		t.Fatal("cloneConfig shared the key slice")
	}
}

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goguard.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigTOML(t *testing.T) {
	t.Setenv("GOGUARD_TEST_SECRET", "a-long-enough-hs256-secret-value!")

	path := writeTOML(t, `
[paths]
sign_in = "/signin"
dashboard = "/owner"

[jwt]
secret_env = "GOGUARD_TEST_SECRET"
issuer = "travel"
access_ttl = "30m"

[session]
ttl = "12h"
idle_timeout = "1h"

[guard]
fetch_timeout = "2s"
event_buffer = 4

[password]
memory_kb = 8192
parallelism = 1
`)

	cfg, err := LoadConfigTOML(path)
	if err != nil {
		t.Fatalf("LoadConfigTOML: %v", err)
	}
	if cfg.Paths.SignIn != "/signin" || cfg.Paths.Dashboard != "/owner" {
		t.Fatalf("paths not decoded: %+v", cfg.Paths)
	}
	if cfg.Paths.Onboarding != "/onboarding" {
		t.Fatalf("default onboarding path lost: %q", cfg.Paths.Onboarding)
	}
	if cfg.JWT.SigningMethod != "hs256" || string(cfg.JWT.PrivateKey) != "a-long-enough-hs256-secret-value!" {
		t.Fatal("secret_env did not switch to hs256")
	}
	if cfg.JWT.AccessTTL != 30*time.Minute || cfg.Session.TTL != 12*time.Hour || cfg.Session.IdleTimeout != time.Hour {
		t.Fatalf("durations not decoded: %v %v %v", cfg.JWT.AccessTTL, cfg.Session.TTL, cfg.Session.IdleTimeout)
	}
	if cfg.Guard.FetchTimeout != 2*time.Second || cfg.Guard.EventBuffer != 4 {
		t.Fatalf("guard section not decoded: %+v", cfg.Guard)
	}
}

func TestLoadConfigTOMLRejectsUnknownKeys(t *testing.T) {
	path := writeTOML(t, `
[guard]
fetch_timeout = "1s"
retries = 3
`)
	if _, err := LoadConfigTOML(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestLoadConfigTOMLEmptySecretEnv(t *testing.T) {
	t.Setenv("GOGUARD_EMPTY_SECRET", "")
	path := writeTOML(t, `
[jwt]
secret_env = "GOGUARD_EMPTY_SECRET"
`)
	if _, err := LoadConfigTOML(path); err == nil {
		t.Fatal("expected error for empty secret env")
	}
}
