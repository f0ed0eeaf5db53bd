package authcore

import (
	"errors"
	"time"
)

// Config carries everything Build needs. Zero values fall back to the
// defaults documented per field; secrets have no default and must be set.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig configures the token codec. TTLs use the compact duration
// grammar ("900s", "15m", "12h", "7d"); an unparseable refresh TTL falls
// back to 7 days with a warning at Build time.
type TokenConfig struct {
	AccessTTL  string // default "15m"
	RefreshTTL string // default "7d"

	// SigningMethod is "hs256" (default) or "ed25519".
	SigningMethod string

	// HS256 secrets, one per token kind. Independent secrets keep a leaked
	// refresh secret from forging access tokens and vice versa.
	AccessSecret  []byte
	RefreshSecret []byte

	// Ed25519 keys, raw seed or PEM, one pair per token kind.
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer string
	Leeway time.Duration
}

// SessionConfig configures the session store and its hygiene.
type SessionConfig struct {
	// RedisPrefix namespaces every session key ("ac" when empty).
	RedisPrefix string
	// MaxLivePerAccount caps live refresh records per account (default 10).
	// Logins beyond the cap evict the oldest live records.
	MaxLivePerAccount int
	// SweepSpec is the cron schedule for the expired-record sweeper
	// ("@hourly" when empty). Only meaningful for stores without native
	// TTLs.
	SweepSpec string
}

// PasswordConfig configures hashing cost and the password policy floor.
type PasswordConfig struct {
	// MinLength is the minimum accepted password length (default 8).
	MinLength int

	// Argon2id cost parameters. Zero values take the hasher defaults.
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking flows when the buffer is
	// full. Dropped counts are observable via Engine.AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     "15m",
			RefreshTTL:    "7d",
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:       "ac",
			MaxLivePerAccount: 10,
			SweepSpec:         "@hourly",
		},
		Password: PasswordConfig{
			MinLength: 8,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.Token.AccessTTL == "" {
		c.Token.AccessTTL = def.Token.AccessTTL
	}
	if c.Token.RefreshTTL == "" {
		c.Token.RefreshTTL = def.Token.RefreshTTL
	}
	if c.Token.SigningMethod == "" {
		c.Token.SigningMethod = def.Token.SigningMethod
	}
	if c.Token.Leeway == 0 {
		c.Token.Leeway = def.Token.Leeway
	}
	if c.Session.RedisPrefix == "" {
		c.Session.RedisPrefix = def.Session.RedisPrefix
	}
	if c.Session.MaxLivePerAccount == 0 {
		c.Session.MaxLivePerAccount = def.Session.MaxLivePerAccount
	}
	if c.Session.SweepSpec == "" {
		c.Session.SweepSpec = def.Session.SweepSpec
	}
	if c.Password.MinLength == 0 {
		c.Password.MinLength = def.Password.MinLength
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
}

func (c *Config) validate() error {
	switch c.Token.SigningMethod {
	case "hs256":
		if len(c.Token.AccessSecret) < 32 || len(c.Token.RefreshSecret) < 32 {
			return errors.New("authcore: hs256 requires 32-byte access and refresh secrets")
		}
	case "ed25519":
		if len(c.Token.AccessPrivateKey) == 0 || len(c.Token.RefreshPrivateKey) == 0 {
			return errors.New("authcore: ed25519 requires access and refresh private keys")
		}
	default:
		return errors.New("authcore: unknown signing method " + c.Token.SigningMethod)
	}
	if c.Session.MaxLivePerAccount < 0 {
		return errors.New("authcore: session cap must not be negative")
	}
	if c.Password.MinLength < 1 {
		return errors.New("authcore: password min length must be positive")
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneConfig(c Config) Config {
	c.Token.AccessSecret = cloneBytes(c.Token.AccessSecret)
	c.Token.RefreshSecret = cloneBytes(c.Token.RefreshSecret)
	c.Token.AccessPrivateKey = cloneBytes(c.Token.AccessPrivateKey)
	c.Token.AccessPublicKey = cloneBytes(c.Token.AccessPublicKey)
	c.Token.RefreshPrivateKey = cloneBytes(c.Token.RefreshPrivateKey)
	c.Token.RefreshPublicKey = cloneBytes(c.Token.RefreshPublicKey)
	return c
}
