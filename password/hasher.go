package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 8

	algorithmID = "argon2id"
)

// Config holds argon2id cost parameters for newly produced hashes.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the parameters applied when the host does not
// override them.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces and verifies password hashes. Safe for concurrent use.
type Hasher struct {
	config Config
}

// NewHasher validates cfg against the minimum cost floors and returns a
// ready [Hasher].
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("password: memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return nil, errors.New("password: time cost must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password: parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password: salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password: key length must be >= 16")
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives an argon2id hash with a fresh random salt and returns it in
// PHC string format. Password bytes are used exactly as provided, without
// Unicode normalization.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) < minPassBytes {
		return "", fmt.Errorf("password: must be at least %d bytes", minPassBytes)
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the stored hash. Comparison goes
// through the hashing primitive itself (constant-time for argon2id, bcrypt's
// own comparison for legacy hashes), never through direct equality.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	if encoded == "" {
		return false, nil
	}

	if isBcrypt(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}

	params, salt, key, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		salt,
		params.time,
		params.memory,
		params.parallelism,
		uint32(len(key)),
	)
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// NeedsUpgrade reports whether a stored hash should be re-derived with the
// current parameters. Legacy bcrypt hashes always need an upgrade.
func (h *Hasher) NeedsUpgrade(encoded string) (bool, error) {
	if isBcrypt(encoded) {
		return true, nil
	}

	params, _, key, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	if h.config.Memory > params.memory || h.config.Time > params.time {
		return true, nil
	}
	if h.config.Parallelism > params.parallelism {
		return true, nil
	}
	if h.config.KeyLength != uint32(len(key)) {
		return true, nil
	}
	return false, nil
}

// Params exposes the active cost parameters for posture reporting.
func (h *Hasher) Params() Config {
	return h.config
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

type phcParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parsePHC(encoded string) (phcParams, []byte, []byte, error) {
	var params phcParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return params, nil, nil, errors.New("password: invalid PHC format")
	}
	if parts[1] != algorithmID {
		return params, nil, nil, errors.New("password: unsupported algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, errors.New("password: invalid argon2 version")
	}
	if version != argon2.Version {
		return params, nil, nil, errors.New("password: unsupported argon2 version")
	}

	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &parallelism); err != nil {
		return params, nil, nil, errors.New("password: invalid parameter block")
	}
	if params.memory < minMemoryKB || params.time < minTimeCost {
		return params, nil, nil, errors.New("password: parameters below cost floor")
	}
	if parallelism < uint32(minParallelism) || parallelism > 255 {
		return params, nil, nil, errors.New("password: invalid parallelism")
	}
	params.parallelism = uint8(parallelism)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return params, nil, nil, errors.New("password: invalid salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, errors.New("password: invalid hash")
	}

	return params, salt, key, nil
}
