package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid is returned by [Codec.Verify] for every verification failure:
// bad signature, expired token, malformed input, or kind mismatch. Invalid
// tokens are an expected, frequent input and are never treated as an
// infrastructure error.
var ErrInvalid = errors.New("invalid token")

// Kind distinguishes the two token classes the codec can produce.
type Kind string

const (
	// KindAccess marks short-lived request credentials.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived rotation credentials.
	KindRefresh Kind = "refresh"
)

// SigningMethod selects the signature algorithm for both token kinds.
type SigningMethod string

const (
	// MethodHS256 signs with per-kind HMAC secrets.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with per-kind Ed25519 key pairs.
	MethodEd25519 SigningMethod = "ed25519"
)

// Claims is the payload carried by every authcore token.
type Claims struct {
	Email     string `json:"email,omitempty"`
	TokenKind string `json:"tkn"`
	jwt.RegisteredClaims
}

// AccountID returns the token subject.
func (c *Claims) AccountID() string {
	return c.Subject
}

// Config holds the codec's key material and per-kind lifetimes.
// Instances are configured once and treated as immutable afterwards.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod SigningMethod

	// HS256 key material, one independent secret per kind.
	AccessSecret  []byte
	RefreshSecret []byte

	// Ed25519 key material, raw keys or PEM, one pair per kind.
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer string
	Leeway time.Duration
}

// Codec creates and validates signed tokens. Safe for concurrent use.
type Codec struct {
	config Config
	clock  func() time.Time
}

// NewCodec validates cfg and returns a ready [Codec].
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
			return nil, errors.New("token: hs256 requires a secret per token kind")
		}
	case MethodEd25519:
		for kind, key := range map[string][]byte{
			"access private":  cfg.AccessPrivateKey,
			"refresh private": cfg.RefreshPrivateKey,
		} {
			if _, err := parseEdPrivateKey(key); err != nil {
				return nil, fmt.Errorf("token: invalid ed25519 %s key: %w", kind, err)
			}
		}
		for kind, key := range map[string][]byte{
			"access public":  cfg.AccessPublicKey,
			"refresh public": cfg.RefreshPublicKey,
		} {
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("token: invalid ed25519 %s key: %w", kind, err)
			}
		}
	default:
		return nil, errors.New("token: unsupported signing method")
	}

	return &Codec{config: cfg, clock: time.Now}, nil
}

// WithClock replaces the codec's time source. Tests use it to drive issuance
// and expiry without sleeping.
func (c *Codec) WithClock(clock func() time.Time) *Codec {
	if clock != nil {
		c.clock = clock
	}
	return c
}

// Issue produces a signed token of the given kind for the subject. The TTL is
// the one configured for that kind; the embedded kind claim binds the token
// to it permanently.
func (c *Codec) Issue(kind Kind, accountID, email string) (string, error) {
	if kind != KindAccess && kind != KindRefresh {
		return "", errors.New("token: unknown kind")
	}

	ttl := c.config.AccessTTL
	if kind == KindRefresh {
		ttl = c.config.RefreshTTL
	}

	now := c.clock()
	claims := Claims{
		Email:     email,
		TokenKind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.config.Issuer,
		},
	}

	tok := jwt.NewWithClaims(c.method(), claims)
	key, err := c.signKey(kind)
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

// Verify checks signature, expiry, and issuer, then rejects the token when
// its embedded kind does not match expected. A refresh token can therefore
// never pass where an access token is required, and vice versa.
func (c *Codec) Verify(tokenStr string, expected Kind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.verifyKey(expected)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenKind != string(expected) {
		return nil, fmt.Errorf("%w: kind mismatch", ErrInvalid)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}

	return claims, nil
}

// TTLs returns the configured access and refresh lifetimes.
func (c *Codec) TTLs() (access, refresh time.Duration) {
	return c.config.AccessTTL, c.config.RefreshTTL
}

func (c *Codec) method() jwt.SigningMethod {
	if c.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (c *Codec) signKey(kind Kind) (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodEd25519:
		if kind == KindRefresh {
			return parseEdPrivateKey(c.config.RefreshPrivateKey)
		}
		return parseEdPrivateKey(c.config.AccessPrivateKey)
	default:
		if kind == KindRefresh {
			return c.config.RefreshSecret, nil
		}
		return c.config.AccessSecret, nil
	}
}

func (c *Codec) verifyKey(kind Kind) (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodEd25519:
		if kind == KindRefresh {
			return parseEdPublicKey(c.config.RefreshPublicKey)
		}
		return parseEdPublicKey(c.config.AccessPublicKey)
	default:
		if kind == KindRefresh {
			return c.config.RefreshSecret, nil
		}
		return c.config.AccessSecret, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("not a raw or PEM ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("unexpected private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("not a raw or PEM ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("unexpected public key type")
	}
	return edKey, nil
}
