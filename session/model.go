package session

import "crypto/sha256"

// Record is one issued refresh token. The raw token string is never stored;
// TokenHash is the sha256 of the signed token and doubles as the store key.
//
// Timestamps are unix milliseconds. Sub-second resolution matters: a burst
// of logins lands several records in the same second, and eviction must
// still order them oldest first.
type Record struct {
	ID        string
	AccountID string
	TokenHash [32]byte

	CreatedAt int64
	ExpiresAt int64
	RevokedAt int64 // 0 while the record is usable

	UserAgent string
	IPAddress string
}

// Live reports whether the record is still usable: not revoked and not past
// its expiry.
func (r *Record) Live(now int64) bool {
	return r.RevokedAt == 0 && r.ExpiresAt > now
}

// HashToken derives the storage key for a signed refresh token.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
