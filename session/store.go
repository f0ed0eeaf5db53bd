package session

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every backend failure so callers can separate
// infrastructure trouble from authentication outcomes.
var ErrUnavailable = errors.New("session store unavailable")

// RotateStatus classifies the outcome of the rotation compare-and-swap.
type RotateStatus int

const (
	// RotateNotFound: no record exists for the presented token.
	RotateNotFound RotateStatus = iota
	// RotateExpired: the record existed but was past expiry; it has been
	// deleted.
	RotateExpired
	// RotateReused: the record was already revoked. The presented token was
	// rotated (or explicitly revoked) earlier; treating this as a security
	// event is the caller's job.
	RotateReused
	// RotateRevoked: the record was live and this call revoked it. Exactly
	// one of any number of concurrent calls for the same token observes this
	// status.
	RotateRevoked
)

// Store is the durable record of issued refresh tokens. All mutation of
// records goes through these operations; implementations must make
// RevokeForRotation atomic with respect to concurrent calls on the same
// token hash. Every now parameter is unix milliseconds, matching
// [Record] timestamps.
type Store interface {
	// Save persists a new record. Token hashes are unique; a record is never
	// overwritten.
	Save(ctx context.Context, rec *Record) error

	// RevokeForRotation performs the rotation CAS on the record identified
	// by tokenHash: a live record is marked revoked in place and
	// RotateRevoked is returned together with the owning account ID. The
	// revocation must be visible before the caller issues a replacement.
	RevokeForRotation(ctx context.Context, tokenHash [32]byte, now int64) (RotateStatus, string, error)

	// Revoke marks one specific live record revoked, checking that it
	// belongs to accountID. Returns false when no live record with that ID
	// is owned by the account; ownership failures are indistinguishable
	// from missing records.
	Revoke(ctx context.Context, accountID, recordID string, now int64) (bool, error)

	// RevokeAllForAccount marks every live record of the account revoked and
	// returns how many it touched.
	RevokeAllForAccount(ctx context.Context, accountID string, now int64) (int, error)

	// ListActive returns the account's live records, oldest first.
	ListActive(ctx context.Context, accountID string, now int64) ([]*Record, error)

	// EvictOverCap deletes the oldest live records beyond cap. Best-effort
	// resource hygiene, not a security boundary; a transiently exceeded cap
	// under concurrency is acceptable.
	EvictOverCap(ctx context.Context, accountID string, cap int, now int64) (int, error)

	// DeleteExpired removes records past expiry. Backends with native TTL
	// expiry may implement this as a no-op.
	DeleteExpired(ctx context.Context, now int64) (int, error)
}
