package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed [Store]. Unlike [RedisStore] it has no
// native TTLs, so expired rows stay behind until [PGStore.DeleteExpired]
// sweeps them.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a [PGStore] on top of an existing pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate creates the refresh_tokens table and its indexes.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			token_hash BYTEA PRIMARY KEY,
			id         TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			revoked_at BIGINT NOT NULL DEFAULT 0,
			user_agent TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS refresh_tokens_account_idx
			ON refresh_tokens (account_id, created_at);
		CREATE INDEX IF NOT EXISTS refresh_tokens_expires_idx
			ON refresh_tokens (expires_at);
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PGStore) Save(ctx context.Context, rec *Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens
			(token_hash, id, account_id, created_at, expires_at, revoked_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.TokenHash[:], rec.ID, rec.AccountID,
		rec.CreatedAt, rec.ExpiresAt, rec.RevokedAt,
		rec.UserAgent, rec.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeForRotation runs the rotation CAS inside a transaction with a row
// lock, so concurrent refreshes of the same token serialize and exactly one
// sees the live record.
func (s *PGStore) RevokeForRotation(ctx context.Context, tokenHash [32]byte, now int64) (RotateStatus, string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return RotateNotFound, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	var (
		accountID string
		expiresAt int64
		revokedAt int64
	)
	err = tx.QueryRow(ctx, `
		SELECT account_id, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
		FOR UPDATE`,
		tokenHash[:],
	).Scan(&accountID, &expiresAt, &revokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RotateNotFound, "", nil
	}
	if err != nil {
		return RotateNotFound, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var status RotateStatus
	switch {
	case expiresAt <= now:
		if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash[:]); err != nil {
			return RotateNotFound, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		status = RotateExpired
	case revokedAt != 0:
		status = RotateReused
	default:
		if _, err := tx.Exec(ctx, `
			UPDATE refresh_tokens SET revoked_at = $2 WHERE token_hash = $1`,
			tokenHash[:], now,
		); err != nil {
			return RotateNotFound, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		status = RotateRevoked
	}

	if err := tx.Commit(ctx); err != nil {
		return RotateNotFound, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return status, accountID, nil
}

func (s *PGStore) Revoke(ctx context.Context, accountID, recordID string, now int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $3
		WHERE id = $1 AND account_id = $2 AND revoked_at = 0 AND expires_at > $4`,
		recordID, accountID, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) RevokeAllForAccount(ctx context.Context, accountID string, now int64) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE account_id = $1 AND revoked_at = 0 AND expires_at > $3`,
		accountID, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStore) ListActive(ctx context.Context, accountID string, now int64) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_hash, id, account_id, created_at, expires_at, revoked_at, user_agent, ip_address
		FROM refresh_tokens
		WHERE account_id = $1 AND revoked_at = 0 AND expires_at > $2
		ORDER BY created_at ASC`,
		accountID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		var (
			rec  Record
			hash []byte
		)
		if err := rows.Scan(
			&hash, &rec.ID, &rec.AccountID,
			&rec.CreatedAt, &rec.ExpiresAt, &rec.RevokedAt,
			&rec.UserAgent, &rec.IPAddress,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		copy(rec.TokenHash[:], hash)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return records, nil
}

// EvictOverCap deletes the oldest live rows beyond cap. Keeping the newest
// rows means the devices most recently signed in survive.
func (s *PGStore) EvictOverCap(ctx context.Context, accountID string, cap int, now int64) (int, error) {
	if cap <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE token_hash IN (
			SELECT token_hash FROM refresh_tokens
			WHERE account_id = $1 AND revoked_at = 0 AND expires_at > $2
			ORDER BY created_at DESC
			OFFSET $3
		)`,
		accountID, now, cap,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpired removes every row whose token has expired, revoked or not.
func (s *PGStore) DeleteExpired(ctx context.Context, now int64) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}
