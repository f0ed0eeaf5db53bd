package authcore

import (
	"context"
	"time"

	"github.com/nightscribe/authcore/session"
	"github.com/nightscribe/authcore/token"
)

// Logout revokes the session behind a refresh token. It is idempotent:
// unknown, expired, or already-revoked tokens are not errors, only store
// failures are.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	if _, err := e.codec.Verify(refreshToken, token.KindRefresh); err != nil {
		// Nothing a malformed token could name is revocable.
		return nil
	}

	now := e.now().UnixMilli()
	status, accountID, err := e.store.RevokeForRotation(ctx, session.HashToken(refreshToken), now)
	if err != nil {
		return e.storeErr(err)
	}

	if status == session.RotateRevoked {
		e.metrics.Inc(MetricLogout)
		e.metrics.Inc(MetricSessionRevoked)
		e.emitAudit(ctx, eventLogout, accountID, "", true, nil)
	}
	return nil
}

// LogoutAll revokes every live session of the account. It backs the
// explicit "sign out everywhere" action and runs inside password change and
// status-suspension flows.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}

	revoked, err := e.store.RevokeAllForAccount(ctx, accountID, e.now().UnixMilli())
	if err != nil {
		return 0, e.storeErr(err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emitAudit(ctx, eventLogoutAll, accountID, "", true, nil)
	e.log.Info().Int("revoked", revoked).Str("account_id", accountID).Msg("all sessions revoked")

	return revoked, nil
}

// ActiveSessions lists the account's live sessions, oldest first.
func (e *Engine) ActiveSessions(ctx context.Context, accountID string) ([]SessionInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	records, err := e.store.ListActive(ctx, accountID, e.now().UnixMilli())
	if err != nil {
		return nil, e.storeErr(err)
	}

	sessions := make([]SessionInfo, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, SessionInfo{
			ID:        rec.ID,
			CreatedAt: time.UnixMilli(rec.CreatedAt).UTC(),
			ExpiresAt: time.UnixMilli(rec.ExpiresAt).UTC(),
			UserAgent: rec.UserAgent,
			IPAddress: rec.IPAddress,
		})
	}
	return sessions, nil
}

// RevokeSession revokes one live session owned by the account. A session
// that does not exist, is not live, or belongs to someone else fails with
// [ErrSessionNotFound]; the caller cannot tell those cases apart, so the
// id's existence is never confirmed to a non-owner.
func (e *Engine) RevokeSession(ctx context.Context, accountID, sessionID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	ok, err := e.store.Revoke(ctx, accountID, sessionID, e.now().UnixMilli())
	if err != nil {
		return e.storeErr(err)
	}
	if !ok {
		return ErrSessionNotFound
	}

	e.metrics.Inc(MetricSessionRevoked)
	e.emitAudit(ctx, eventSessionRevoke, accountID, sessionID, true, nil)
	return nil
}
