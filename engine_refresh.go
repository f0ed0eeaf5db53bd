package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nightscribe/authcore/session"
	"github.com/nightscribe/authcore/token"
)

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued for the same account, atomically enough that two
// concurrent calls with the same token produce exactly one winner.
//
// Presenting an already-rotated token is treated as theft. A legitimate
// client always holds the latest token, so a replayed one means leakage or
// a client bug; either way every live session of the account is revoked
// before the call fails.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}

	claims, err := e.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		e.refreshFailed(ctx, "", ErrRefreshInvalid)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}

	now := e.now().UnixMilli()
	hash := session.HashToken(refreshToken)

	// Revoke-then-issue: the CAS below is what closes the double-spend
	// window under concurrent refreshes.
	status, accountID, err := e.store.RevokeForRotation(ctx, hash, now)
	if err != nil {
		return TokenPair{}, e.storeErr(err)
	}

	switch status {
	case session.RotateNotFound:
		// Signature checked out but the store has no record: a token from
		// before a secret rotation, or a forged one.
		e.refreshFailed(ctx, claims.AccountID(), ErrRefreshInvalid)
		return TokenPair{}, fmt.Errorf("%w: refresh token not found", ErrRefreshInvalid)

	case session.RotateExpired:
		e.refreshFailed(ctx, accountID, ErrRefreshExpired)
		return TokenPair{}, ErrRefreshExpired

	case session.RotateReused:
		e.metrics.Inc(MetricRefreshReuseDetected)
		revoked, revokeErr := e.store.RevokeAllForAccount(ctx, accountID, now)
		if revokeErr != nil {
			e.log.Error().Err(revokeErr).Str("account_id", accountID).
				Msg("mass revocation after refresh reuse failed")
		} else {
			e.log.Warn().Int("revoked", revoked).Str("account_id", accountID).
				Msg("refresh token reuse detected, all sessions revoked")
		}
		e.emitAudit(ctx, eventRefreshReuse, accountID, "", false, ErrRefreshReuse)
		e.metrics.Inc(MetricRefreshFailure)
		return TokenPair{}, ErrRefreshReuse

	case session.RotateRevoked:
		// The CAS winner; proceed below.

	default:
		return TokenPair{}, e.storeErr(errors.New("unknown rotation status"))
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		e.refreshFailed(ctx, accountID, ErrRefreshInvalid)
		return TokenPair{}, fmt.Errorf("%w: account gone", ErrRefreshInvalid)
	}
	if err != nil {
		return TokenPair{}, e.storeErr(err)
	}
	if err := requireActive(account); err != nil {
		e.refreshFailed(ctx, accountID, err)
		return TokenPair{}, err
	}

	tokens, rec, err := e.issueSession(ctx, account)
	if err != nil {
		return TokenPair{}, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, eventRefresh, account.ID, rec.ID, true, nil)

	return tokens, nil
}

func (e *Engine) refreshFailed(ctx context.Context, accountID string, cause error) {
	e.metrics.Inc(MetricRefreshFailure)
	e.emitAudit(ctx, eventRefresh, accountID, "", false, cause)
}
