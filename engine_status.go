package authcore

import (
	"context"
	"errors"
)

// SetAccountStatus transitions an account's lifecycle state. Moving away
// from active revokes every live session, so a suspended or deleted account
// cannot keep refreshing; already-issued access tokens ride out their short
// TTL.
func (e *Engine) SetAccountStatus(ctx context.Context, accountID string, status AccountStatus) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	switch status {
	case StatusActive, StatusSuspended, StatusDeleted:
	default:
		return nil, errors.New("authcore: unknown account status " + string(status))
	}

	account, err := e.accounts.UpdateStatus(ctx, accountID, status)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, e.storeErr(err)
	}

	if status != StatusActive {
		if _, err := e.store.RevokeAllForAccount(ctx, accountID, e.now().UnixMilli()); err != nil {
			e.log.Error().Err(err).Str("account_id", accountID).
				Msg("session revocation after status change failed")
		}
	}

	e.metrics.Inc(MetricAccountStatusChanged)
	e.emitAudit(ctx, eventStatusChange, accountID, "", true, nil)
	e.log.Info().Str("account_id", accountID).Str("status", string(status)).Msg("account status changed")

	return account, nil
}
