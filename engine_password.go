package authcore

import (
	"context"
	"errors"
	"fmt"
)

// ChangePassword verifies the current password, stores the new hash, and
// revokes every session of the account, the caller's included. Every device
// has to re-authenticate with the new password.
func (e *Engine) ChangePassword(ctx context.Context, accountID, currentPasswd, newPasswd string) error {
	if err := e.ready(); err != nil {
		return err
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return e.storeErr(err)
	}

	if account.PasswordHash == "" {
		e.passwordChangeFailed(ctx, accountID, ErrNoPasswordSet)
		return ErrNoPasswordSet
	}

	match, err := e.hasher.Verify(currentPasswd, account.PasswordHash)
	if err != nil {
		return e.storeErr(err)
	}
	if !match {
		e.passwordChangeFailed(ctx, accountID, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	if len(newPasswd) < e.config.Password.MinLength {
		e.passwordChangeFailed(ctx, accountID, ErrPasswordPolicy)
		return fmt.Errorf("%w: minimum length %d", ErrPasswordPolicy, e.config.Password.MinLength)
	}
	if newPasswd == currentPasswd {
		e.passwordChangeFailed(ctx, accountID, ErrPasswordReuse)
		return ErrPasswordReuse
	}

	newHash, err := e.hasher.Hash(newPasswd)
	if err != nil {
		return e.storeErr(err)
	}
	if err := e.accounts.UpdatePasswordHash(ctx, accountID, newHash); err != nil {
		return e.storeErr(err)
	}

	if _, err := e.LogoutAll(ctx, accountID); err != nil {
		// The hash already changed; old sessions still die at refresh TTL.
		e.log.Error().Err(err).Str("account_id", accountID).
			Msg("session revocation after password change failed")
	}

	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, eventPasswordChange, accountID, "", true, nil)
	e.log.Info().Str("account_id", accountID).Msg("password changed")

	return nil
}

func (e *Engine) passwordChangeFailed(ctx context.Context, accountID string, cause error) {
	e.metrics.Inc(MetricPasswordChangeFailure)
	e.emitAudit(ctx, eventPasswordChange, accountID, "", false, cause)
}
