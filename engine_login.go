package authcore

import (
	"context"
	"errors"
)

// Login authenticates an email/password pair and opens a new session.
//
// Unknown email and wrong password both come back as
// [ErrInvalidCredentials]; the caller learns nothing about which half was
// wrong. Provider-only accounts get the distinct [ErrPasswordNotSet].
func (e *Engine) Login(ctx context.Context, email, passwd string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}

	email = normalizeEmail(email)

	account, err := e.accounts.GetByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		e.loginFailed(ctx, "", ErrInvalidCredentials)
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, e.storeErr(err)
	}

	if account.PasswordHash == "" {
		e.loginFailed(ctx, account.ID, ErrPasswordNotSet)
		return TokenPair{}, ErrPasswordNotSet
	}

	match, err := e.hasher.Verify(passwd, account.PasswordHash)
	if err != nil {
		return TokenPair{}, e.storeErr(err)
	}
	if !match {
		e.loginFailed(ctx, account.ID, ErrInvalidCredentials)
		return TokenPair{}, ErrInvalidCredentials
	}

	if err := requireActive(account); err != nil {
		e.loginFailed(ctx, account.ID, err)
		return TokenPair{}, err
	}

	// Legacy bcrypt hashes are transparently upgraded now that the
	// plaintext is in hand.
	if upgrade, _ := e.hasher.NeedsUpgrade(account.PasswordHash); upgrade {
		if newHash, hashErr := e.hasher.Hash(passwd); hashErr == nil {
			if upErr := e.accounts.UpdatePasswordHash(ctx, account.ID, newHash); upErr != nil {
				e.log.Warn().Err(upErr).Str("account_id", account.ID).Msg("password hash upgrade failed")
			}
		}
	}

	now := e.now()
	if err := e.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		e.log.Warn().Err(err).Str("account_id", account.ID).Msg("last login update failed")
	}

	tokens, rec, err := e.issueSession(ctx, account)
	if err != nil {
		return TokenPair{}, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, eventLogin, account.ID, rec.ID, true, nil)
	e.log.Info().Str("account_id", account.ID).Msg("login succeeded")

	return tokens, nil
}

func (e *Engine) loginFailed(ctx context.Context, accountID string, cause error) {
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, eventLogin, accountID, "", false, cause)
}
