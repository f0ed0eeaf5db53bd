package authcore

import (
	"context"
	"errors"
	"fmt"
)

// Register creates an account with a local password and signs it straight
// in, returning the account and its first token pair.
func (e *Engine) Register(ctx context.Context, email, passwd, name string) (RegisterResult, error) {
	if err := e.ready(); err != nil {
		return RegisterResult{}, err
	}

	email = normalizeEmail(email)
	if email == "" {
		return RegisterResult{}, fmt.Errorf("%w: email required", ErrPasswordPolicy)
	}
	if len(passwd) < e.config.Password.MinLength {
		return RegisterResult{}, fmt.Errorf("%w: minimum length %d", ErrPasswordPolicy, e.config.Password.MinLength)
	}

	hash, err := e.hasher.Hash(passwd)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	account, err := e.accounts.Create(ctx, CreateAccountInput{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     ProviderLocal,
		Status:       StatusActive,
	})
	if errors.Is(err, ErrEmailTaken) {
		e.metrics.Inc(MetricRegisterDuplicate)
		e.emitAudit(ctx, eventRegister, "", "", false, ErrEmailTaken)
		return RegisterResult{}, ErrEmailTaken
	}
	if err != nil {
		return RegisterResult{}, e.storeErr(err)
	}

	tokens, rec, err := e.issueSession(ctx, account)
	if err != nil {
		return RegisterResult{}, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, eventRegister, account.ID, rec.ID, true, nil)
	e.log.Info().Str("account_id", account.ID).Msg("account registered")

	return RegisterResult{
		Account: account.Public(),
		Tokens:  tokens,
	}, nil
}
