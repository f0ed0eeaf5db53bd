package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestChangePassword(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()

	result := mustRegister(t, engine, "alice@example.com", "Abcd1234!")

	err := engine.ChangePassword(context.Background(), result.Account.ID, "Abcd1234!", "NewPass5678!")
	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	// Every session died, the caller's included.
	if _, err := engine.Refresh(context.Background(), result.Tokens.RefreshToken); err == nil {
		t.Fatal("old refresh token should be revoked after password change")
	}

	// Old password out, new password in.
	if _, err := engine.Login(context.Background(), "alice@example.com", "Abcd1234!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "NewPass5678!"); err != nil {
		t.Fatalf("new password should login: %v", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()

	result := mustRegister(t, engine, "alice@example.com", "Abcd1234!")

	err := engine.ChangePassword(context.Background(), result.Account.ID, "wrong-current", "NewPass5678!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Sessions are untouched on a failed attempt.
	if _, err := engine.Refresh(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Fatalf("session should survive a failed change: %v", err)
	}
}

func TestChangePasswordProviderOnlyAccount(t *testing.T) {
	engine, provider, done := newTestEngine(t)
	defer done()

	account, err := provider.Create(context.Background(), CreateAccountInput{
		Email:    "oauth@example.com",
		Provider: ProviderApple,
		Status:   StatusActive,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = engine.ChangePassword(context.Background(), account.ID, "anything123", "NewPass5678!")
	if !errors.Is(err, ErrNoPasswordSet) {
		t.Fatalf("expected ErrNoPasswordSet, got %v", err)
	}
	if Kind(err) != KindBadRequest {
		t.Fatalf("expected BadRequest kind, got %v", Kind(err))
	}
}

func TestChangePasswordReuseRejected(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()

	result := mustRegister(t, engine, "alice@example.com", "Abcd1234!")

	err := engine.ChangePassword(context.Background(), result.Account.ID, "Abcd1234!", "Abcd1234!")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
}

func TestChangePasswordPolicy(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()

	result := mustRegister(t, engine, "alice@example.com", "Abcd1234!")

	err := engine.ChangePassword(context.Background(), result.Account.ID, "Abcd1234!", "tiny")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestChangePasswordUnknownAccount(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()

	err := engine.ChangePassword(context.Background(), "no-such-id", "a", "b")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
