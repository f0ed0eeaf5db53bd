package authcore

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of an account. Every
// authenticated operation gates on it.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusDeleted   AccountStatus = "deleted"
)

// AuthProvider identifies how an account authenticates. Provider-only
// accounts carry no password hash and cannot use password flows.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
	ProviderApple  AuthProvider = "apple"
)

// Account is the account record returned by [AccountProvider]. PasswordHash
// is empty for provider-only accounts and never leaves the engine.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Provider     AuthProvider
	Status       AccountStatus
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Public strips authentication material for results handed back to callers.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Provider:    a.Provider,
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// PublicAccount is the caller-visible projection of an [Account].
type PublicAccount struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name,omitempty"`
	Provider    AuthProvider  `json:"provider"`
	Status      AccountStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty"`
}

// CreateAccountInput is the input for [AccountProvider.Create]. Email
// arrives already lower-cased.
type CreateAccountInput struct {
	Email        string
	Name         string
	PasswordHash string
	Provider     AuthProvider
	Status       AccountStatus
}

// AccountProvider is the interface callers implement to connect the engine
// to their account database. Create must enforce email uniqueness and
// return [ErrEmailTaken] on collision; lookups return [ErrAccountNotFound]
// when nothing matches.
type AccountProvider interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, input CreateAccountInput) (*Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status AccountStatus) (*Account, error)
}

// TokenPair is the access/refresh pair returned by the credential flows.
// It is never persisted; only the refresh half has a server-side record.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is returned by [Engine.VerifyAccess]: the identity proven by
// an access token.
type AuthResult struct {
	AccountID string
	Email     string
}

// RegisterResult pairs the new account with its first token pair.
type RegisterResult struct {
	Account PublicAccount
	Tokens  TokenPair
}

// SessionInfo describes one live refresh session, as returned by
// [Engine.ActiveSessions].
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}
