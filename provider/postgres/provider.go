// Package postgres implements authcore.AccountProvider on top of a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	authcore "github.com/nightscribe/authcore"
)

const uniqueViolation = "23505"

// Provider is a Postgres-backed account store.
type Provider struct {
	pool *pgxpool.Pool
}

// New creates a provider on top of an existing pool.
func New(pool *pgxpool.Pool) *Provider {
	return &Provider{pool: pool}
}

// Migrate creates the accounts table.
func (p *Provider) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			provider      TEXT NOT NULL DEFAULT 'local',
			status        TEXT NOT NULL DEFAULT 'active',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_login_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres: migrate accounts: %w", err)
	}
	return nil
}

const accountColumns = `id, email, name, password_hash, provider, status, created_at, last_login_at`

func (p *Provider) GetByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

func (p *Provider) GetByID(ctx context.Context, id string) (*authcore.Account, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (p *Provider) Create(ctx context.Context, input authcore.CreateAccountInput) (*authcore.Account, error) {
	account := &authcore.Account{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Provider:     input.Provider,
		Status:       input.Status,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, provider, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID, account.Email, account.Name, account.PasswordHash,
		string(account.Provider), string(account.Status), account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, authcore.ErrEmailTaken
		}
		return nil, fmt.Errorf("postgres: create account: %w", err)
	}
	return account, nil
}

func (p *Provider) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("postgres: update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}

func (p *Provider) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("postgres: update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}

func (p *Provider) UpdateStatus(ctx context.Context, id string, status authcore.AccountStatus) (*authcore.Account, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE accounts SET status = $2 WHERE id = $1
		RETURNING `+accountColumns,
		id, string(status),
	)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*authcore.Account, error) {
	var (
		a           authcore.Account
		provider    string
		status      string
		lastLoginAt *time.Time
	)
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash,
		&provider, &status, &a.CreatedAt, &lastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authcore.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scan account: %w", err)
	}
	a.Provider = authcore.AuthProvider(provider)
	a.Status = authcore.AccountStatus(status)
	a.LastLoginAt = lastLoginAt
	return &a, nil
}
