package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testConfig() Config {
	cfg := Config{}
	cfg.Token.AccessTTL = "15m"
	cfg.Token.RefreshTTL = "7d"
	cfg.Token.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret-0123456789abcde")
	// Minimum argon2id cost keeps the suite fast.
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type fakeProvider struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string

	failAll bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (p *fakeProvider) GetByEmail(_ context.Context, email string) (*Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.failAll {
		return nil, ErrStoreUnavailable
	}
	id, ok := p.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *p.byID[id]
	return &out, nil
}

func (p *fakeProvider) GetByID(_ context.Context, id string) (*Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.failAll {
		return nil, ErrStoreUnavailable
	}
	account, ok := p.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *account
	return &out, nil
}

func (p *fakeProvider) Create(_ context.Context, input CreateAccountInput) (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return nil, ErrStoreUnavailable
	}
	if _, exists := p.byEmail[input.Email]; exists {
		return nil, ErrEmailTaken
	}
	account := &Account{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Provider:     input.Provider,
		Status:       input.Status,
		CreatedAt:    time.Now().UTC(),
	}
	p.byID[account.ID] = account
	p.byEmail[account.Email] = account.ID
	out := *account
	return &out, nil
}

func (p *fakeProvider) UpdatePasswordHash(_ context.Context, id, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.PasswordHash = hash
	return nil
}

func (p *fakeProvider) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.LastLoginAt = &at
	return nil
}

func (p *fakeProvider) UpdateStatus(_ context.Context, id string, status AccountStatus) (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	account.Status = status
	out := *account
	return &out, nil
}

// setStatus flips the status directly, simulating an out-of-band change
// that leaves existing sessions untouched.
func (p *fakeProvider) setStatus(t *testing.T, id string, status AccountStatus) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.byID[id]
	if !ok {
		t.Fatalf("no account %s", id)
	}
	account.Status = status
}

// setPasswordHash writes a raw hash, used to plant legacy bcrypt hashes.
func (p *fakeProvider) setPasswordHash(t *testing.T, id, hash string) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.byID[id]
	if !ok {
		t.Fatalf("no account %s", id)
	}
	account.PasswordHash = hash
}

func newTestEngine(t *testing.T) (*Engine, *fakeProvider, func()) {
	t.Helper()
	return newTestEngineWithConfig(t, testConfig())
}

func newTestEngineWithConfig(t *testing.T, cfg Config) (*Engine, *fakeProvider, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	provider := newFakeProvider()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(provider).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("engine build failed: %v", err)
	}

	return engine, provider, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func mustRegister(t *testing.T, engine *Engine, email, passwd string) RegisterResult {
	t.Helper()
	result, err := engine.Register(context.Background(), email, passwd, "Test User")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return result
}
