package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	authcore "github.com/nightscribe/authcore"
	"github.com/nightscribe/authcore/rate"
)

type memProvider struct {
	accounts map[string]*authcore.Account
	byEmail  map[string]string
}

func newMemProvider() *memProvider {
	return &memProvider{
		accounts: make(map[string]*authcore.Account),
		byEmail:  make(map[string]string),
	}
}

func (p *memProvider) GetByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	id, ok := p.byEmail[email]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	return p.accounts[id], nil
}

func (p *memProvider) GetByID(ctx context.Context, id string) (*authcore.Account, error) {
	acct, ok := p.accounts[id]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	return acct, nil
}

func (p *memProvider) Create(ctx context.Context, input authcore.CreateAccountInput) (*authcore.Account, error) {
	if _, ok := p.byEmail[input.Email]; ok {
		return nil, authcore.ErrEmailTaken
	}
	acct := &authcore.Account{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Provider:     input.Provider,
		Status:       input.Status,
		CreatedAt:    time.Now(),
	}
	p.accounts[acct.ID] = acct
	p.byEmail[acct.Email] = acct.ID
	return acct, nil
}

func (p *memProvider) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	acct, ok := p.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	acct.PasswordHash = hash
	return nil
}

func (p *memProvider) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	acct, ok := p.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	acct.LastLoginAt = &at
	return nil
}

func (p *memProvider) UpdateStatus(ctx context.Context, id string, status authcore.AccountStatus) (*authcore.Account, error) {
	acct, ok := p.accounts[id]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	acct.Status = status
	return acct, nil
}

func newTestEngine(t *testing.T) *authcore.Engine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := authcore.Config{}
	cfg.Token.AccessTTL = "15m"
	cfg.Token.RefreshTTL = "7d"
	cfg.Token.SigningMethod = "hs256"
	cfg.Token.AccessSecret = []byte("middleware-test-access-secret-00")
	cfg.Token.RefreshSecret = []byte("middleware-test-refresh-secret-0")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountProvider(newMemProvider()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if ok {
			w.Header().Set("X-Account-ID", res.AccountID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAcceptsValidToken(t *testing.T) {
	engine := newTestEngine(t)

	reg, err := engine.Register(context.Background(), "guard@example.com", "guardpassword", "Guard")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	handler := Guard(engine)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Account-ID"); got != reg.Account.ID {
		t.Fatalf("account in context = %q, want %q", got, reg.Account.ID)
	}
}

func TestGuardRejectsBadTokens(t *testing.T) {
	engine := newTestEngine(t)

	reg, err := engine.Register(context.Background(), "guard@example.com", "guardpassword", "Guard")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	handler := Guard(engine)(okHandler())
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"refresh token", "Bearer " + reg.Tokens.RefreshToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	limiter, err := rate.New(rate.NewMemoryStore(), 2, time.Minute)
	if err != nil {
		t.Fatalf("rate.New: %v", err)
	}

	handler := RateLimit(limiter, nil)(okHandler())
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:4455"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:4455"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}

	// A different client IP keeps its own budget.
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.9:4455"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: status = %d", rec.Code)
	}
}

type brokenCounterStore struct{}

func (brokenCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errors.New("backend down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter, err := rate.New(brokenCounterStore{}, 1, time.Minute)
	if err != nil {
		t.Fatalf("rate.New: %v", err)
	}

	handler := RateLimit(limiter, nil)(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:4455"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when the counter store is down", rec.Code)
	}
}

func TestClientIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4455"
	if got := ClientIPKey(req); got != "203.0.113.7" {
		t.Errorf("ClientIPKey = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	if got := ClientIPKey(req); got != "198.51.100.9" {
		t.Errorf("ClientIPKey with X-Forwarded-For = %q", got)
	}
}

func TestRefreshCookieRoundtrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetRefreshCookie(rec, "signed-refresh-token", 7*24*time.Hour)

	res := rec.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != RefreshCookieName || c.Value != "signed-refresh-token" {
		t.Fatalf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie attributes: HttpOnly=%v Secure=%v SameSite=%v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if c.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("MaxAge = %d", c.MaxAge)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(c)
	token, ok := RefreshTokenFromRequest(req)
	if !ok || token != "signed-refresh-token" {
		t.Fatalf("RefreshTokenFromRequest = %q, %v", token, ok)
	}
}

func TestClearRefreshCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearRefreshCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookie not cleared: value=%q maxage=%d", cookies[0].Value, cookies[0].MaxAge)
	}
}

func TestRefreshTokenFromRequestMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if _, ok := RefreshTokenFromRequest(req); ok {
		t.Fatal("found a refresh token in a bare request")
	}
}
