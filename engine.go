package authcore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nightscribe/authcore/internal/audit"
	"github.com/nightscribe/authcore/password"
	"github.com/nightscribe/authcore/session"
	"github.com/nightscribe/authcore/token"
)

// Engine is the credential and session lifecycle manager. It holds no
// mutable state of its own; everything lives in the account provider and
// the session store, so a single Engine serves concurrent requests freely.
//
// Construct with [New] and [Builder.Build].
type Engine struct {
	config   Config
	codec    *token.Codec
	hasher   *password.Hasher
	store    session.Store
	accounts AccountProvider
	metrics  *Metrics
	audit    *audit.Dispatcher
	log      zerolog.Logger

	refreshTTL time.Duration

	// now is swapped in tests to drive expiry deterministically.
	now func() time.Time
}

// Close flushes the audit dispatcher. The engine must not be used after.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// VerifyAccess validates an access token and returns the identity it
// proves. Access tokens are not individually revocable; a revoked session
// stays apparently valid here until its access token expires.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (AuthResult, error) {
	if e == nil || e.codec == nil {
		return AuthResult{}, ErrEngineNotReady
	}

	claims, err := e.codec.Verify(accessToken, token.KindAccess)
	if err != nil {
		e.metrics.Inc(MetricTokenVerifyFailure)
		return AuthResult{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return AuthResult{
		AccountID: claims.AccountID(),
		Email:     claims.Email,
	}, nil
}

func (e *Engine) ready() error {
	if e == nil || e.codec == nil || e.store == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issueSession mints a token pair, persists the refresh half, and applies
// the per-account cap. Eviction is best-effort; a failure there never sinks
// an otherwise successful flow.
func (e *Engine) issueSession(ctx context.Context, account *Account) (TokenPair, *session.Record, error) {
	access, err := e.codec.Issue(token.KindAccess, account.ID, account.Email)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	refresh, err := e.codec.Issue(token.KindRefresh, account.ID, account.Email)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Millisecond timestamps keep eviction ordering intact when several
	// logins land in the same second.
	now := e.now()
	rec := &session.Record{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		TokenHash: session.HashToken(refresh),
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(e.refreshTTL).UnixMilli(),
		UserAgent: userAgentFromContext(ctx),
		IPAddress: clientIPFromContext(ctx),
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return TokenPair{}, nil, e.storeErr(err)
	}
	e.metrics.Inc(MetricSessionCreated)

	evicted, err := e.store.EvictOverCap(ctx, account.ID, e.config.Session.MaxLivePerAccount, now.UnixMilli())
	if err != nil {
		e.log.Warn().Err(err).Str("account_id", account.ID).Msg("session eviction failed")
	} else if evicted > 0 {
		e.metrics.Inc(MetricSessionEvicted)
		e.log.Debug().Int("evicted", evicted).Str("account_id", account.ID).Msg("evicted sessions over cap")
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, rec, nil
}

// requireActive maps a non-active status to its Forbidden error.
func requireActive(account *Account) error {
	switch account.Status {
	case StatusActive:
		return nil
	case StatusSuspended:
		return fmt.Errorf("%w: account status is %s", ErrAccountSuspended, account.Status)
	case StatusDeleted:
		return fmt.Errorf("%w: account status is %s", ErrAccountDeleted, account.Status)
	default:
		return fmt.Errorf("%w: account status is %s", ErrAccountSuspended, account.Status)
	}
}

// storeErr folds session store failures into the engine taxonomy. Store
// unavailability is infrastructure, never a security signal.
func (e *Engine) storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, accountID, sessionID string, success bool, failure error) {
	if e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	e.audit.Emit(ctx, event)
}
