package authcore

import (
	"errors"
	"net/http"

	"github.com/nightscribe/authcore/rate"
)

var (
	// ErrEmailTaken is returned by Register when the email already has an
	// account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login failures never reveal which half was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordNotSet is returned when a password login hits an account
	// that only has an external identity provider.
	ErrPasswordNotSet = errors.New("account has no password set")
	// ErrAccountNotFound is returned when an account lookup by id misses.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountSuspended blocks every flow of a suspended account.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrAccountDeleted blocks every flow of a soft-deleted account.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrTokenInvalid is returned by VerifyAccess for anything that fails
	// signature, expiry, kind, or claim checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid is returned for refresh tokens that are malformed,
	// forged, or unknown to the session store.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshExpired is returned for a well-formed refresh token whose
	// lifetime has passed.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshReuse is returned when an already-rotated refresh token is
	// presented again. Every session of the account is revoked first.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrSessionNotFound is returned by RevokeSession when the session does
	// not exist, is not live, or belongs to another account.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoPasswordSet is returned by ChangePassword for provider-only
	// accounts, which have no current password to verify.
	ErrNoPasswordSet = errors.New("no password set for account")
	// ErrPasswordReuse rejects a new password equal to the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrPasswordPolicy rejects passwords below the configured minimums.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrStoreUnavailable wraps infrastructure failures from the session
	// store or account provider.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrEngineNotReady is returned when an engine method runs before Build
	// completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// FailureKind classifies engine errors for transport layers that need a
// coarse category rather than an exact sentinel.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindConflict
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindNotFound
	KindTooManyRequests
	KindUnavailable
)

// Kind maps an engine error to its failure category. Wrapped errors are
// matched through errors.Is, so callers can annotate freely.
func Kind(err error) FailureKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrEmailTaken):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrPasswordNotSet),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrRefreshExpired),
		errors.Is(err, ErrRefreshReuse):
		return KindUnauthorized
	case errors.Is(err, ErrAccountSuspended),
		errors.Is(err, ErrAccountDeleted):
		return KindForbidden
	case errors.Is(err, ErrNoPasswordSet),
		errors.Is(err, ErrPasswordReuse),
		errors.Is(err, ErrPasswordPolicy):
		return KindBadRequest
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, rate.ErrRateLimited):
		return KindTooManyRequests
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return KindUnavailable
	default:
		return KindUnknown
	}
}

// HTTPStatus returns the status code conventionally paired with the kind.
func (k FailureKind) HTTPStatus() int {
	switch k {
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
