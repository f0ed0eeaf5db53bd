// Package authcore is a credential and session lifecycle manager: it
// registers accounts, authenticates passwords, issues paired JWT access and
// refresh tokens, rotates refresh tokens with reuse (theft) detection, and
// revokes sessions individually or account-wide.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. The engine itself holds no mutable state; all state
// lives in the caller-supplied [AccountProvider] and the session store.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, SessionInfo, MetricsSnapshot, etc.). Token
// signing lives in token/, password hashing in password/, session records
// in session/, fixed-window limiting in rate/; audit dispatch is internal
// and reached only through the sinks re-exported here.
//
// # Security model
//
// Access tokens are short-lived and never persisted or individually
// revoked; all revocation happens at the refresh-token layer. Each refresh
// use rotates the token, and presenting an already-rotated token revokes
// every session of the account on the assumption of leakage. Revoked
// records are retained until their natural expiry precisely so that reuse
// is distinguishable from an unknown token.
package authcore
