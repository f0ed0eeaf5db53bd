// Package session persists refresh-token records and implements the atomic
// rotation step that makes reuse (theft) detection possible.
//
// A record stays in the store after it is revoked, until its original expiry
// passes. That retention is load-bearing: presenting an already-revoked token
// must be distinguishable from presenting an unknown one, because the former
// triggers full-account session teardown while the latter is an ordinary
// invalid-token failure.
//
// Two implementations are provided. [RedisStore] keys records by token hash
// and relies on Redis TTLs for expiry, with Lua scripts supplying the
// compare-and-swap rotation step. [PGStore] keeps records in a Postgres
// table and uses a conditional UPDATE as the CAS; expired rows are removed
// by [Sweeper].
package session
