// Package token implements the signed token codec used by authcore.
//
// The codec issues and verifies two kinds of time-bounded tokens: short-lived
// access tokens and long-lived refresh tokens. Each kind is signed with its
// own key material, so a leaked refresh secret never lets an attacker mint
// access tokens and vice versa. Every token embeds its kind as a claim and
// verification rejects a token presented as the wrong kind, even when the
// signature itself is valid.
//
// The codec performs no I/O. Persistence, rotation, and revocation of refresh
// tokens are the session store's concern.
package token
