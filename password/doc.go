// Package password implements authcore's credential verifier.
//
// New hashes are argon2id in PHC string format. Verify additionally accepts
// legacy bcrypt hashes so that accounts imported from older deployments keep
// authenticating; NeedsUpgrade reports such hashes (and argon2id hashes with
// weaker-than-configured parameters) so the engine can transparently re-hash
// on the next successful login.
//
// Verify never returns an error for a simple mismatch: a wrong password is
// an expected input and yields (false, nil).
package password
