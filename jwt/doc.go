// Package jwt signs and verifies the compact HS256 token pairs handed out on
// login and reissue.
//
// Both tokens carry an expiry in epoch milliseconds and a random jti. The
// access token adds the comma-joined authority list under "auth"; the refresh
// token carries sub, exp, jti and typ="refresh" so the two kinds can never be
// confused, even for an account with no authorities.
//
// # What this package must NOT do
//
//   - Persist tokens or consult the refresh record store.
//   - Read the signing key from the environment; callers pass it in once.
package jwt
