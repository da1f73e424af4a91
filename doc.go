// Package authcore issues, validates and rotates the credentials of a
// content-sharing service.
//
// [Engine] is the public surface: [Engine.Login] verifies credentials and
// mints an access/refresh pair, [Engine.Reissue] exchanges a refresh token for
// a new pair, [Engine.Logout] revokes the account's refresh record and
// [Engine.Authenticate] turns an access token back into a [Principal].
//
// Each account holds at most one live refresh token. A second login or a
// rotation overwrites the stored value, so any older refresh token stops
// working. Presenting a stale or replayed refresh token revokes the record.
//
// Engine methods are safe for concurrent use once [Builder.Build] returns.
// The signing key is read once at build time and never changes.
//
// # Architecture boundaries
//
// Token encoding lives in the jwt subpackage and record storage in refresh.
// Member lookup is reached only through [CredentialVerifier]; HTTP concerns
// live in httpapi and middleware.
//
// # What this package must NOT do
//
//   - Read the authenticated principal from ambient state; callers pass it.
//   - Import member, httpapi or middleware (they import this package).
package authcore
