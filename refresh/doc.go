// Package refresh stores the single live refresh token of each account.
//
// A record maps an account identifier to the last refresh token issued for it
// and expires after a fixed TTL. Writing a record replaces the previous one, so
// at most one refresh token per account is accepted at any time.
//
// # Backends
//
//   - [RedisStore]: SET PX / GET / DEL plus a Lua compare-and-swap.
//   - [PostgresStore]: upsert with an expires_at column and a row-locking swap.
//   - [MemoryStore]: process-local map for tests and single-node setups.
//
// All three implement [Swapper], which lets the engine check the presented
// token and replace it in one step.
//
// # What this package must NOT do
//
//   - Parse or verify token signatures.
//   - Decide what a mismatch means for the caller beyond revoking the record.
package refresh
