// Package middleware exposes HTTP guards built on authcore.Engine.Authenticate.
//
// # Guards
//
//   - [Guard]: requires a valid bearer access token and places the
//     authenticated [authcore.Principal] in the request context.
//   - [RequireAuthority]: additionally requires one named authority.
//
// Handlers read the principal with [PrincipalFromContext] and pass it on
// explicitly; nothing below the handler reads it from the context again.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to the engine).
//   - Touch the refresh store.
package middleware
