// Package httpapi exposes the member, session and image endpoints over
// net/http.
//
// Tokens travel two ways: the access token in the JSON body (and afterwards in
// the Authorization header) and the refresh token in an HttpOnly cookie named
// refresh_token. Every error body is {"code": ..., "message": ...}.
package httpapi
