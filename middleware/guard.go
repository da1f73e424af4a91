package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/contentshare/authcore"
)

// Authenticator is satisfied by *authcore.Engine.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (authcore.Principal, error)
}

// ErrorFunc writes the response for a rejected request. err is nil when the
// Authorization header is missing or malformed.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

type principalContextKey struct{}

func PrincipalFromContext(ctx context.Context) (authcore.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(authcore.Principal)
	return p, ok
}

// WithPrincipal is used by tests and by handlers that authenticate by other
// means.
func WithPrincipal(ctx context.Context, p authcore.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard rejects requests without a valid bearer access token. Infrastructure
// failures are reported as 500, every other rejection as 401.
func Guard(auth Authenticator, onError ErrorFunc) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				onError(w, r, http.StatusUnauthorized, authcore.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				onError(w, r, http.StatusUnauthorized, nil)
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if authcore.KindOf(err) == authcore.KindInfrastructure {
					status = http.StatusInternalServerError
				}
				onError(w, r, status, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuthority must run inside Guard. Principals lacking the authority get
// 403.
func RequireAuthority(name string, onError ErrorFunc) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				onError(w, r, http.StatusUnauthorized, nil)
				return
			}
			if !p.HasAuthority(name) {
				onError(w, r, http.StatusForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func plainError(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
