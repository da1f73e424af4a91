package authcore

import (
	"context"
	"time"
)

// Logout deletes the principal's refresh record. Logging out an account with
// no live record succeeds. Access tokens already issued stay valid until they
// expire.
func (e *Engine) Logout(ctx context.Context, principal Principal) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if principal.AccountID == "" {
		return ErrTokenInvalid
	}

	if err := e.store.Delete(ctx, principal.AccountID); err != nil {
		err = e.infra("logout", principal.AccountID, err)
		e.emitAudit(ctx, auditEventLogout, false, principal.AccountID, err)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, principal.AccountID, nil)
	return nil
}

// Authenticate validates an access token and rebuilds its principal. It never
// touches the refresh store. Refresh tokens are refused.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if !e.ready() {
		return Principal{}, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	if !e.codec.Validate(accessToken, e.now()) {
		e.metricInc(MetricAuthenticateFailure)
		return Principal{}, ErrTokenInvalid
	}
	claims, err := e.codec.ParseClaims(accessToken)
	if err != nil || claims.Subject == "" || claims.IsRefresh() {
		e.metricInc(MetricAuthenticateFailure)
		return Principal{}, ErrTokenInvalid
	}

	e.metricInc(MetricAuthenticateSuccess)
	return Principal{AccountID: claims.Subject, Authorities: claims.AuthorityList()}, nil
}
