package authcore

import "context"

// Login verifies the credentials, mints a token pair and stores its refresh
// token as the account's only live record. A previous refresh token for the
// same account stops working.
//
// Unknown identifiers and wrong secrets both fail with ErrCredentialInvalid.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	principal, err := e.verifier.Verify(ctx, identifier, secret)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		if KindOf(err) == KindCredentialInvalid {
			e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrCredentialInvalid)
			return TokenPair{}, ErrCredentialInvalid
		}
		err = e.infra("login", "", err)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", err)
		return TokenPair{}, err
	}

	pair, err := e.issue(principal.AccountID, principal.Authorities)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		err = e.infra("login", principal.AccountID, err)
		e.emitAudit(ctx, auditEventLoginFailure, false, principal.AccountID, err)
		return TokenPair{}, err
	}

	if err := e.store.Put(ctx, principal.AccountID, pair.RefreshToken); err != nil {
		e.metricInc(MetricLoginFailure)
		err = e.infra("login", principal.AccountID, err)
		e.emitAudit(ctx, auditEventLoginFailure, false, principal.AccountID, err)
		return TokenPair{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, principal.AccountID, nil)
	return pair, nil
}
