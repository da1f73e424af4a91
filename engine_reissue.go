package authcore

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/contentshare/authcore/refresh"
)

// Reissue exchanges a refresh token for a new pair. The presented token must
// be valid, must name an account and must equal that account's stored record.
//
// On ErrTokenMismatch the stored record has been deleted, so the legitimate
// holder has to log in again. On success the presented token is spent.
func (e *Engine) Reissue(ctx context.Context, presented string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	accountID, ok := e.refreshSubject(presented)
	if !ok {
		e.metricInc(MetricReissueInvalid)
		e.emitAudit(ctx, auditEventReissueFailure, false, "", ErrTokenInvalid)
		return TokenPair{}, ErrTokenInvalid
	}

	var (
		pair TokenPair
		err  error
	)
	if e.swapper != nil {
		pair, err = e.reissueSwap(ctx, accountID, presented)
	} else {
		pair, err = e.reissueSequential(ctx, accountID, presented)
	}
	if err != nil {
		e.recordReissueFailure(ctx, accountID, err)
		return TokenPair{}, err
	}

	e.metricInc(MetricReissueSuccess)
	e.emitAudit(ctx, auditEventReissueSuccess, true, accountID, nil)
	return pair, nil
}

// refreshSubject validates the token and returns its subject. Access tokens
// are refused.
func (e *Engine) refreshSubject(token string) (string, bool) {
	if !e.codec.Validate(token, e.now()) {
		return "", false
	}
	claims, err := e.codec.ParseClaims(token)
	if err != nil || claims.Subject == "" || !claims.IsRefresh() {
		return "", false
	}
	return claims.Subject, true
}

// reissueSwap mints first and then compare-and-replaces in one store call.
// Minting is pure, so a lost race only wastes a signature.
func (e *Engine) reissueSwap(ctx context.Context, accountID, presented string) (TokenPair, error) {
	pair, err := e.mintFor(ctx, accountID)
	if err != nil {
		return TokenPair{}, err
	}

	err = e.swapper.Swap(ctx, accountID, presented, pair.RefreshToken)
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, refresh.ErrNotFound):
		return TokenPair{}, ErrTokenNotFound
	case errors.Is(err, refresh.ErrMismatch):
		return TokenPair{}, ErrTokenMismatch
	default:
		return TokenPair{}, e.infra("reissue", accountID, err)
	}
}

// reissueSequential runs lookup, cross-check, delete and put as separate store
// calls, optionally under the account lock.
func (e *Engine) reissueSequential(ctx context.Context, accountID, presented string) (TokenPair, error) {
	if e.locks != nil {
		unlock := e.locks.Lock(accountID)
		defer unlock()
	}

	stored, err := e.store.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return TokenPair{}, ErrTokenNotFound
		}
		return TokenPair{}, e.infra("reissue", accountID, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		if err := e.store.Delete(ctx, accountID); err != nil {
			return TokenPair{}, e.infra("reissue", accountID, err)
		}
		return TokenPair{}, ErrTokenMismatch
	}

	pair, err := e.mintFor(ctx, accountID)
	if err != nil {
		return TokenPair{}, err
	}

	// Delete before put: a failure in between leaves no valid refresh token.
	if err := e.store.Delete(ctx, accountID); err != nil {
		return TokenPair{}, e.infra("reissue", accountID, err)
	}
	if err := e.store.Put(ctx, accountID, pair.RefreshToken); err != nil {
		return TokenPair{}, e.infra("reissue", accountID, err)
	}
	return pair, nil
}

// mintFor reloads the account's authorities and issues a pair. An account
// that no longer exists loses its record.
func (e *Engine) mintFor(ctx context.Context, accountID string) (TokenPair, error) {
	authorities, err := e.resolver.Authorities(ctx, accountID)
	if err != nil {
		if KindOf(err) == KindCredentialInvalid {
			if derr := e.store.Delete(ctx, accountID); derr != nil {
				return TokenPair{}, e.infra("reissue", accountID, derr)
			}
			return TokenPair{}, ErrTokenInvalid
		}
		return TokenPair{}, e.infra("reissue", accountID, err)
	}

	pair, err := e.issue(accountID, authorities)
	if err != nil {
		return TokenPair{}, e.infra("reissue", accountID, err)
	}
	return pair, nil
}

func (e *Engine) recordReissueFailure(ctx context.Context, accountID string, err error) {
	switch KindOf(err) {
	case KindTokenMismatch:
		e.metricInc(MetricReissueMismatch)
		e.log.Warn().Str("op", "reissue").Str("account_id", accountID).Msg("refresh token replay detected; record revoked")
		e.emitAudit(ctx, auditEventRefreshReplayDetected, false, accountID, err)
		return
	case KindTokenNotFound:
		e.metricInc(MetricReissueNotFound)
	case KindTokenInvalid:
		e.metricInc(MetricReissueInvalid)
	}
	e.emitAudit(ctx, auditEventReissueFailure, false, accountID, err)
}
