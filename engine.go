package authcore

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/contentshare/authcore/internal/audit"
	"github.com/contentshare/authcore/internal/keylock"
	"github.com/contentshare/authcore/jwt"
	"github.com/contentshare/authcore/refresh"
)

// Engine issues, rotates and validates tokens. It is immutable after Build
// and safe for concurrent use.
type Engine struct {
	config   Config
	codec    *jwt.Codec
	store    refresh.Store
	swapper  refresh.Swapper
	locks    *keylock.Map
	verifier CredentialVerifier
	resolver AuthorityResolver
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	log      zerolog.Logger
	clock    func() time.Time
}

// Close flushes pending audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports events discarded because the audit buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RefreshTTL is the lifetime of issued refresh tokens, used for cookie Max-Age.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

func (e *Engine) ready() bool {
	return e != nil && e.codec != nil && e.store != nil
}

func (e *Engine) now() time.Time {
	return e.clock()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) issue(accountID string, authorities []string) (TokenPair, error) {
	pair, err := e.codec.Issue(accountID, authorities, e.now(), e.config.JWT.AccessTTL, e.config.JWT.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}
	return pair, nil
}

// infra logs an infrastructure failure and makes sure it is classified as one.
func (e *Engine) infra(op, accountID string, err error) error {
	e.log.Error().Err(err).Str("op", op).Str("account_id", accountID).Msg("infrastructure failure")
	if KindOf(err) == KindInfrastructure {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
