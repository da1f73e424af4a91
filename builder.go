package authcore

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/contentshare/authcore/internal/audit"
	"github.com/contentshare/authcore/internal/keylock"
	"github.com/contentshare/authcore/jwt"
	"github.com/contentshare/authcore/refresh"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config

	store     refresh.Store
	verifier  CredentialVerifier
	resolver  AuthorityResolver
	auditSink AuditSink
	log       zerolog.Logger
	clock     func() time.Time

	built bool
}

// New returns a builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		log:    zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRefreshStore sets the record store. Stores implementing refresh.Swapper
// rotate atomically.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuthorityResolver overrides the resolver used by Reissue. When unset the
// credential verifier is used if it implements AuthorityResolver.
func (b *Builder) WithAuthorityResolver(r AuthorityResolver) *Builder {
	b.resolver = r
	return b
}

// WithAuditSink sets the sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	return b
}

// WithClock replaces time.Now for token issuance and validation.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, decodes the signing key once and returns
// a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("refresh store required")
	}
	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}

	resolver := b.resolver
	if resolver == nil {
		r, ok := b.verifier.(AuthorityResolver)
		if !ok {
			return nil, errors.New("authority resolver required: credential verifier does not implement AuthorityResolver")
		}
		resolver = r
	}

	key, err := cfg.signingKey()
	if err != nil {
		return nil, err
	}
	codec, err := jwt.NewCodec(jwt.Config{Secret: key, GrantType: cfg.JWT.GrantType})
	if err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		config:   cfg,
		codec:    codec,
		store:    b.store,
		verifier: b.verifier,
		resolver: resolver,
		metrics:  NewMetrics(cfg.Metrics),
		log:      b.log.With().Str("component", "authcore").Logger(),
		clock:    clock,
	}
	if sw, ok := b.store.(refresh.Swapper); ok {
		e.swapper = sw
	} else if cfg.Refresh.SerializeRotation {
		e.locks = &keylock.Map{}
	}
	if cfg.Audit.Enabled {
		e.audit = internalaudit.NewDispatcher(internalaudit.Config{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	b.built = true
	return e, nil
}
