package authcore

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	internalaudit "github.com/contentshare/authcore/internal/audit"
	"github.com/contentshare/authcore/jwt"
)

// Principal is an authenticated account. It is passed explicitly through every
// call that needs it and never persisted by the engine.
type Principal struct {
	AccountID   string
	Authorities []string
}

// HasAuthority reports whether p carries the named authority.
func (p Principal) HasAuthority(name string) bool {
	for _, a := range p.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

// TokenPair is the result of one issuance event.
type TokenPair = jwt.TokenPair

// CredentialVerifier checks an identifier/secret pair. Unknown identifiers and
// wrong secrets must both return ErrCredentialInvalid; any other error is
// treated as an infrastructure failure.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, secret string) (Principal, error)
}

// AuthorityResolver reloads an account's authorities when a refresh token is
// exchanged. It returns ErrCredentialInvalid when the account is gone.
type AuthorityResolver interface {
	Authorities(ctx context.Context, accountID string) ([]string, error)
}

// AuditEvent is the record delivered to audit sinks.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// ChannelSink buffers events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a sink whose events are read from Events().
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLoggerSink writes events through log.
func NewLoggerSink(log zerolog.Logger) AuditSink {
	return internalaudit.NewLoggerSink(log)
}

// NewKafkaSink publishes events to topic, keyed by account id.
func NewKafkaSink(brokers []string, topic string, log zerolog.Logger) *internalaudit.KafkaSink {
	return internalaudit.NewKafkaSink(brokers, topic, log)
}

// MultiSink fans every event out to several sinks.
func MultiSink(sinks ...AuditSink) AuditSink {
	return internalaudit.MultiSink(sinks)
}
