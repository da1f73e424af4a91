package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer the sink needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON keyed by account id, so every event for
// one account lands on the same partition.
type KafkaSink struct {
	writer Writer
	log    zerolog.Logger
}

// NewKafkaSink returns a sink writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string, log zerolog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaSinkWithWriter(w, log)
}

// NewKafkaSinkWithWriter allows injecting a test writer.
func NewKafkaSinkWithWriter(w Writer, log zerolog.Logger) *KafkaSink {
	return &KafkaSink{writer: w, log: log}
}

// Emit never returns an error; delivery failures are logged and the event is
// dropped.
func (s *KafkaSink) Emit(ctx context.Context, event Event) {
	b, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", event.EventType).Msg("marshal audit event")
		return
	}
	msg := kafka.Message{Key: []byte(event.AccountID), Value: b, Time: event.Timestamp}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("event_type", event.EventType).Msg("kafka write")
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
