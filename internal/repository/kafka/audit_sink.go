package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/domain/audit"
)

var _ audit.Sink = (*AuditSink)(nil)

// AuditSink publishes audit events as JSON to a Kafka topic. Consumers are
// external; the auth service only produces. Events for the same principal
// share a key so they land on one partition in order.
type AuditSink struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

func NewAuditSink(brokers []string, topic string, log *zap.Logger) *AuditSink {
	if log == nil {
		log = zap.L()
	}
	return &AuditSink{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
		log:   log.With(zap.String("component", "kafka.audit_sink"), zap.String("topic", topic)),
	}
}

func (s *AuditSink) Emit(ctx context.Context, e *audit.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		s.log.Error("audit marshal failed", zap.Error(err))
		return fmt.Errorf("marshal audit event: %w", err)
	}

	tr := otel.Tracer("kafka.audit_sink")
	ctx, span := tr.Start(ctx, "kafka.produce "+s.topic, trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(s.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	key := []byte(e.ID.String())
	if e.PrincipalID != nil {
		key = []byte(e.PrincipalID.String())
	}

	if err := s.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		s.log.Error("kafka write failed", zap.Error(err))
		return fmt.Errorf("write audit event: %w", err)
	}
	s.log.Debug("audit event published", zap.String("kind", string(e.Kind)))
	return nil
}

func (s *AuditSink) Close() error { return s.w.Close() }
