package repository

import (
	"context"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	pkgkafka "TradeCore/pkg/kafka"
)

// KafkaAuditSink publishes every pipeline result to a Kafka topic, keyed by
// correlation id so a run's records land on one partition in order. The audit
// trail is append-only; the core never reads it back.
type KafkaAuditSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAuditSink creates the audit sink.
func NewKafkaAuditSink(producer *pkgkafka.Producer, topic string) domrepo.AuditSink {
	return &KafkaAuditSink{producer: producer, topic: topic}
}

func (s *KafkaAuditSink) Record(ctx context.Context, res *models.PipelineResult) error {
	return s.producer.Publish(ctx, s.topic, []byte(res.CorrelationID), res)
}

func (s *KafkaAuditSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
