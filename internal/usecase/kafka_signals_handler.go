package usecase

import (
	"context"
	"encoding/json"
	"time"

	domrepo "TradeCore/internal/domain/repository"
	mid "TradeCore/internal/middleware"
	pkgkafka "TradeCore/pkg/kafka"

	"TradeCore/internal/domain/models"
)

// KafkaSignalsHandler consumes trade signals from a Kafka topic, for
// deployments where signal producers publish to Kafka instead of serving a
// WebSocket feed. Messages carry the same JSON schema as the stream.
type KafkaSignalsHandler struct {
	topic   string
	proc    mid.Proc
	metrics domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, proc mid.Proc, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var sig models.TradeSignal
	if err := json.Unmarshal(b, &sig); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	// E2E latency from signal generation to consumption (approx)
	if !sig.GeneratedAt.IsZero() {
		h.metrics.RecordLatency("signal_ingest_e2e_seconds", time.Since(sig.GeneratedAt).Seconds())
	}
	return h.proc.Process(ctx, &sig)
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
