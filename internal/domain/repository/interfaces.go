package repository

import (
	"context"
	"errors"

	"TradeCore/internal/domain/models"
)

// ErrOrderRejected marks a terminal broker rejection (invalid price, broker-side
// buying power, etc). It is never retried.
var ErrOrderRejected = errors.New("order rejected by broker")

// SignalStream supplies trade signals from an external producer.
type SignalStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TradeSignal, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BrokerAdapter wraps one brokerage behind a uniform order interface.
// Submit returns ErrOrderRejected (possibly wrapped) for terminal rejections;
// any other error is considered transient and retryable.
type BrokerAdapter interface {
	Name() string
	Submit(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error)
	Cancel(ctx context.Context, orderID string) error
	GetFill(ctx context.Context, orderID string) (*models.OrderResult, error)
}

// AccountProvider supplies a fresh account snapshot per pipeline cycle.
type AccountProvider interface {
	Account(ctx context.Context) (*models.AccountState, error)
}

// ReturnsProvider supplies historical daily return series for
// correlation and VaR computation.
type ReturnsProvider interface {
	Returns(ctx context.Context, ticker string, days int) ([]float64, error)
	ReturnsMatrix(ctx context.Context, tickers []string, days int) (map[string][]float64, error)
	Health(ctx context.Context) error
	Close() error
}

// RegimeDetector classifies current market conditions from a returns series.
// Optional capability: a nil detector means the configured default regime applies.
type RegimeDetector interface {
	Detect(ctx context.Context, ticker string, returns []float64) (models.Regime, error)
}

// AuditSink receives every pipeline result plus intermediate stage decisions.
// Append-only; the core writes but never reads back.
type AuditSink interface {
	Record(ctx context.Context, res *models.PipelineResult) error
	Close() error
}

// AlertLevel classifies alert severity.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// AlertSink is notified of safety events. Fire-and-forget: implementations
// must swallow their own failures; delivery never affects pipeline outcome.
type AlertSink interface {
	Notify(ctx context.Context, level AlertLevel, code, message string)
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordStage(stage string)
	RecordRejection(stage, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordOrderAttempt(broker, result string)
	RecordDailyPnL(v float64)
	RecordOpenPositions(n int)
}
