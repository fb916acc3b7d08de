//go:build wireinject
// +build wireinject

package di

import (
	"TradeCore/pkg/config"
	"TradeCore/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Durable safety state
		ProvideControlStore,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Outbound ports
		ProvideReturnsProvider,
		ProvideAuditSink,
		ProvideAlertSink,
		ProvideRegimeDetector,

		// Broker and account
		ProvidePaperBroker,
		ProvidePositionLedger,
		ProvideAccountProvider,

		// Pipeline components
		ProvideSignalGuard,
		ProvideRiskAssessor,
		ProvideInstrumentRouter,
		ProvidePositionSizer,
		ProvideOrderSubmitter,
		ProvideFillValidator,
		ProvideOrchestrator,

		// Intake
		ProvideSignalStream,
		ProvideSignalCollector,
		ProvideKafkaSignalsHandler,

		// HTTP
		ProvideControlHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
