package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"TradeCore/internal/controlstate"
	"TradeCore/internal/domain/models"
	"TradeCore/internal/domain/repository"
	"TradeCore/internal/handler/api"
	mid "TradeCore/internal/middleware"
	internalrepo "TradeCore/internal/repository"
	"TradeCore/internal/service/broker"
	"TradeCore/internal/service/regime"
	"TradeCore/internal/service/signalfeed"
	"TradeCore/internal/usecase"
	pkgcache "TradeCore/pkg/cache"
	pkgch "TradeCore/pkg/clickhouse"
	"TradeCore/pkg/config"
	pkgkafka "TradeCore/pkg/kafka"
	applogger "TradeCore/pkg/logger"
	"TradeCore/pkg/metrics"
	pkgqueue "TradeCore/pkg/queue"
	"TradeCore/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideControlStore loads the durable safety state.
func ProvideControlStore(cfg *config.Config, l *applogger.Logger) (*controlstate.Store, error) {
	loc, err := time.LoadLocation(cfg.Trading.Timezone)
	if err != nil {
		return nil, fmt.Errorf("trading timezone: %w", err)
	}
	return controlstate.New(cfg.State.Path, loc, controlstate.WithLogger(l))
}

// ProvideClickHouseClient creates a ClickHouse client for the returns store.
// Returns nil when ClickHouse is not configured; risk checks that need return
// series then degrade as documented.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideReturnsProvider creates the ClickHouse-backed returns store.
func ProvideReturnsProvider(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.ReturnsProvider {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewCHReturnsStore(chClient, cfg.ClickHouse.Database+"."+cfg.ClickHouse.ReturnsTable)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer for the audit sink.
// Returns nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAuditSink creates the Kafka audit sink.
func ProvideAuditSink(producer *pkgkafka.Producer, cfg *config.Config) repository.AuditSink {
	if producer == nil || cfg.Kafka.AuditTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaAuditSink(producer, cfg.Kafka.AuditTopic)
}

// ProvideAlertSink creates the Redis alert queue sink, falling back to the
// structured log when Redis is not configured.
func ProvideAlertSink(cfg *config.Config, l *applogger.Logger) repository.AlertSink {
	if !cfg.Redis.Enabled || cfg.Redis.Addr == "" {
		return internalrepo.NewLogAlertSink(l)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	queue := pkgqueue.NewRedisPublisher(l, client, pkgqueue.WithKeyPrefix("tradecore:"+cfg.Redis.AlertQueue))
	return internalrepo.NewRedisAlertSink(queue, l)
}

// ProvidePaperBroker creates the paper broker adapter.
func ProvidePaperBroker(cfg *config.Config, l *applogger.Logger) *broker.Paper {
	return broker.NewPaper(cfg.Broker.PaperCash, l,
		broker.WithSlippageBps(cfg.Broker.SlippageBps),
		broker.WithName(cfg.Broker.Primary),
	)
}

// ProvidePositionLedger creates the in-memory position book.
func ProvidePositionLedger() *usecase.PositionLedger {
	return usecase.NewPositionLedger()
}

// ProvideAccountProvider derives account snapshots from the paper broker.
func ProvideAccountProvider(paper *broker.Paper, ledger *usecase.PositionLedger) repository.AccountProvider {
	return broker.NewPaperAccount(paper, ledger)
}

// ProvideRegimeDetector creates the optional HTTP regime detector. Lookups
// are cached in memory, layered over Redis when Redis is enabled so restarts
// keep warm entries.
func ProvideRegimeDetector(cfg *config.Config, l *applogger.Logger) repository.RegimeDetector {
	if cfg.Regime.ServiceURL == "" {
		return nil
	}
	var store pkgcache.Service = pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(256))
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Redis.Addr),
			pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		)
		if err != nil {
			l.Warn("regime cache falling back to memory", applogger.Error(err))
		} else {
			store = pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(256))
		}
	}
	return regime.New(cfg.Regime.ServiceURL, cfg.Regime.Timeout,
		regime.WithCache(store, cfg.Regime.CacheTTL),
	)
}

// ProvideSignalGuard creates the freshness/dedup guard.
func ProvideSignalGuard(cfg *config.Config) *usecase.SignalGuard {
	return usecase.NewSignalGuard(cfg.Signals.MaxAge, cfg.Signals.DedupWindow, cfg.Signals.DedupMaxEntries)
}

// ProvideRiskAssessor creates the multi-check risk gate.
func ProvideRiskAssessor(cfg *config.Config, returns repository.ReturnsProvider, l *applogger.Logger) *usecase.RiskAssessor {
	return usecase.NewRiskAssessor(usecase.RiskConfig{
		DailyLossLimitPct:     cfg.Risk.DailyLossLimitPct,
		MaxPositions:          cfg.Risk.MaxPositions,
		ConcentrationLimitPct: cfg.Risk.ConcentrationLimitPct,
		CorrelationThreshold:  cfg.Risk.CorrelationThreshold,
		MaxClusterSize:        cfg.Risk.MaxClusterSize,
		VarBudgetPct:          cfg.Risk.VarBudgetPct,
		VarConfidenceZ:        cfg.Risk.VarConfidenceZ,
		ReturnsLookbackDays:   cfg.Risk.ReturnsLookbackDays,
	}, returns, l)
}

// ProvideInstrumentRouter creates the instrument router.
func ProvideInstrumentRouter(cfg *config.Config) *usecase.InstrumentRouter {
	return usecase.NewInstrumentRouter(usecase.RouterConfig{
		Mode:              cfg.Instruments.Mode,
		OptionsConviction: cfg.Instruments.OptionsConviction,
		ProxyConviction:   cfg.Instruments.ProxyConviction,
		Sectors:           cfg.Instruments.Sectors,
		Proxies:           cfg.Instruments.Proxies,
	})
}

// ProvidePositionSizer creates the position sizer.
func ProvidePositionSizer(cfg *config.Config) *usecase.PositionSizer {
	return usecase.NewPositionSizer(usecase.SizerConfig{
		RiskBudgetPct:      cfg.Sizing.RiskBudgetPct,
		ContractMultiplier: cfg.Sizing.ContractMultiplier,
	})
}

// ProvideOrderSubmitter creates the submitter over the paper broker.
func ProvideOrderSubmitter(paper *broker.Paper, cfg *config.Config, m repository.Metrics, l *applogger.Logger) *usecase.OrderSubmitter {
	return usecase.NewOrderSubmitter(paper, nil, usecase.SubmitterConfig{
		MaxAttempts:  cfg.Broker.MaxAttempts,
		BackoffMin:   cfg.Broker.BackoffMin,
		BackoffMax:   cfg.Broker.BackoffMax,
		CallTimeout:  cfg.Broker.CallTimeout,
		RateCapacity: cfg.Broker.RateCapacity,
		RatePerSec:   cfg.Broker.RatePerSec,
	}, m, l)
}

// ProvideFillValidator creates the ghost-position guard.
func ProvideFillValidator(cfg *config.Config) *usecase.FillValidator {
	return usecase.NewFillValidator(usecase.FillConfig{
		PriceTolerancePct:    cfg.Fills.PriceTolerancePct,
		QuantityTolerancePct: cfg.Fills.QuantityTolerancePct,
	})
}

// ProvideOrchestrator assembles the pipeline.
func ProvideOrchestrator(
	cfg *config.Config,
	control *controlstate.Store,
	guard *usecase.SignalGuard,
	assessor *usecase.RiskAssessor,
	router *usecase.InstrumentRouter,
	sizer *usecase.PositionSizer,
	submitter *usecase.OrderSubmitter,
	fills *usecase.FillValidator,
	ledger *usecase.PositionLedger,
	accounts repository.AccountProvider,
	returns repository.ReturnsProvider,
	regimes repository.RegimeDetector,
	audit repository.AuditSink,
	alerts repository.AlertSink,
	m repository.Metrics,
	paper *broker.Paper,
	l *applogger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Control:       control,
		Guard:         guard,
		Assessor:      assessor,
		Router:        router,
		Sizer:         sizer,
		Submitter:     submitter,
		Fills:         fills,
		Ledger:        ledger,
		Accounts:      accounts,
		Returns:       returns,
		Regimes:       regimes,
		Audit:         audit,
		Alerts:        alerts,
		Metrics:       m,
		Brokers:       []repository.BrokerAdapter{paper},
		DefaultRegime: models.Regime(cfg.Trading.DefaultRegime),
		AutoKillPct:   cfg.Risk.AutoKillLossPct,
		LookbackDays:  cfg.Risk.ReturnsLookbackDays,
		StartPaused:   cfg.Trading.StartPaused,
		Mode:          cfg.Trading.Mode,
		Logger:        l,
	})
}

// ProvideSignalStream creates the WebSocket signal feed.
// Returns nil when signals come from Kafka instead.
func ProvideSignalStream(cfg *config.Config, l *applogger.Logger) repository.SignalStream {
	if cfg.Signals.Source != "websocket" {
		return nil
	}
	return signalfeed.New(
		cfg.Feed.Token,
		cfg.Feed.URL,
		cfg.Feed.Tickers,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		l,
	)
}

// ProvideSignalCollector wires stream -> intake -> orchestrator.
func ProvideSignalCollector(
	stream repository.SignalStream,
	orch *usecase.Orchestrator,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SignalCollector {
	if stream == nil {
		return nil
	}
	pipe := mid.NewSignalIntake(usecase.NewPipelineProc(orch), m,
		mid.WithMaxRPS(cfg.Signals.MaxPerSecond),
		mid.WithBufferSize(cfg.Signals.BufferSize),
	)
	return usecase.NewSignalCollector(stream, orch, m, pipe)
}

// ProvideKafkaConsumer creates a Kafka consumer for the signals topic.
// Returns nil unless signals are sourced from Kafka.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Signals.Source != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSignalsHandler decodes signals from Kafka into the pipeline.
func ProvideKafkaSignalsHandler(
	orch *usecase.Orchestrator,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaSignalsHandler {
	if cfg.Signals.Source != "kafka" {
		return nil
	}
	pipe := mid.NewSignalIntake(usecase.NewPipelineProc(orch), m,
		mid.WithMaxRPS(cfg.Signals.MaxPerSecond),
		mid.WithBufferSize(cfg.Signals.BufferSize),
	)
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.SignalsTopic, pipe, m)
}

// ProvideControlHandler creates the Echo control surface.
func ProvideControlHandler(l *applogger.Logger, orch *usecase.Orchestrator) *api.ControlHandler {
	return api.NewControlHandler(l, orch)
}

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.SignalCollector,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	handler *api.ControlHandler,
	orch *usecase.Orchestrator,
	chClient *pkgch.Client,
	audit repository.AuditSink,
	alerts repository.AlertSink,
	m repository.Metrics,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewHookChain(
			pkgkafka.TracingHook(),
			pkgkafka.MetricsHook(m.RecordLatency, m.RecordError),
		))
	}
	if producer != nil && cfg.Kafka.ErrorsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			FlushInterval: 30 * time.Second,
			MaxEntries:    100,
			Topic:         cfg.Kafka.ErrorsTopic,
			Publisher:     kafkaLogPublisher{producer},
		})
	}
	return server.New(cfg, l, collector, consumer, kh, handler, orch, chClient, audit, alerts)
}
