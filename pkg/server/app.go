package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TradeCore/internal/domain/repository"
	"TradeCore/internal/usecase"
	pkgch "TradeCore/pkg/clickhouse"
	"TradeCore/pkg/config"
	xhttp "TradeCore/pkg/http"
	pkgkafka "TradeCore/pkg/kafka"
	applogger "TradeCore/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	collector  *usecase.SignalCollector
	consumer   *pkgkafka.Consumer
	kh         *usecase.KafkaSignalsHandler
	handler    xhttp.Handler
	orch       *usecase.Orchestrator
	chClient   *pkgch.Client
	audit      repository.AuditSink
	alerts     repository.AlertSink
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.SignalCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	handler xhttp.Handler,
	orch *usecase.Orchestrator,
	chClient *pkgch.Client,
	audit repository.AuditSink,
	alerts repository.AlertSink,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		handler:   handler,
		orch:      orch,
		chClient:  chClient,
		audit:     audit,
		alerts:    alerts,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.chClient != nil {
		if err := a.initReturnsSchema(ctx); err != nil {
			a.l.Warn("returns schema init failed", applogger.Error(err))
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
	)

	// Start signal intake: WebSocket collector or Kafka consumer.
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.l.Error("signal collector error", applogger.Error(err))
			}
		}()
		a.l.Info("signal collector started", applogger.Strings("tickers", a.cfg.Feed.Tickers))
	}
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka signals consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("control surface listening",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("mode", a.orch.Mode()),
		applogger.Bool("paused", a.orch.Paused()),
	)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// initReturnsSchema ensures the daily returns table exists. The table is fed
// by an external pipeline; creating it here just makes a fresh deployment
// queryable immediately.
func (a *App) initReturnsSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db := a.cfg.ClickHouse.Database
	table := a.cfg.ClickHouse.ReturnsTable
	return a.chClient.InitSchema(schemaCtx, []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			ticker LowCardinality(String),
			day    Date,
			ret    Float64
		) ENGINE = MergeTree()
		ORDER BY (ticker, day)`, db, table),
	})
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Stop intake first so nothing new enters the pipeline.
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.l.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Release pipeline resources and outbound sinks.
	if a.orch != nil {
		a.orch.Close()
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.l.Warn("audit sink close error", applogger.Error(err))
		}
	}
	if a.alerts != nil {
		if err := a.alerts.Close(); err != nil {
			a.l.Warn("alert sink close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.RemoveCollector()
	a.l.Info("shutdown complete")
	return nil
}
