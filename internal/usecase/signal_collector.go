package usecase

import (
	"context"
	"fmt"

	"TradeCore/internal/controlstate"
	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	mid "TradeCore/internal/middleware"
)

// SignalCollector connects the signal stream to the orchestrator through the
// intake middleware.
type SignalCollector struct {
	stream  domrepo.SignalStream
	orch    *Orchestrator
	metrics domrepo.Metrics
	pipe    *mid.SignalIntake
}

func NewSignalCollector(stream domrepo.SignalStream, orch *Orchestrator, metrics domrepo.Metrics, pipe *mid.SignalIntake) *SignalCollector {
	return &SignalCollector{stream: stream, orch: orch, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the signal stream is connected.
func (c *SignalCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SignalCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	sigCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, sigCh, errCh)
	return nil
}

func (c *SignalCollector) consume(ctx context.Context, sigCh <-chan *models.TradeSignal, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case sig := <-sigCh:
			if sig == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, sig)
			} else {
				_ = c.Process(ctx, sig)
			}
		}
	}
}

// Process runs one signal through the orchestrator. Pipeline rejections are
// terminal outcomes, not errors; only a durable safety-state write failure is
// surfaced so the intake can back off.
func (c *SignalCollector) Process(ctx context.Context, sig *models.TradeSignal) error {
	return runPipeline(ctx, c.orch, sig)
}

func runPipeline(ctx context.Context, orch *Orchestrator, sig *models.TradeSignal) error {
	res := orch.Process(ctx, sig)
	if res.Reason == models.ReasonPersistenceError {
		return fmt.Errorf("%w: %s", controlstate.ErrPersistence, res.Message)
	}
	return nil
}

// PipelineProc adapts the orchestrator to the intake middleware for sources
// that bypass the stream collector, such as the Kafka signals consumer.
type PipelineProc struct {
	orch *Orchestrator
}

func NewPipelineProc(orch *Orchestrator) *PipelineProc {
	return &PipelineProc{orch: orch}
}

func (p *PipelineProc) Process(ctx context.Context, sig *models.TradeSignal) error {
	return runPipeline(ctx, p.orch, sig)
}

var _ mid.Proc = (*PipelineProc)(nil)

// Stop closes the stream without waiting for the intake buffer.
func (c *SignalCollector) Stop() error { return c.stream.Close() }

// Shutdown stops the intake and closes the stream.
func (c *SignalCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}

var _ mid.Proc = (*SignalCollector)(nil)
