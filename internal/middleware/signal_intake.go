package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

// Proc is the minimal downstream the intake needs.
type Proc interface {
	Process(ctx context.Context, sig *models.TradeSignal) error
}

// SignalIntake sits between the signal stream and the orchestrator.
// It validates, throttles per ticker, and buffers when downstream errors,
// flushing the buffer in the background with backoff.
type SignalIntake struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.TradeSignal
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-ticker last accepted time
}

type IntakeOption func(*SignalIntake)

// WithMaxRPS sets the max signals per second per ticker.
func WithMaxRPS(n int) IntakeOption {
	return func(p *SignalIntake) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) IntakeOption {
	return func(p *SignalIntake) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewSignalIntake creates the intake middleware.
func NewSignalIntake(proc Proc, metrics domrepo.Metrics, opts ...IntakeOption) *SignalIntake {
	p := &SignalIntake{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   5,   // default throttle per ticker
		bufSize:  256, // default buffer
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.TradeSignal, p.bufSize)
	return p
}

// Start launches background flushing of buffered signals. The intake can be
// stopped and started again; each Start gets a fresh stop channel.
func (p *SignalIntake) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-stop:
				return
			case sig := <-p.bufCh:
				if sig == nil {
					continue
				}
				if err := p.proc.Process(ctx, sig); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("intake_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- sig:
					default:
						p.metrics.RecordError("intake_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *SignalIntake) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.stopCh)
	p.mu.Unlock()
}

// Process validates and throttles a signal, then forwards it downstream,
// buffering on downstream errors. Throttled signals are dropped silently;
// the dedup guard downstream catches the ones that matter.
func (p *SignalIntake) Process(ctx context.Context, sig *models.TradeSignal) error {
	start := time.Now()
	if err := validateSignal(sig); err != nil {
		p.metrics.RecordError("intake_validate")
		return err
	}
	if !p.allow(sig.Ticker, start) {
		p.metrics.RecordError("intake_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, sig); err != nil {
		p.metrics.RecordError("intake_process")
		// buffer non-blocking
		select {
		case p.bufCh <- sig:
		default:
			p.metrics.RecordError("intake_buffer_full")
		}
		return fmt.Errorf("intake downstream: %w", err)
	}
	p.metrics.RecordLatency("intake_process", time.Since(start).Seconds())
	return nil
}

func validateSignal(sig *models.TradeSignal) error {
	if sig == nil {
		return fmt.Errorf("signal nil")
	}
	if sig.Ticker == "" {
		return fmt.Errorf("ticker empty")
	}
	if sig.Direction != models.DirectionLong && sig.Direction != models.DirectionShort {
		return fmt.Errorf("direction invalid: %q", sig.Direction)
	}
	if sig.EntryPrice <= 0 {
		return fmt.Errorf("entry price invalid")
	}
	if sig.Conviction < 0 || sig.Conviction > 100 {
		return fmt.Errorf("conviction out of range")
	}
	if sig.GeneratedAt.IsZero() {
		return fmt.Errorf("generated_at missing")
	}
	return nil
}

func (p *SignalIntake) allow(ticker string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[ticker]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(p.maxRPS) {
		p.lastSeen[ticker] = now
		return true
	}
	return false
}
