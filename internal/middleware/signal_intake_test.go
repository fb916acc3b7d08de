package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TradeCore/internal/domain/models"
)

type countingProc struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingProc) Process(context.Context, *models.TradeSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *countingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newNopMetrics() *nopMetrics { return &nopMetrics{errors: map[string]int{}} }

func (m *nopMetrics) RecordStage(string)                {}
func (m *nopMetrics) RecordRejection(string, string)    {}
func (m *nopMetrics) RecordLatency(string, float64)     {}
func (m *nopMetrics) RecordOrderAttempt(string, string) {}
func (m *nopMetrics) RecordDailyPnL(float64)            {}
func (m *nopMetrics) RecordOpenPositions(int)           {}

func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *nopMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func validIntakeSignal(ticker string) *models.TradeSignal {
	return &models.TradeSignal{
		Ticker:      ticker,
		Direction:   models.DirectionLong,
		Conviction:  50,
		EntryPrice:  100,
		GeneratedAt: time.Now(),
	}
}

func TestIntakeForwardsValidSignal(t *testing.T) {
	proc := &countingProc{}
	in := NewSignalIntake(proc, newNopMetrics())

	if err := in.Process(context.Background(), validIntakeSignal("AAPL")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("downstream calls %d, want 1", proc.count())
	}
}

func TestIntakeRejectsInvalidSignals(t *testing.T) {
	proc := &countingProc{}
	m := newNopMetrics()
	in := NewSignalIntake(proc, m)

	noTicker := validIntakeSignal("")
	badDirection := validIntakeSignal("AAPL")
	badDirection.Direction = "sideways"
	badPrice := validIntakeSignal("AAPL")
	badPrice.EntryPrice = 0
	badConviction := validIntakeSignal("AAPL")
	badConviction.Conviction = 150
	noTimestamp := validIntakeSignal("AAPL")
	noTimestamp.GeneratedAt = time.Time{}

	bad := []*models.TradeSignal{nil, noTicker, badDirection, badPrice, badConviction, noTimestamp}
	for i, sig := range bad {
		if err := in.Process(context.Background(), sig); err == nil {
			t.Fatalf("case %d: invalid signal accepted", i)
		}
	}
	if proc.count() != 0 {
		t.Fatalf("invalid signals must not reach downstream, got %d", proc.count())
	}
	if m.errorCount("intake_validate") != len(bad) {
		t.Fatalf("validate errors %d, want %d", m.errorCount("intake_validate"), len(bad))
	}
}

func TestIntakeThrottlesPerTicker(t *testing.T) {
	proc := &countingProc{}
	m := newNopMetrics()
	in := NewSignalIntake(proc, m, WithMaxRPS(1))

	if err := in.Process(context.Background(), validIntakeSignal("AAPL")); err != nil {
		t.Fatalf("first: %v", err)
	}
	// Second signal for the same ticker inside the window is dropped silently.
	if err := in.Process(context.Background(), validIntakeSignal("AAPL")); err != nil {
		t.Fatalf("throttled drop must not error: %v", err)
	}
	// A different ticker is unaffected.
	if err := in.Process(context.Background(), validIntakeSignal("MSFT")); err != nil {
		t.Fatalf("other ticker: %v", err)
	}

	if proc.count() != 2 {
		t.Fatalf("downstream calls %d, want 2", proc.count())
	}
	if m.errorCount("intake_throttle") != 1 {
		t.Fatalf("throttle drops %d, want 1", m.errorCount("intake_throttle"))
	}
}

func TestIntakeBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{err: errors.New("downstream down")}
	m := newNopMetrics()
	in := NewSignalIntake(proc, m, WithBufferSize(4))

	err := in.Process(context.Background(), validIntakeSignal("AAPL"))
	if err == nil {
		t.Fatalf("downstream failure must surface")
	}
	if m.errorCount("intake_process") != 1 {
		t.Fatalf("process errors %d, want 1", m.errorCount("intake_process"))
	}
	if len(in.bufCh) != 1 {
		t.Fatalf("failed signal must be buffered, have %d", len(in.bufCh))
	}
}

func TestIntakeFlushDrainsBuffer(t *testing.T) {
	proc := &countingProc{err: errors.New("down")}
	in := NewSignalIntake(proc, newNopMetrics(), WithBufferSize(4))
	in.Start(context.Background())
	defer in.Stop()

	if err := in.Process(context.Background(), validIntakeSignal("AAPL")); err == nil {
		t.Fatalf("expected downstream error")
	}

	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(in.bufCh) == 0 && proc.count() >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("buffer not flushed: %d queued, %d processed", len(in.bufCh), proc.count())
}

func TestIntakeRestartRelaunchesFlusher(t *testing.T) {
	proc := &countingProc{err: errors.New("down")}
	in := NewSignalIntake(proc, newNopMetrics(), WithBufferSize(4))

	in.Start(context.Background())
	in.Stop()
	in.Start(context.Background())
	defer in.Stop()

	if err := in.Process(context.Background(), validIntakeSignal("AAPL")); err == nil {
		t.Fatalf("expected downstream error")
	}

	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(in.bufCh) == 0 && proc.count() >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("flusher not running after restart: %d queued, %d processed", len(in.bufCh), proc.count())
}
