package usecase

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
)

// ErrPositionNotFound is returned when no open position exists for a ticker.
var ErrPositionNotFound = errors.New("position not found")

// PositionLedger is the in-memory book of open positions. One entry per
// ticker; positions are created only after fill validation and removed only
// through Close.
type PositionLedger struct {
	mu        sync.RWMutex
	positions map[string]*models.Position
}

func NewPositionLedger() *PositionLedger {
	return &PositionLedger{positions: make(map[string]*models.Position)}
}

// Open records a validated fill as a new position. A second open on the same
// ticker is an error; scaling in is not supported.
func (l *PositionLedger) Open(sig *models.TradeSignal, inst *models.InstrumentDecision, res *models.OrderResult) (*models.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.positions[sig.Ticker]; exists {
		return nil, fmt.Errorf("position for %s already open", sig.Ticker)
	}
	p := &models.Position{
		Ticker:     sig.Ticker,
		Symbol:     inst.Symbol,
		Instrument: inst.Type,
		Direction:  sig.Direction,
		EntryPrice: res.FillPrice,
		Quantity:   res.FillQuantity,
		Stop:       sig.StopPrice,
		OpenedAt:   res.SubmittedAt,
	}
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now()
	}
	l.positions[sig.Ticker] = p
	return p, nil
}

// Close removes the position and returns its realized PnL at exitPrice.
func (l *PositionLedger) Close(ticker string, exitPrice float64) (*models.Position, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[ticker]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrPositionNotFound, ticker)
	}
	delete(l.positions, ticker)
	return p, p.RealizedPnL(exitPrice), nil
}

// UpdateStops adjusts the stop and target levels on an open position. A zero
// value leaves the corresponding level unchanged.
func (l *PositionLedger) UpdateStops(ticker string, stop, target float64) (*models.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, ticker)
	}
	if stop > 0 {
		p.Stop = stop
	}
	if target > 0 {
		p.Target = target
	}
	return p, nil
}

// Get returns the open position for ticker, if any.
func (l *PositionLedger) Get(ticker string) (*models.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[ticker]
	return p, ok
}

// List returns a snapshot of all open positions.
func (l *PositionLedger) List() []*models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	return out
}

// Count returns the number of open positions.
func (l *PositionLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// Exposure returns total open notional at entry prices.
func (l *PositionLedger) Exposure() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total float64
	for _, p := range l.positions {
		total += p.Notional()
	}
	return total
}
