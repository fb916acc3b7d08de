package usecase

import (
	"context"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

// fakeMetrics counts recorded events by key.
type fakeMetrics struct {
	mu       sync.Mutex
	errors   map[string]int
	attempts map[string]int
	stages   []string
	rejects  []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, attempts: map[string]int{}}
}

func (m *fakeMetrics) RecordStage(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *fakeMetrics) RecordRejection(stage, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejects = append(m.rejects, stage+"/"+reason)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}
func (m *fakeMetrics) RecordDailyPnL(float64)        {}
func (m *fakeMetrics) RecordOpenPositions(int)       {}

func (m *fakeMetrics) RecordOrderAttempt(broker, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[broker+"/"+result]++
}

// fakeBroker fills every order at fillPrice unless failures or a terminal
// rejection are scripted.
type fakeBroker struct {
	mu        sync.Mutex
	name      string
	fillPrice float64
	fillQty   float64 // 0 means echo requested quantity
	failTimes int     // transient failures before succeeding
	rejectErr error   // terminal error returned on every call
	calls     int
	orders    map[string]*models.OrderResult
	ghostFill *models.OrderResult // overrides GetFill when set
	getErr    error
}

func newFakeBroker(name string, fillPrice float64) *fakeBroker {
	return &fakeBroker{name: name, fillPrice: fillPrice, orders: map[string]*models.OrderResult{}}
}

func (b *fakeBroker) Name() string { return b.name }

func (b *fakeBroker) Submit(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.rejectErr != nil {
		return nil, b.rejectErr
	}
	if b.failTimes > 0 {
		b.failTimes--
		return nil, context.DeadlineExceeded
	}
	qty := req.Quantity
	if b.fillQty > 0 {
		qty = b.fillQty
	}
	res := &models.OrderResult{
		OrderID:      "ord-" + req.Ticker,
		Broker:       b.name,
		Status:       models.OrderStatusFilled,
		FillPrice:    b.fillPrice,
		FillQuantity: qty,
		SubmittedAt:  time.Now(),
	}
	b.orders[res.OrderID] = res
	return res, nil
}

func (b *fakeBroker) Cancel(context.Context, string) error { return nil }

func (b *fakeBroker) GetFill(_ context.Context, orderID string) (*models.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	if b.ghostFill != nil {
		return b.ghostFill, nil
	}
	res, ok := b.orders[orderID]
	if !ok {
		return nil, domrepo.ErrOrderRejected
	}
	cp := *res
	return &cp, nil
}

func (b *fakeBroker) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// fakeAccounts serves a static account snapshot.
type fakeAccounts struct {
	state *models.AccountState
	err   error
}

func (a *fakeAccounts) Account(context.Context) (*models.AccountState, error) {
	return a.state, a.err
}

// fakeReturns serves fixed per-ticker return series.
type fakeReturns struct {
	series map[string][]float64
	err    error
}

func (r *fakeReturns) Returns(_ context.Context, ticker string, _ int) ([]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.series[ticker], nil
}

func (r *fakeReturns) ReturnsMatrix(_ context.Context, tickers []string, _ int) (map[string][]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string][]float64, len(tickers))
	for _, tk := range tickers {
		if s, ok := r.series[tk]; ok {
			out[tk] = s
		}
	}
	return out, nil
}

func (r *fakeReturns) Health(context.Context) error { return nil }
func (r *fakeReturns) Close() error                 { return nil }

// fakeAlerts records notifications by code.
type fakeAlerts struct {
	mu    sync.Mutex
	codes []string
}

func (a *fakeAlerts) Notify(_ context.Context, _ domrepo.AlertLevel, code, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codes = append(a.codes, code)
}

func (a *fakeAlerts) Close() error { return nil }

func (a *fakeAlerts) has(code string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.codes {
		if c == code {
			return true
		}
	}
	return false
}

// fakeAudit captures recorded pipeline results.
type fakeAudit struct {
	mu      sync.Mutex
	results []*models.PipelineResult
}

func (a *fakeAudit) Record(_ context.Context, res *models.PipelineResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, res)
	return nil
}

func (a *fakeAudit) Close() error { return nil }

func (a *fakeAudit) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

func testSignal(ticker string) *models.TradeSignal {
	return &models.TradeSignal{
		Ticker:      ticker,
		Direction:   models.DirectionLong,
		Timeframe:   "1d",
		Conviction:  60,
		EntryPrice:  100,
		StopPrice:   95,
		SignalType:  "technical",
		GeneratedAt: time.Now(),
	}
}
