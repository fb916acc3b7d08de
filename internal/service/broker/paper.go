package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	applogger "TradeCore/pkg/logger"
)

// Paper simulates order execution against a virtual cash balance. Fills are
// immediate at the requested reference price plus configured slippage. Used
// for strategy validation and as the default adapter in paper mode.
type Paper struct {
	mu       sync.Mutex
	name     string
	cash     float64
	starting float64
	slipBps  float64
	orders   map[string]*models.OrderResult
	prices   map[string]float64
	l        *applogger.Logger
	clock    func() time.Time
}

// PaperOption configures the paper broker.
type PaperOption func(*Paper)

// WithSlippageBps sets simulated slippage in basis points of fill price.
func WithSlippageBps(bps float64) PaperOption {
	return func(p *Paper) { p.slipBps = bps }
}

// WithName overrides the adapter name (to stand in for a real broker in tests).
func WithName(name string) PaperOption {
	return func(p *Paper) { p.name = name }
}

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) PaperOption {
	return func(p *Paper) { p.clock = clock }
}

// NewPaper creates a paper broker with the given starting cash.
func NewPaper(startingCash float64, l *applogger.Logger, opts ...PaperOption) *Paper {
	p := &Paper{
		name:     "paper",
		cash:     startingCash,
		starting: startingCash,
		orders:   make(map[string]*models.OrderResult),
		prices:   make(map[string]float64),
		l:        l,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Paper) Name() string { return p.name }

// UpdatePrice records the current market price for a symbol. Market orders
// fill at this price when available, falling back to the limit price.
func (p *Paper) UpdatePrice(symbol string, price float64) {
	p.mu.Lock()
	p.prices[symbol] = price
	p.mu.Unlock()
}

// Submit fills the order immediately against the virtual balance. Insufficient
// cash is a terminal rejection, matching real broker buying-power errors.
func (p *Paper) Submit(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price := req.LimitPrice
	if mkt, ok := p.prices[req.Symbol]; ok && req.OrderType == models.OrderTypeMarket {
		price = mkt
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: no price for %s", domrepo.ErrOrderRejected, req.Symbol)
	}

	// Slippage works against the order: buys fill higher, sells lower.
	slip := price * p.slipBps / 10000
	fillPrice := price + slip
	if req.Side == models.OrderSideSell {
		fillPrice = price - slip
	}

	mult := 1.0
	if req.Instrument == models.InstrumentOption {
		mult = 100
	}
	cost := fillPrice * req.Quantity * mult
	if req.Side == models.OrderSideBuy && cost > p.cash {
		return nil, fmt.Errorf("%w: insufficient buying power: need %.2f, have %.2f",
			domrepo.ErrOrderRejected, cost, p.cash)
	}

	if req.Side == models.OrderSideBuy {
		p.cash -= cost
	} else {
		p.cash += cost
	}

	res := &models.OrderResult{
		OrderID:      uuid.NewString(),
		Broker:       p.name,
		Status:       models.OrderStatusFilled,
		FillPrice:    fillPrice,
		FillQuantity: req.Quantity,
		SubmittedAt:  p.clock(),
	}
	p.orders[res.OrderID] = res

	if p.l != nil {
		p.l.Info("paper fill",
			applogger.String("order_id", res.OrderID),
			applogger.String("symbol", req.Symbol),
			applogger.String("side", string(req.Side)),
			applogger.Float64("quantity", req.Quantity),
			applogger.Float64("fill_price", fillPrice),
		)
	}
	return res, nil
}

// Cancel marks a pending order cancelled. Paper fills are immediate, so this
// only ever reports an error for filled or unknown orders.
func (p *Paper) Cancel(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if order.Status == models.OrderStatusFilled {
		return fmt.Errorf("cannot cancel filled order: %s", orderID)
	}
	order.Status = models.OrderStatusCancelled
	return nil
}

// GetFill returns the recorded fill for orderID.
func (p *Paper) GetFill(ctx context.Context, orderID string) (*models.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	cp := *order
	return &cp, nil
}

// Cash returns the current virtual cash balance.
func (p *Paper) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// StartingCash returns the initial balance the broker was created with.
func (p *Paper) StartingCash() float64 { return p.starting }

var _ domrepo.BrokerAdapter = (*Paper)(nil)
