package broker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

func marketOrder(symbol string, side models.OrderSide, qty float64) *models.OrderRequest {
	return &models.OrderRequest{
		Ticker:     symbol,
		Symbol:     symbol,
		Instrument: models.InstrumentEquity,
		Side:       side,
		Quantity:   qty,
		OrderType:  models.OrderTypeMarket,
	}
}

func TestPaperFillsAtMarketPrice(t *testing.T) {
	p := NewPaper(10000, nil)
	p.UpdatePrice("AAPL", 100)

	res, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideBuy, 10))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status != models.OrderStatusFilled || res.FillPrice != 100 || res.FillQuantity != 10 {
		t.Fatalf("unexpected fill %+v", res)
	}
	if p.Cash() != 9000 {
		t.Fatalf("cash %v, want 9000", p.Cash())
	}
}

func TestPaperSlippageWorksAgainstOrder(t *testing.T) {
	p := NewPaper(100000, nil, WithSlippageBps(10)) // 0.1%
	p.UpdatePrice("AAPL", 100)

	buy, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideBuy, 1))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if math.Abs(buy.FillPrice-100.1) > 1e-9 {
		t.Fatalf("buy fill %v, want 100.1", buy.FillPrice)
	}

	sell, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideSell, 1))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if math.Abs(sell.FillPrice-99.9) > 1e-9 {
		t.Fatalf("sell fill %v, want 99.9", sell.FillPrice)
	}
}

func TestPaperRejectsWithoutPrice(t *testing.T) {
	p := NewPaper(10000, nil)

	_, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideBuy, 1))
	if !errors.Is(err, domrepo.ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected for unpriced symbol, got %v", err)
	}
}

func TestPaperRejectsInsufficientBuyingPower(t *testing.T) {
	p := NewPaper(500, nil)
	p.UpdatePrice("AAPL", 100)

	_, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideBuy, 10))
	if !errors.Is(err, domrepo.ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}
	if p.Cash() != 500 {
		t.Fatalf("rejected order must not move cash, have %v", p.Cash())
	}
}

func TestPaperOptionContractCost(t *testing.T) {
	p := NewPaper(10000, nil)
	p.UpdatePrice("AAPL", 5)

	req := marketOrder("AAPL", models.OrderSideBuy, 2)
	req.Instrument = models.InstrumentOption
	if _, err := p.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Cash() != 9000 { // 2 contracts * 5 * 100
		t.Fatalf("cash %v, want 9000", p.Cash())
	}
}

func TestPaperGetFillReturnsCopy(t *testing.T) {
	p := NewPaper(10000, nil)
	p.UpdatePrice("AAPL", 100)

	res, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideBuy, 1))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got, err := p.GetFill(context.Background(), res.OrderID)
	if err != nil {
		t.Fatalf("GetFill: %v", err)
	}
	if got.FillPrice != res.FillPrice || got.FillQuantity != res.FillQuantity {
		t.Fatalf("fill mismatch: %+v vs %+v", got, res)
	}
	got.FillPrice = 1
	again, err := p.GetFill(context.Background(), res.OrderID)
	if err != nil {
		t.Fatalf("GetFill: %v", err)
	}
	if again.FillPrice == 1 {
		t.Fatalf("GetFill must return a copy")
	}
}

func TestPaperGetFillUnknownOrder(t *testing.T) {
	p := NewPaper(10000, nil)
	if _, err := p.GetFill(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown order")
	}
}

func TestPaperCancelFilledOrder(t *testing.T) {
	p := NewPaper(10000, nil)
	p.UpdatePrice("AAPL", 100)

	res, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideBuy, 1))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := p.Cancel(context.Background(), res.OrderID); err == nil {
		t.Fatalf("cancelling a filled order must fail")
	}
}

func TestPaperClockAndName(t *testing.T) {
	ts := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	p := NewPaper(10000, nil, WithName("alpaca"), WithClock(func() time.Time { return ts }))
	p.UpdatePrice("AAPL", 100)

	if p.Name() != "alpaca" {
		t.Fatalf("name %q", p.Name())
	}
	res, err := p.Submit(context.Background(), marketOrder("AAPL", models.OrderSideBuy, 1))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.SubmittedAt.Equal(ts) || res.Broker != "alpaca" {
		t.Fatalf("unexpected result %+v", res)
	}
}
