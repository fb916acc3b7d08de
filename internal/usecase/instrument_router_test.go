package usecase

import (
	"testing"

	"TradeCore/internal/domain/models"
)

func routerCfg(mode string) RouterConfig {
	return RouterConfig{
		Mode:              mode,
		OptionsConviction: 85,
		ProxyConviction:   70,
		Sectors:           map[string]string{"NVDA": "semis"},
		Proxies:           map[string]string{"semis": "SOXL"},
	}
}

func TestRouteEquityMode(t *testing.T) {
	r := NewInstrumentRouter(routerCfg("equity"))
	sig := testSignal("NVDA")
	sig.Conviction = 95

	d := r.Route(sig)
	if d.Type != models.InstrumentEquity || d.Symbol != "NVDA" {
		t.Fatalf("equity mode must ignore conviction: %+v", d)
	}
}

func TestRouteOptionMode(t *testing.T) {
	r := NewInstrumentRouter(routerCfg("option"))
	d := r.Route(testSignal("AAPL"))
	if d.Type != models.InstrumentOption {
		t.Fatalf("expected option, got %+v", d)
	}
}

func TestRouteLeveragedMode(t *testing.T) {
	r := NewInstrumentRouter(routerCfg("leveraged"))

	d := r.Route(testSignal("NVDA"))
	if d.Type != models.InstrumentLeveraged || d.Symbol != "SOXL" {
		t.Fatalf("expected sector proxy SOXL, got %+v", d)
	}

	// No sector mapping falls back to the plain equity.
	d = r.Route(testSignal("AAPL"))
	if d.Type != models.InstrumentEquity || d.Symbol != "AAPL" {
		t.Fatalf("expected equity fallback, got %+v", d)
	}
}

func TestRouteAutoByConviction(t *testing.T) {
	r := NewInstrumentRouter(routerCfg("auto"))

	high := testSignal("NVDA")
	high.Conviction = 90
	if d := r.Route(high); d.Type != models.InstrumentOption {
		t.Fatalf("conviction 90 must route to options: %+v", d)
	}

	mid := testSignal("NVDA")
	mid.Conviction = 75
	if d := r.Route(mid); d.Type != models.InstrumentLeveraged || d.Symbol != "SOXL" {
		t.Fatalf("conviction 75 must route to sector proxy: %+v", d)
	}

	low := testSignal("NVDA")
	low.Conviction = 50
	if d := r.Route(low); d.Type != models.InstrumentEquity || d.Symbol != "NVDA" {
		t.Fatalf("conviction 50 must route to equity: %+v", d)
	}

	// Mid conviction without a proxy mapping also falls to equity.
	noProxy := testSignal("AAPL")
	noProxy.Conviction = 75
	if d := r.Route(noProxy); d.Type != models.InstrumentEquity {
		t.Fatalf("unmapped ticker must fall back to equity: %+v", d)
	}
}
