package usecase

import (
	"fmt"

	"TradeCore/internal/domain/models"
)

// RouterConfig controls instrument selection.
type RouterConfig struct {
	Mode              string // equity, option, leveraged, or auto
	OptionsConviction float64
	ProxyConviction   float64
	Sectors           map[string]string // ticker -> sector
	Proxies           map[string]string // sector -> leveraged proxy symbol
}

// InstrumentRouter maps an approved trade intent to a concrete tradable
// instrument. It is a total function: there is always a decision, falling back
// to the plain equity ticker.
type InstrumentRouter struct {
	cfg RouterConfig
}

func NewInstrumentRouter(cfg RouterConfig) *InstrumentRouter {
	return &InstrumentRouter{cfg: cfg}
}

// Route chooses the instrument for a signal.
func (r *InstrumentRouter) Route(sig *models.TradeSignal) models.InstrumentDecision {
	switch r.cfg.Mode {
	case "equity":
		return equityDecision(sig.Ticker, "instrument mode restricted to equities")
	case "option":
		return models.InstrumentDecision{
			Type:   models.InstrumentOption,
			Symbol: sig.Ticker,
			Reason: "instrument mode restricted to options",
		}
	case "leveraged":
		if proxy, ok := r.proxyFor(sig.Ticker); ok {
			return models.InstrumentDecision{
				Type:   models.InstrumentLeveraged,
				Symbol: proxy,
				Reason: fmt.Sprintf("leveraged mode, sector proxy for %s", sig.Ticker),
			}
		}
		return equityDecision(sig.Ticker, "leveraged mode but no sector proxy, falling back to equity")
	}

	// auto: conviction-driven with proxy table and equity fallback.
	if sig.Conviction >= r.cfg.OptionsConviction {
		return models.InstrumentDecision{
			Type:   models.InstrumentOption,
			Symbol: sig.Ticker,
			Reason: fmt.Sprintf("conviction %.0f above options threshold %.0f", sig.Conviction, r.cfg.OptionsConviction),
		}
	}
	if sig.Conviction >= r.cfg.ProxyConviction {
		if proxy, ok := r.proxyFor(sig.Ticker); ok {
			return models.InstrumentDecision{
				Type:   models.InstrumentLeveraged,
				Symbol: proxy,
				Reason: fmt.Sprintf("conviction %.0f, sector proxy %s", sig.Conviction, proxy),
			}
		}
	}
	return equityDecision(sig.Ticker, "no options or proxy match, defaulting to underlying equity")
}

func (r *InstrumentRouter) proxyFor(ticker string) (string, bool) {
	sector, ok := r.cfg.Sectors[ticker]
	if !ok {
		return "", false
	}
	proxy, ok := r.cfg.Proxies[sector]
	return proxy, ok && proxy != ""
}

func equityDecision(ticker, reason string) models.InstrumentDecision {
	return models.InstrumentDecision{
		Type:   models.InstrumentEquity,
		Symbol: ticker,
		Reason: reason,
	}
}
