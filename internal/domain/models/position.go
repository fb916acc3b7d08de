package models

import "time"

// Position is an open holding tracked by the position ledger. Created only
// after fill validation; mutated only through the ledger.
type Position struct {
	Ticker     string         `json:"ticker"`
	Symbol     string         `json:"symbol"`
	Instrument InstrumentType `json:"instrument"`
	Direction  Direction      `json:"direction"`
	EntryPrice float64        `json:"entry_price"`
	Quantity   float64        `json:"quantity"`
	Stop       float64        `json:"stop"`
	Target     float64        `json:"target,omitempty"`
	OpenedAt   time.Time      `json:"opened_at"`
}

// Notional returns the current dollar exposure at entry price.
func (p *Position) Notional() float64 {
	mult := 1.0
	if p.Instrument == InstrumentOption {
		mult = 100
	}
	return p.EntryPrice * p.Quantity * mult
}

// RealizedPnL computes the realized profit for an exit at the given price.
func (p *Position) RealizedPnL(exitPrice float64) float64 {
	mult := 1.0
	if p.Instrument == InstrumentOption {
		mult = 100
	}
	if p.Direction == DirectionShort {
		return (p.EntryPrice - exitPrice) * p.Quantity * mult
	}
	return (exitPrice - p.EntryPrice) * p.Quantity * mult
}
