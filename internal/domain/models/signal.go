package models

import (
	"fmt"
	"time"
)

// Direction of a trade signal.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TradeSignal is an immutable trade intent produced by an external signal source.
type TradeSignal struct {
	Ticker      string    `json:"ticker"`
	Direction   Direction `json:"direction"`
	Timeframe   string    `json:"timeframe"`
	Conviction  float64   `json:"conviction"` // 0..100
	EntryPrice  float64   `json:"entry_price"`
	StopPrice   float64   `json:"stop_price"`
	SignalType  string    `json:"signal_type"` // e.g. "technical", "ml", "sentiment"
	GeneratedAt time.Time `json:"generated_at"`
	DedupKey    string    `json:"dedup_key,omitempty"`
}

// Key returns the deduplication key, deriving one when the producer left it empty.
func (s *TradeSignal) Key() string {
	if s.DedupKey != "" {
		return s.DedupKey
	}
	return fmt.Sprintf("%s|%s|%s", s.Ticker, s.Direction, s.Timeframe)
}

// GuardDecision is the outcome of the signal guard checks.
type GuardDecision struct {
	OK      bool         `json:"ok"`
	Reason  RejectReason `json:"reason,omitempty"`
	Message string       `json:"message,omitempty"`
}
