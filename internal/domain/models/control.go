package models

import "time"

// CircuitBreakerStatus tracks broker/infra health, distinct from the kill switch.
type CircuitBreakerStatus string

const (
	CircuitClosed   CircuitBreakerStatus = "closed"
	CircuitOpen     CircuitBreakerStatus = "open"
	CircuitHalfOpen CircuitBreakerStatus = "half_open"
)

// ControlState is the durable safety state of the execution core.
// The JSON layout is the on-disk format; it must stay stable across releases.
type ControlState struct {
	KillSwitchActive     bool                 `json:"kill_switch_active"`
	KillSwitchReason     string               `json:"kill_switch_reason,omitempty"`
	DailyPnL             float64              `json:"daily_pnl"`
	DailyTradeCount      int                  `json:"daily_trade_count"`
	DailyDate            string               `json:"daily_date"` // YYYY-MM-DD in the trading calendar
	CircuitBreakerStatus CircuitBreakerStatus `json:"circuit_breaker_status"`
	CircuitBreakerReason string               `json:"circuit_breaker_reason,omitempty"`
	TotalRealizedPnL     float64              `json:"total_realized_pnl"`
	LastSignalTime       *time.Time           `json:"last_signal_time,omitempty"`
	LastTradeTime        *time.Time           `json:"last_trade_time,omitempty"`
}
