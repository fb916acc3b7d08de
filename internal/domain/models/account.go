package models

// AccountState is a per-cycle snapshot of the brokerage account.
type AccountState struct {
	Equity         float64 `json:"equity"`
	Cash           float64 `json:"cash"`
	BuyingPower    float64 `json:"buying_power"`
	StartingEquity float64 `json:"starting_equity"` // equity at start of trading day
}

// Regime classifies market conditions for risk scaling.
type Regime string

const (
	RegimeBull     Regime = "bull"
	RegimeSideways Regime = "sideways"
	RegimeBear     Regime = "bear"
	RegimeCrisis   Regime = "crisis"
)

// PositionCountMultiplier scales the maximum open position count for a regime.
func (r Regime) PositionCountMultiplier() float64 {
	switch r {
	case RegimeBull:
		return 1.0
	case RegimeSideways:
		return 0.75
	case RegimeBear:
		return 0.5
	case RegimeCrisis:
		return 0.25
	default:
		return 0.75
	}
}

// SizeMultiplier scales the VaR-derived position size cap for a regime.
func (r Regime) SizeMultiplier() float64 {
	switch r {
	case RegimeBull:
		return 1.0
	case RegimeSideways:
		return 0.75
	case RegimeBear:
		return 0.5
	case RegimeCrisis:
		return 0.25
	default:
		return 0.75
	}
}
