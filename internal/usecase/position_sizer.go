package usecase

import (
	"fmt"
	"math"

	"TradeCore/internal/domain/models"
)

// SizerConfig controls order quantity computation.
type SizerConfig struct {
	RiskBudgetPct      float64 // of equity, per trade
	ContractMultiplier float64 // shares per option/leveraged contract
}

// PositionSizer computes order quantity from the approved risk budget and
// instrument economics.
type PositionSizer struct {
	cfg SizerConfig
}

func NewPositionSizer(cfg SizerConfig) *PositionSizer {
	return &PositionSizer{cfg: cfg}
}

// Size floors min(riskBudget, assessment cap) / effective price to a valid lot:
// whole shares for equities, whole contracts otherwise.
func (s *PositionSizer) Size(
	sig *models.TradeSignal,
	assessment *models.RiskAssessment,
	instrument *models.InstrumentDecision,
	account *models.AccountState,
) models.SizingDecision {
	budget := account.Equity * s.cfg.RiskBudgetPct / 100
	if assessment.MaxPositionSize < budget {
		budget = assessment.MaxPositionSize
	}
	if budget > account.BuyingPower {
		budget = account.BuyingPower
	}

	effectivePrice := sig.EntryPrice
	if instrument.Type == models.InstrumentOption || instrument.Type == models.InstrumentLeveraged {
		effectivePrice = sig.EntryPrice * s.cfg.ContractMultiplier
	}
	if effectivePrice <= 0 {
		return models.SizingDecision{
			OK:      false,
			Reason:  models.ReasonInsufficientBudget,
			Message: fmt.Sprintf("non-positive effective price for %s", instrument.Symbol),
		}
	}

	qty := math.Floor(budget / effectivePrice)
	if qty < 1 {
		return models.SizingDecision{
			OK:     false,
			Reason: models.ReasonInsufficientBudget,
			Message: fmt.Sprintf("budget %.2f buys zero lots of %s at effective price %.2f",
				budget, instrument.Symbol, effectivePrice),
		}
	}
	return models.SizingDecision{OK: true, Quantity: qty}
}
