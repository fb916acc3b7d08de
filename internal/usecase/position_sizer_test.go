package usecase

import (
	"testing"

	"TradeCore/internal/domain/models"
)

func sizerAccount() *models.AccountState {
	return &models.AccountState{Equity: 100000, Cash: 100000, BuyingPower: 100000, StartingEquity: 100000}
}

func TestSizeUsesRiskBudget(t *testing.T) {
	s := NewPositionSizer(SizerConfig{RiskBudgetPct: 5, ContractMultiplier: 100})
	sig := testSignal("AAPL") // entry 100
	assessment := &models.RiskAssessment{Approved: true, MaxPositionSize: 50000}
	inst := &models.InstrumentDecision{Type: models.InstrumentEquity, Symbol: "AAPL"}

	d := s.Size(sig, assessment, inst, sizerAccount())
	if !d.OK {
		t.Fatalf("sizing rejected: %+v", d)
	}
	// 5% of 100k = 5000 budget, 100/share -> 50 shares.
	if d.Quantity != 50 {
		t.Fatalf("quantity %v, want 50", d.Quantity)
	}
}

func TestSizeBoundedByAssessmentCap(t *testing.T) {
	s := NewPositionSizer(SizerConfig{RiskBudgetPct: 5, ContractMultiplier: 100})
	assessment := &models.RiskAssessment{Approved: true, MaxPositionSize: 1000}
	inst := &models.InstrumentDecision{Type: models.InstrumentEquity, Symbol: "AAPL"}

	d := s.Size(testSignal("AAPL"), assessment, inst, sizerAccount())
	if !d.OK || d.Quantity != 10 {
		t.Fatalf("assessment cap must bind: %+v", d)
	}
}

func TestSizeBoundedByBuyingPower(t *testing.T) {
	s := NewPositionSizer(SizerConfig{RiskBudgetPct: 5, ContractMultiplier: 100})
	assessment := &models.RiskAssessment{Approved: true, MaxPositionSize: 50000}
	inst := &models.InstrumentDecision{Type: models.InstrumentEquity, Symbol: "AAPL"}
	account := sizerAccount()
	account.BuyingPower = 350

	d := s.Size(testSignal("AAPL"), assessment, inst, account)
	if !d.OK || d.Quantity != 3 {
		t.Fatalf("buying power must bind: %+v", d)
	}
}

func TestSizeContractMultiplier(t *testing.T) {
	s := NewPositionSizer(SizerConfig{RiskBudgetPct: 5, ContractMultiplier: 100})
	assessment := &models.RiskAssessment{Approved: true, MaxPositionSize: 50000}
	inst := &models.InstrumentDecision{Type: models.InstrumentOption, Symbol: "AAPL"}

	// Effective price 100 * 100 = 10000 per contract, budget 5000 -> zero lots.
	d := s.Size(testSignal("AAPL"), assessment, inst, sizerAccount())
	if d.OK || d.Reason != models.ReasonInsufficientBudget {
		t.Fatalf("expected insufficient_budget for one contract over budget: %+v", d)
	}

	sig := testSignal("AAPL")
	sig.EntryPrice = 10 // 1000 per contract, 5000 budget -> 5 contracts
	d = s.Size(sig, assessment, inst, sizerAccount())
	if !d.OK || d.Quantity != 5 {
		t.Fatalf("contract sizing wrong: %+v", d)
	}
}

func TestSizeNonPositivePrice(t *testing.T) {
	s := NewPositionSizer(SizerConfig{RiskBudgetPct: 5, ContractMultiplier: 100})
	assessment := &models.RiskAssessment{Approved: true, MaxPositionSize: 50000}
	inst := &models.InstrumentDecision{Type: models.InstrumentEquity, Symbol: "AAPL"}
	sig := testSignal("AAPL")
	sig.EntryPrice = 0

	d := s.Size(sig, assessment, inst, sizerAccount())
	if d.OK || d.Reason != models.ReasonInsufficientBudget {
		t.Fatalf("expected rejection for zero price: %+v", d)
	}
}
