package usecase

import (
	"context"
	"math"
	"testing"

	"TradeCore/internal/domain/models"
	"TradeCore/pkg/util"
)

func riskCfg() RiskConfig {
	return RiskConfig{
		DailyLossLimitPct:     3,
		MaxPositions:          4,
		ConcentrationLimitPct: 20,
		CorrelationThreshold:  0.8,
		MaxClusterSize:        1,
		VarBudgetPct:          2,
		VarConfidenceZ:        1.65,
		ReturnsLookbackDays:   60,
	}
}

func assessInput(sig *models.TradeSignal) AssessmentInput {
	return AssessmentInput{
		Signal:  sig,
		Account: &models.AccountState{Equity: 100000, Cash: 100000, BuyingPower: 100000, StartingEquity: 100000},
		Control: models.ControlState{CircuitBreakerStatus: models.CircuitClosed},
		Regime:  models.RegimeBull,
	}
}

func TestAssessKillSwitchRejectsFirst(t *testing.T) {
	a := NewRiskAssessor(riskCfg(), nil, nil)
	in := assessInput(testSignal("AAPL"))
	in.Control.KillSwitchActive = true
	in.Control.KillSwitchReason = "manual"

	res := a.Assess(context.Background(), in)
	if res.Approved {
		t.Fatalf("approved despite active kill switch")
	}
	if res.RejectReason != models.ReasonKillSwitchActive {
		t.Fatalf("expected kill_switch_active, got %s", res.RejectReason)
	}
	if len(res.Checks) != 1 {
		t.Fatalf("kill switch must short-circuit, ran %d checks", len(res.Checks))
	}
}

func TestAssessCircuitBreakerOpen(t *testing.T) {
	a := NewRiskAssessor(riskCfg(), nil, nil)
	in := assessInput(testSignal("AAPL"))
	in.Control.CircuitBreakerStatus = models.CircuitOpen

	res := a.Assess(context.Background(), in)
	if res.Approved || res.RejectReason != models.ReasonCircuitBreakerOpen {
		t.Fatalf("expected circuit_breaker_open, got %+v", res)
	}
}

func TestAssessDailyLossRequestsKillSwitch(t *testing.T) {
	a := NewRiskAssessor(riskCfg(), nil, nil)
	in := assessInput(testSignal("AAPL"))
	in.Control.DailyPnL = -3000 // exactly at 3% of 100k starting equity

	res := a.Assess(context.Background(), in)
	if res.Approved || res.RejectReason != models.ReasonDailyLossLimit {
		t.Fatalf("expected daily_loss_limit, got %+v", res)
	}
	if !res.KillSwitchRequested {
		t.Fatalf("daily loss breach must request kill switch")
	}
}

func TestAssessRegimeAdjustedPositionCount(t *testing.T) {
	a := NewRiskAssessor(riskCfg(), nil, nil)
	in := assessInput(testSignal("AAPL"))
	in.Regime = models.RegimeCrisis // 4 * 0.25 = 1 allowed position
	in.Positions = []*models.Position{
		{Ticker: "MSFT", EntryPrice: 100, Quantity: 10, Direction: models.DirectionLong, Instrument: models.InstrumentEquity},
	}

	res := a.Assess(context.Background(), in)
	if res.Approved || res.RejectReason != models.ReasonMaxPositions {
		t.Fatalf("expected max_positions in crisis regime, got %+v", res)
	}

	in.Regime = models.RegimeBull
	res = a.Assess(context.Background(), in)
	if !res.Approved {
		t.Fatalf("one position under bull regime cap of 4 must pass: %+v", res)
	}
}

func TestAssessConcentrationLimit(t *testing.T) {
	a := NewRiskAssessor(riskCfg(), nil, nil)
	in := assessInput(testSignal("AAPL"))
	// 200 shares at 100 = 20k notional, exactly the 20% cap of 100k equity.
	in.Positions = []*models.Position{
		{Ticker: "AAPL", EntryPrice: 100, Quantity: 200, Direction: models.DirectionLong, Instrument: models.InstrumentEquity},
	}

	res := a.Assess(context.Background(), in)
	if res.Approved || res.RejectReason != models.ReasonConcentrationLimit {
		t.Fatalf("expected concentration_limit, got %+v", res)
	}
}

func TestAssessCorrelationCluster(t *testing.T) {
	series := []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.01}
	rp := &fakeReturns{series: map[string][]float64{
		"AAPL": series,
		"MSFT": series, // perfectly correlated with the candidate
	}}
	a := NewRiskAssessor(riskCfg(), rp, nil)
	in := assessInput(testSignal("AAPL"))
	in.Positions = []*models.Position{
		{Ticker: "MSFT", EntryPrice: 50, Quantity: 10, Direction: models.DirectionLong, Instrument: models.InstrumentEquity},
	}

	res := a.Assess(context.Background(), in)
	if res.Approved || res.RejectReason != models.ReasonCorrelationCluster {
		t.Fatalf("expected correlation_cluster, got %+v", res)
	}
}

func TestAssessClusterCheckPassesWhenReturnsDown(t *testing.T) {
	rp := &fakeReturns{err: context.DeadlineExceeded}
	a := NewRiskAssessor(riskCfg(), rp, nil)
	in := assessInput(testSignal("AAPL"))
	in.Positions = []*models.Position{
		{Ticker: "MSFT", EntryPrice: 50, Quantity: 10, Direction: models.DirectionLong, Instrument: models.InstrumentEquity},
	}

	res := a.Assess(context.Background(), in)
	if !res.Approved {
		t.Fatalf("returns outage must not halt trading: %+v", res)
	}
}

func TestAssessVarSizeCap(t *testing.T) {
	series := []float64{0.02, -0.02, 0.02, -0.02, 0.02, -0.02}
	rp := &fakeReturns{series: map[string][]float64{"AAPL": series}}
	cfg := riskCfg()
	cfg.VarBudgetPct = 0.5 // tight budget so VaR, not concentration, binds
	a := NewRiskAssessor(cfg, rp, nil)
	in := assessInput(testSignal("AAPL"))

	res := a.Assess(context.Background(), in)
	if !res.Approved {
		t.Fatalf("expected approval: %+v", res)
	}

	sigma := util.StdDev(series)
	want := in.Account.Equity * cfg.VarBudgetPct / 100 / (cfg.VarConfidenceZ * sigma)
	if limit := in.Account.Equity * cfg.ConcentrationLimitPct / 100; want >= limit {
		t.Fatalf("test setup wrong: VaR cap %v must bind below concentration cap %v", want, limit)
	}
	if math.Abs(res.MaxPositionSize-want) > 1e-6 {
		t.Fatalf("max position size %v, want %v", res.MaxPositionSize, want)
	}
}

// recordingReturns remembers the context handed to Returns.
type recordingReturns struct {
	fakeReturns
	gotCtx context.Context
}

func (r *recordingReturns) Returns(ctx context.Context, ticker string, days int) ([]float64, error) {
	r.gotCtx = ctx
	return r.fakeReturns.Returns(ctx, ticker, days)
}

func TestAssessVarFallbackFetchHonorsCancellation(t *testing.T) {
	rp := &recordingReturns{fakeReturns: fakeReturns{series: map[string][]float64{
		"AAPL": {0.01, -0.01, 0.02},
	}}}
	a := NewRiskAssessor(riskCfg(), rp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Assess(ctx, assessInput(testSignal("AAPL")))

	if rp.gotCtx == nil {
		t.Fatalf("fallback series fetch never ran")
	}
	if rp.gotCtx.Err() == nil {
		t.Fatalf("fallback series fetch did not see the request context")
	}
}

func TestAssessNilReturnsFallsBackToConcentrationCap(t *testing.T) {
	cfg := riskCfg()
	a := NewRiskAssessor(cfg, nil, nil)
	in := assessInput(testSignal("AAPL"))

	res := a.Assess(context.Background(), in)
	if !res.Approved {
		t.Fatalf("expected approval: %+v", res)
	}
	want := in.Account.Equity * cfg.ConcentrationLimitPct / 100 // bull multiplier is 1.0
	if math.Abs(res.MaxPositionSize-want) > 1e-6 {
		t.Fatalf("fallback cap %v, want %v", res.MaxPositionSize, want)
	}
}

func TestAssessSizeScaledByRegime(t *testing.T) {
	cfg := riskCfg()
	a := NewRiskAssessor(cfg, nil, nil)
	in := assessInput(testSignal("AAPL"))
	in.Regime = models.RegimeBear // 0.5 size multiplier

	res := a.Assess(context.Background(), in)
	if !res.Approved {
		t.Fatalf("expected approval: %+v", res)
	}
	want := in.Account.Equity * cfg.ConcentrationLimitPct / 100 * 0.5
	if math.Abs(res.MaxPositionSize-want) > 1e-6 {
		t.Fatalf("bear regime cap %v, want %v", res.MaxPositionSize, want)
	}
}
