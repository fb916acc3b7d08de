package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"TradeCore/internal/controlstate"
	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

type orchHarness struct {
	orch     *Orchestrator
	store    *controlstate.Store
	broker   *fakeBroker
	alerts   *fakeAlerts
	audit    *fakeAudit
	metrics  *fakeMetrics
	accounts *fakeAccounts
}

func newOrchHarness(t *testing.T) *orchHarness {
	t.Helper()

	store, err := controlstate.New(filepath.Join(t.TempDir(), "state.json"), time.UTC)
	if err != nil {
		t.Fatalf("control store: %v", err)
	}

	b := newFakeBroker("paper", 100)
	m := newFakeMetrics()
	alerts := &fakeAlerts{}
	audit := &fakeAudit{}
	accounts := &fakeAccounts{state: &models.AccountState{
		Equity: 100000, Cash: 100000, BuyingPower: 100000, StartingEquity: 100000,
	}}

	submitter := NewOrderSubmitter(b, nil, submitterCfg(), m, nil)
	submitter.SetSleep(func(time.Duration) {})

	orch := NewOrchestrator(OrchestratorDeps{
		Control:       store,
		Guard:         NewSignalGuard(5*time.Minute, 30*time.Minute, 100),
		Assessor:      NewRiskAssessor(riskCfg(), nil, nil),
		Router:        NewInstrumentRouter(routerCfg("equity")),
		Sizer:         NewPositionSizer(SizerConfig{RiskBudgetPct: 5, ContractMultiplier: 100}),
		Submitter:     submitter,
		Fills:         NewFillValidator(fillCfg()),
		Ledger:        NewPositionLedger(),
		Accounts:      accounts,
		Audit:         audit,
		Alerts:        alerts,
		Metrics:       m,
		Brokers:       []domrepo.BrokerAdapter{b},
		DefaultRegime: models.RegimeBull,
		AutoKillPct:   5,
		LookbackDays:  60,
		Mode:          "paper",
	})
	t.Cleanup(orch.Close)

	return &orchHarness{orch: orch, store: store, broker: b, alerts: alerts, audit: audit, metrics: m, accounts: accounts}
}

func TestProcessFullPipelineSuccess(t *testing.T) {
	h := newOrchHarness(t)

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if !res.Success {
		t.Fatalf("pipeline failed at %s: %s (%s)", res.Stage, res.Reason, res.Message)
	}
	if res.Stage != models.StageRecorded {
		t.Fatalf("terminal stage %s, want recorded", res.Stage)
	}
	// 5% risk budget of 100k at 100/share = 50 shares.
	if res.Order == nil || res.Order.FillQuantity != 50 {
		t.Fatalf("unexpected order %+v", res.Order)
	}
	if res.Position == nil || res.Position.Ticker != "AAPL" {
		t.Fatalf("position not recorded: %+v", res.Position)
	}

	snap, err := h.store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.DailyTradeCount != 1 {
		t.Fatalf("trade count %d, want 1", snap.DailyTradeCount)
	}
	if h.audit.count() != 1 {
		t.Fatalf("audit records %d, want 1", h.audit.count())
	}
}

func TestProcessRejectedWhenKillSwitchActive(t *testing.T) {
	h := newOrchHarness(t)
	if err := h.orch.Kill(context.Background(), "manual halt"); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success {
		t.Fatalf("trade executed with kill switch active")
	}
	if res.Stage != models.StageKillSwitchChecked || res.Reason != models.ReasonKillSwitchActive {
		t.Fatalf("rejected at %s with %s, want kill switch check", res.Stage, res.Reason)
	}
	if h.broker.callCount() != 0 {
		t.Fatalf("no broker call may happen under kill switch")
	}
}

func TestProcessDuplicateSignalRejected(t *testing.T) {
	h := newOrchHarness(t)

	if res := h.orch.Process(context.Background(), testSignal("AAPL")); !res.Success {
		t.Fatalf("first signal failed: %+v", res)
	}
	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success || res.Reason != models.ReasonDuplicateSignal {
		t.Fatalf("expected duplicate_signal, got %+v", res)
	}
	if h.broker.callCount() != 1 {
		t.Fatalf("duplicate must not reach the broker")
	}
}

func TestProcessDailyLossBreachActivatesKillSwitch(t *testing.T) {
	h := newOrchHarness(t)
	if err := h.store.RecordTradePnL(-3000); err != nil { // 3% of 100k starting equity
		t.Fatalf("RecordTradePnL: %v", err)
	}

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success || res.Reason != models.ReasonDailyLossLimit {
		t.Fatalf("expected daily_loss_limit, got %+v", res)
	}

	snap, err := h.store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.KillSwitchActive {
		t.Fatalf("daily loss breach must trip the kill switch")
	}
	if !h.alerts.has("kill_switch_activated") {
		t.Fatalf("kill switch activation must alert")
	}

	// The next signal stops at the cheap kill-switch check.
	res = h.orch.Process(context.Background(), testSignal("MSFT"))
	if res.Stage != models.StageKillSwitchChecked {
		t.Fatalf("follow-up signal rejected at %s, want kill switch check", res.Stage)
	}
}

func TestProcessFillMismatchRejectedWithoutPosition(t *testing.T) {
	h := newOrchHarness(t)
	h.broker.fillPrice = 110 // 10% off the 100 entry, tolerance is 2%

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success || res.Reason != models.ReasonFillValidationFailed {
		t.Fatalf("expected fill_validation_failed, got %+v", res)
	}
	if h.orch.Positions() != nil && len(h.orch.Positions()) != 0 {
		t.Fatalf("no position may exist after a failed fill validation")
	}
	if !h.alerts.has("fill_validation_failed") {
		t.Fatalf("fill mismatch must raise a critical alert")
	}
}

func TestProcessBrokerRejectionTerminal(t *testing.T) {
	h := newOrchHarness(t)
	h.broker.rejectErr = domrepo.ErrOrderRejected

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success || res.Reason != models.ReasonOrderRejectedByBroker {
		t.Fatalf("expected order_rejected_by_broker, got %+v", res)
	}
	if h.broker.callCount() != 1 {
		t.Fatalf("terminal rejection must not retry, got %d calls", h.broker.callCount())
	}
}

func TestProcessSubmissionFailureAlerts(t *testing.T) {
	h := newOrchHarness(t)
	h.broker.failTimes = 100

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success || res.Reason != models.ReasonOrderSubmissionFailed {
		t.Fatalf("expected order_submission_failed, got %+v", res)
	}
	if !h.alerts.has("order_submission_failed") {
		t.Fatalf("exhausted submission must alert")
	}
}

func TestProcessPausedGatesIntake(t *testing.T) {
	h := newOrchHarness(t)
	h.orch.Pause()

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success || res.Stage != models.StageReceived {
		t.Fatalf("paused intake must stop at received: %+v", res)
	}
	if h.audit.count() != 1 {
		t.Fatalf("paused drops are still audited")
	}

	h.orch.Resume()
	if res := h.orch.Process(context.Background(), testSignal("AAPL")); !res.Success {
		t.Fatalf("resume must reopen intake: %+v", res)
	}
}

func TestClosePositionRecordsRealizedPnL(t *testing.T) {
	h := newOrchHarness(t)
	if res := h.orch.Process(context.Background(), testSignal("AAPL")); !res.Success {
		t.Fatalf("open failed: %+v", res)
	}

	_, pnl, err := h.orch.ClosePosition(context.Background(), "AAPL", 110, "target hit")
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	if pnl != 500 { // (110-100) * 50 shares
		t.Fatalf("pnl %v, want 500", pnl)
	}

	snap, err := h.store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.DailyPnL != 500 {
		t.Fatalf("daily pnl %v, want 500", snap.DailyPnL)
	}
	if len(h.orch.Positions()) != 0 {
		t.Fatalf("position must be gone after close")
	}
}

func TestClosePositionUnknownTicker(t *testing.T) {
	h := newOrchHarness(t)
	_, _, err := h.orch.ClosePosition(context.Background(), "GME", 100, "manual")
	if !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestCloseLossTriggersAutoKill(t *testing.T) {
	h := newOrchHarness(t)
	if res := h.orch.Process(context.Background(), testSignal("AAPL")); !res.Success {
		t.Fatalf("open failed: %+v", res)
	}

	// 50 shares opened at 100; exiting at 0 realizes -5000, the 5% auto-kill line.
	if _, _, err := h.orch.ClosePosition(context.Background(), "AAPL", 0, "stop"); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}

	snap, err := h.store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.KillSwitchActive {
		t.Fatalf("auto-kill must trip on realized loss")
	}
}

func TestResetKillReopensTrading(t *testing.T) {
	h := newOrchHarness(t)
	if err := h.orch.Kill(context.Background(), "drill"); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if err := h.orch.ResetKill(context.Background()); err != nil {
		t.Fatalf("ResetKill: %v", err)
	}
	if !h.alerts.has("kill_switch_reset") {
		t.Fatalf("reset must alert")
	}
	if res := h.orch.Process(context.Background(), testSignal("AAPL")); !res.Success {
		t.Fatalf("trading must resume after reset: %+v", res)
	}
}

func TestSetCircuitBreakerGatesTrading(t *testing.T) {
	h := newOrchHarness(t)
	if err := h.orch.SetCircuitBreaker(context.Background(), models.CircuitOpen, "broker outage"); err != nil {
		t.Fatalf("SetCircuitBreaker: %v", err)
	}

	res := h.orch.Process(context.Background(), testSignal("AAPL"))
	if res.Success || res.Reason != models.ReasonCircuitBreakerOpen {
		t.Fatalf("expected circuit_breaker_open, got %+v", res)
	}

	if err := h.orch.SetCircuitBreaker(context.Background(), models.CircuitClosed, "recovered"); err != nil {
		t.Fatalf("SetCircuitBreaker: %v", err)
	}
	if res := h.orch.Process(context.Background(), testSignal("MSFT")); !res.Success {
		t.Fatalf("closed circuit must trade: %+v", res)
	}
}

func TestStatusReportsControlAndPositions(t *testing.T) {
	h := newOrchHarness(t)
	if res := h.orch.Process(context.Background(), testSignal("AAPL")); !res.Success {
		t.Fatalf("open failed: %+v", res)
	}

	st, err := h.orch.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Mode != "paper" || st.Paused {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.OpenPositions != 1 {
		t.Fatalf("open positions %d, want 1", st.OpenPositions)
	}
	if st.Control.DailyTradeCount != 1 {
		t.Fatalf("control snapshot missing trade count: %+v", st.Control)
	}
}
