package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"TradeCore/internal/controlstate"
	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	applogger "TradeCore/pkg/logger"
)

// Orchestrator drives the per-signal pipeline:
// guard -> risk -> route -> size -> submit -> validate fill -> ledger.
// One mutex serializes the whole pipeline, including the broker call, so risk
// checks always see a settled ledger. It is the only component that mutates
// control state.
type Orchestrator struct {
	mu sync.Mutex

	control   *controlstate.Store
	guard     *SignalGuard
	assessor  *RiskAssessor
	router    *InstrumentRouter
	sizer     *PositionSizer
	submitter *OrderSubmitter
	fills     *FillValidator
	ledger    *PositionLedger

	accounts domrepo.AccountProvider
	returns  domrepo.ReturnsProvider
	regimes  domrepo.RegimeDetector
	audit    domrepo.AuditSink
	alerts   domrepo.AlertSink
	metrics  domrepo.Metrics
	brokers  map[string]domrepo.BrokerAdapter

	defaultRegime models.Regime
	autoKillPct   float64
	lookbackDays  int

	mode   atomic.Value // string
	paused atomic.Bool

	l *applogger.Logger
}

// OrchestratorDeps bundles the pipeline components and outbound ports.
type OrchestratorDeps struct {
	Control   *controlstate.Store
	Guard     *SignalGuard
	Assessor  *RiskAssessor
	Router    *InstrumentRouter
	Sizer     *PositionSizer
	Submitter *OrderSubmitter
	Fills     *FillValidator
	Ledger    *PositionLedger

	Accounts domrepo.AccountProvider
	Returns  domrepo.ReturnsProvider // optional
	Regimes  domrepo.RegimeDetector  // optional
	Audit    domrepo.AuditSink       // optional
	Alerts   domrepo.AlertSink       // optional
	Metrics  domrepo.Metrics
	Brokers  []domrepo.BrokerAdapter

	DefaultRegime models.Regime
	AutoKillPct   float64
	LookbackDays  int
	StartPaused   bool
	Mode          string

	Logger *applogger.Logger
}

func NewOrchestrator(d OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		control:       d.Control,
		guard:         d.Guard,
		assessor:      d.Assessor,
		router:        d.Router,
		sizer:         d.Sizer,
		submitter:     d.Submitter,
		fills:         d.Fills,
		ledger:        d.Ledger,
		accounts:      d.Accounts,
		returns:       d.Returns,
		regimes:       d.Regimes,
		audit:         d.Audit,
		alerts:        d.Alerts,
		metrics:       d.Metrics,
		brokers:       make(map[string]domrepo.BrokerAdapter, len(d.Brokers)),
		defaultRegime: d.DefaultRegime,
		autoKillPct:   d.AutoKillPct,
		lookbackDays:  d.LookbackDays,
		l:             d.Logger,
	}
	for _, b := range d.Brokers {
		if b != nil {
			o.brokers[b.Name()] = b
		}
	}
	if d.Mode == "" {
		d.Mode = "paper"
	}
	o.mode.Store(d.Mode)
	o.paused.Store(d.StartPaused)
	return o
}

// Process runs one signal through the full pipeline and returns the terminal
// result. Every terminal result is recorded to the audit sink.
func (o *Orchestrator) Process(ctx context.Context, sig *models.TradeSignal) *models.PipelineResult {
	res := &models.PipelineResult{
		CorrelationID: uuid.NewString(),
		Ticker:        sig.Ticker,
		Stage:         models.StageReceived,
		StartedAt:     time.Now(),
	}
	defer func() {
		res.FinishedAt = time.Now()
		o.metrics.RecordLatency("pipeline", res.FinishedAt.Sub(res.StartedAt).Seconds())
		o.record(ctx, res)
	}()

	if o.paused.Load() {
		res.Message = "intake paused"
		return res
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Durable safety state first. A persistence failure here means daily
	// counters cannot be trusted; nothing trades on stale safety state.
	control, err := o.control.Snapshot()
	if err != nil {
		return o.fatal(ctx, res, err)
	}
	o.stage(res, models.StageKillSwitchChecked)
	if control.KillSwitchActive {
		return o.reject(res, models.ReasonKillSwitchActive, control.KillSwitchReason)
	}

	o.stage(res, models.StageGuarded)
	if g := o.guard.Check(sig); !g.OK {
		res.Guard = &g
		return o.reject(res, g.Reason, g.Message)
	}
	if err := o.control.RecordSignal(); err != nil {
		return o.fatal(ctx, res, err)
	}

	account, err := o.accounts.Account(ctx)
	if err != nil {
		o.metrics.RecordError("account")
		res.Message = fmt.Sprintf("account snapshot unavailable: %v", err)
		return res
	}

	o.stage(res, models.StageRiskAssessed)
	assessment := o.assessor.Assess(ctx, AssessmentInput{
		Signal:    sig,
		Account:   account,
		Positions: o.ledger.List(),
		Control:   control,
		Regime:    o.detectRegime(ctx, sig.Ticker),
	})
	res.Assessment = &assessment
	if !assessment.Approved {
		if assessment.KillSwitchRequested {
			o.activateKillSwitch(ctx, fmt.Sprintf("daily loss limit breached (%s)", sig.Ticker))
		}
		return o.reject(res, assessment.RejectReason, checkDetail(assessment))
	}

	o.stage(res, models.StageInstrumentRouted)
	instrument := o.router.Route(sig)
	res.Instrument = &instrument

	o.stage(res, models.StageSized)
	sizing := o.sizer.Size(sig, &assessment, &instrument, account)
	res.Sizing = &sizing
	if !sizing.OK {
		return o.reject(res, sizing.Reason, sizing.Message)
	}

	o.stage(res, models.StageOrderSubmitted)
	// The signal entry price rides along as the limit price: brokers without
	// their own quote for the symbol fill against it, and the fill validator
	// checks the execution against the same reference.
	req := &models.OrderRequest{
		CorrelationID: res.CorrelationID,
		Ticker:        sig.Ticker,
		Symbol:        instrument.Symbol,
		Instrument:    instrument.Type,
		Side:          sideFor(sig.Direction),
		Quantity:      sizing.Quantity,
		OrderType:     models.OrderTypeMarket,
		LimitPrice:    sig.EntryPrice,
	}
	order, err := o.submitter.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, domrepo.ErrOrderRejected) {
			return o.reject(res, models.ReasonOrderRejectedByBroker, err.Error())
		}
		o.notify(ctx, domrepo.AlertWarning, "order_submission_failed", err.Error())
		return o.reject(res, models.ReasonOrderSubmissionFailed, err.Error())
	}
	res.Order = order

	o.stage(res, models.StageFillValidated)
	fill := o.fills.Validate(ctx, req, order, sig.EntryPrice, o.brokers[order.Broker])
	if !fill.OK {
		o.notify(ctx, domrepo.AlertCritical, "fill_validation_failed", fill.Message)
		return o.reject(res, models.ReasonFillValidationFailed, fill.Message)
	}

	o.stage(res, models.StagePositionOpened)
	position, err := o.ledger.Open(sig, &instrument, order)
	if err != nil {
		o.metrics.RecordError("ledger")
		res.Message = err.Error()
		return res
	}
	res.Position = position
	o.metrics.RecordOpenPositions(o.ledger.Count())

	if err := o.control.RecordTrade(); err != nil {
		// Position is real; the trade counter write failed. Escalate, keep the
		// position, and let the fatal path stop further intake.
		return o.fatal(ctx, res, err)
	}
	o.evaluateAutoKill(ctx, account.StartingEquity)

	o.stage(res, models.StageRecorded)
	res.Success = true
	if o.l != nil {
		o.l.Info("trade executed",
			applogger.String("ticker", sig.Ticker),
			applogger.String("symbol", instrument.Symbol),
			applogger.String("broker", order.Broker),
			applogger.Float64("quantity", order.FillQuantity),
			applogger.Float64("fill_price", order.FillPrice),
		)
	}
	return res
}

// ClosePosition exits an open position at the given price, feeding realized
// P&L into the durable daily counters. The sole caller of RecordTradePnL.
func (o *Orchestrator) ClosePosition(ctx context.Context, ticker string, exitPrice float64, reason string) (*models.Position, float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	position, pnl, err := o.ledger.Close(ticker, exitPrice)
	if err != nil {
		return nil, 0, err
	}
	o.metrics.RecordOpenPositions(o.ledger.Count())

	if err := o.control.RecordTradePnL(pnl); err != nil {
		o.notify(ctx, domrepo.AlertCritical, "persistence_error", err.Error())
		return position, pnl, err
	}
	if snap, serr := o.control.Snapshot(); serr == nil {
		o.metrics.RecordDailyPnL(snap.DailyPnL)
	}

	if account, aerr := o.accounts.Account(ctx); aerr == nil {
		o.evaluateAutoKill(ctx, account.StartingEquity)
	}

	if o.l != nil {
		o.l.Info("position closed",
			applogger.String("ticker", ticker),
			applogger.String("reason", reason),
			applogger.Float64("exit_price", exitPrice),
			applogger.Float64("realized_pnl", pnl),
		)
	}
	return position, pnl, nil
}

// UpdateStops adjusts stop/target levels on an open position.
func (o *Orchestrator) UpdateStops(ticker string, stop, target float64) (*models.Position, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ledger.UpdateStops(ticker, stop, target)
}

// SetCircuitBreaker durably updates the broker-health circuit breaker.
// Operator action; the pipeline only ever reads it.
func (o *Orchestrator) SetCircuitBreaker(ctx context.Context, status models.CircuitBreakerStatus, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.control.SetCircuitBreaker(status, reason); err != nil {
		return err
	}
	level := domrepo.AlertInfo
	if status == models.CircuitOpen {
		level = domrepo.AlertWarning
	}
	o.notify(ctx, level, "circuit_breaker_"+string(status), reason)
	return nil
}

// Kill durably activates the kill switch.
func (o *Orchestrator) Kill(ctx context.Context, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activateKillSwitch(ctx, reason)
	return nil
}

// ResetKill durably clears the kill switch. Explicit operator action only.
func (o *Orchestrator) ResetKill(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.control.DeactivateKillSwitch(); err != nil {
		return err
	}
	o.notify(ctx, domrepo.AlertInfo, "kill_switch_reset", "kill switch deactivated by operator")
	return nil
}

// Start sets the trading mode and unpauses intake.
func (o *Orchestrator) Start(mode string) {
	if mode != "" {
		o.mode.Store(mode)
	}
	o.paused.Store(false)
}

// Pause gates signal intake before the guard. In-flight pipelines finish.
func (o *Orchestrator) Pause() { o.paused.Store(true) }

// Resume reopens signal intake.
func (o *Orchestrator) Resume() { o.paused.Store(false) }

// Paused reports whether intake is gated.
func (o *Orchestrator) Paused() bool { return o.paused.Load() }

// Mode returns the current trading mode.
func (o *Orchestrator) Mode() string { return o.mode.Load().(string) }

// Status returns the durable control snapshot and open positions without
// taking the pipeline lock.
func (o *Orchestrator) Status() (*models.StatusResponse, error) {
	snap, err := o.control.Snapshot()
	if err != nil {
		return nil, err
	}
	return &models.StatusResponse{
		Mode:          o.Mode(),
		Paused:        o.paused.Load(),
		Control:       snap,
		OpenPositions: o.ledger.Count(),
	}, nil
}

// Positions returns the open positions without taking the pipeline lock.
func (o *Orchestrator) Positions() []*models.Position { return o.ledger.List() }

// Close releases pipeline-owned resources.
func (o *Orchestrator) Close() {
	o.guard.Close()
}

func (o *Orchestrator) detectRegime(ctx context.Context, ticker string) models.Regime {
	if o.regimes == nil {
		return o.defaultRegime
	}
	var series []float64
	if o.returns != nil {
		if s, err := o.returns.Returns(ctx, ticker, o.lookbackDays); err == nil {
			series = s
		}
	}
	regime, err := o.regimes.Detect(ctx, ticker, series)
	if err != nil {
		if o.l != nil {
			o.l.Warn("regime detection failed, using default",
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return o.defaultRegime
	}
	return regime
}

// evaluateAutoKill activates the kill switch when the daily loss crosses the
// auto-kill threshold. Called after every event that can move daily P&L.
func (o *Orchestrator) evaluateAutoKill(ctx context.Context, startingEquity float64) {
	if o.autoKillPct <= 0 || startingEquity <= 0 {
		return
	}
	snap, err := o.control.Snapshot()
	if err != nil || snap.KillSwitchActive {
		return
	}
	limit := startingEquity * o.autoKillPct / 100
	if snap.DailyPnL <= -limit {
		o.activateKillSwitch(ctx, fmt.Sprintf("auto-kill: daily pnl %.2f breached -%.2f", snap.DailyPnL, limit))
	}
}

func (o *Orchestrator) activateKillSwitch(ctx context.Context, reason string) {
	if err := o.control.ActivateKillSwitch(reason); err != nil {
		o.metrics.RecordError("persistence")
		o.notify(ctx, domrepo.AlertCritical, "persistence_error",
			fmt.Sprintf("kill switch activation not persisted: %v", err))
		return
	}
	o.notify(ctx, domrepo.AlertCritical, "kill_switch_activated", reason)
}

func (o *Orchestrator) stage(res *models.PipelineResult, s models.Stage) {
	res.Stage = s
	o.metrics.RecordStage(string(s))
}

func (o *Orchestrator) reject(res *models.PipelineResult, reason models.RejectReason, msg string) *models.PipelineResult {
	res.Success = false
	res.Reason = reason
	res.Message = msg
	o.metrics.RecordRejection(string(res.Stage), string(reason))
	if o.l != nil {
		o.l.Info("signal rejected",
			applogger.String("ticker", res.Ticker),
			applogger.String("stage", string(res.Stage)),
			applogger.String("reason", string(reason)),
			applogger.String("detail", msg),
		)
	}
	return res
}

// fatal handles a failed durable write of safety state.
func (o *Orchestrator) fatal(ctx context.Context, res *models.PipelineResult, err error) *models.PipelineResult {
	res.Success = false
	res.Reason = models.ReasonPersistenceError
	res.Message = err.Error()
	o.metrics.RecordError("persistence")
	o.notify(ctx, domrepo.AlertCritical, "persistence_error", err.Error())
	if o.l != nil {
		o.l.Error("control state persistence failure", applogger.Error(err))
	}
	return res
}

func (o *Orchestrator) record(ctx context.Context, res *models.PipelineResult) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Record(ctx, res); err != nil {
		o.metrics.RecordError("audit")
		if o.l != nil {
			o.l.Warn("audit record failed",
				applogger.String("correlation_id", res.CorrelationID),
				applogger.Error(err),
			)
		}
	}
}

func (o *Orchestrator) notify(ctx context.Context, level domrepo.AlertLevel, code, msg string) {
	if o.alerts == nil {
		return
	}
	o.alerts.Notify(ctx, level, code, msg)
}

func sideFor(d models.Direction) models.OrderSide {
	if d == models.DirectionShort {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

// checkDetail returns the detail of the first failed risk check.
func checkDetail(a models.RiskAssessment) string {
	for _, c := range a.Checks {
		if !c.Passed {
			return c.Detail
		}
	}
	return ""
}
