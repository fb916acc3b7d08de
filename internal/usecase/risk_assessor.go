package usecase

import (
	"context"
	"fmt"
	"math"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	applogger "TradeCore/pkg/logger"
	"TradeCore/pkg/util"
)

// RiskConfig holds the risk gate limits.
type RiskConfig struct {
	DailyLossLimitPct     float64 // of starting equity
	MaxPositions          int
	ConcentrationLimitPct float64 // of equity, single instrument
	CorrelationThreshold  float64
	MaxClusterSize        int
	VarBudgetPct          float64 // of equity
	VarConfidenceZ        float64
	ReturnsLookbackDays   int
}

// AssessmentInput carries everything a single risk assessment needs.
type AssessmentInput struct {
	Signal    *models.TradeSignal
	Account   *models.AccountState
	Positions []*models.Position
	Control   models.ControlState
	Regime    models.Regime
}

// RiskAssessor is the multi-check risk gate. Checks run in a fixed order and
// stop at the first failure; the VaR step never rejects, it only bounds the
// approved size.
type RiskAssessor struct {
	cfg     RiskConfig
	returns domrepo.ReturnsProvider
	l       *applogger.Logger
}

// NewRiskAssessor creates the risk gate. returns may be nil, in which case the
// correlation check passes trivially and VaR sizing falls back to the
// concentration cap.
func NewRiskAssessor(cfg RiskConfig, returns domrepo.ReturnsProvider, l *applogger.Logger) *RiskAssessor {
	return &RiskAssessor{cfg: cfg, returns: returns, l: l}
}

// Assess runs the ordered checks for one trade intent.
func (a *RiskAssessor) Assess(ctx context.Context, in AssessmentInput) models.RiskAssessment {
	res := models.RiskAssessment{}

	fail := func(name string, reason models.RejectReason, detail string) models.RiskAssessment {
		res.Checks = append(res.Checks, models.RiskCheck{Name: name, Passed: false, Detail: detail})
		res.Approved = false
		res.RejectReason = reason
		if a.l != nil {
			a.l.Info("risk check failed",
				applogger.String("ticker", in.Signal.Ticker),
				applogger.String("check", name),
				applogger.String("detail", detail),
			)
		}
		return res
	}
	pass := func(name string) {
		res.Checks = append(res.Checks, models.RiskCheck{Name: name, Passed: true})
	}

	// 1. Kill switch.
	if in.Control.KillSwitchActive {
		return fail("kill_switch", models.ReasonKillSwitchActive, in.Control.KillSwitchReason)
	}
	pass("kill_switch")

	// 2. Circuit breaker.
	if in.Control.CircuitBreakerStatus == models.CircuitOpen {
		return fail("circuit_breaker", models.ReasonCircuitBreakerOpen, in.Control.CircuitBreakerReason)
	}
	pass("circuit_breaker")

	// 3. Daily loss limit. A breach also requests kill-switch activation so
	// subsequent signals stop at the cheaper kill-switch check.
	lossLimit := in.Account.StartingEquity * a.cfg.DailyLossLimitPct / 100
	if in.Control.DailyPnL <= -lossLimit {
		res.KillSwitchRequested = true
		return fail("daily_loss", models.ReasonDailyLossLimit,
			fmt.Sprintf("daily pnl %.2f breaches limit %.2f", in.Control.DailyPnL, -lossLimit))
	}
	pass("daily_loss")

	// 4. Regime-adjusted position count.
	maxPositions := int(math.Floor(float64(a.cfg.MaxPositions) * in.Regime.PositionCountMultiplier()))
	if maxPositions < 1 {
		maxPositions = 1
	}
	if len(in.Positions) >= maxPositions {
		return fail("position_count", models.ReasonMaxPositions,
			fmt.Sprintf("%d open positions, regime-adjusted max %d", len(in.Positions), maxPositions))
	}
	pass("position_count")

	// 5. Single-instrument concentration.
	var exposure float64
	for _, p := range in.Positions {
		if p.Ticker == in.Signal.Ticker {
			exposure += p.Notional()
		}
	}
	concentrationCap := in.Account.Equity * a.cfg.ConcentrationLimitPct / 100
	if exposure >= concentrationCap {
		return fail("concentration", models.ReasonConcentrationLimit,
			fmt.Sprintf("%s exposure %.2f at or above cap %.2f", in.Signal.Ticker, exposure, concentrationCap))
	}
	pass("concentration")

	// 6. Correlation cluster guard.
	candReturns, ok, detail := a.clusterCheck(ctx, in)
	if !ok {
		return fail("correlation_cluster", models.ReasonCorrelationCluster, detail)
	}
	pass("correlation_cluster")

	// 7. VaR-based sizing cap. Bounds the output, never rejects.
	maxSize := a.varSizeCap(ctx, in, candReturns)
	if remaining := concentrationCap - exposure; remaining < maxSize {
		maxSize = remaining
	}
	res.MaxPositionSize = maxSize * in.Regime.SizeMultiplier()
	res.Checks = append(res.Checks, models.RiskCheck{
		Name:   "var_sizing",
		Passed: true,
		Detail: fmt.Sprintf("max position size %.2f (%s regime)", res.MaxPositionSize, in.Regime),
	})

	res.Approved = true
	return res
}

// clusterCheck rejects when adding the candidate would grow a cluster of
// highly correlated positions past the configured maximum. Returns the
// candidate's return series for reuse by VaR sizing.
func (a *RiskAssessor) clusterCheck(ctx context.Context, in AssessmentInput) ([]float64, bool, string) {
	if a.returns == nil || len(in.Positions) == 0 {
		return nil, true, ""
	}

	tickers := make([]string, 0, len(in.Positions)+1)
	tickers = append(tickers, in.Signal.Ticker)
	for _, p := range in.Positions {
		if p.Ticker != in.Signal.Ticker {
			tickers = append(tickers, p.Ticker)
		}
	}

	matrix, err := a.returns.ReturnsMatrix(ctx, tickers, a.cfg.ReturnsLookbackDays)
	if err != nil {
		// Risk data being down must not silently enlarge correlated clusters,
		// but it also must not halt all trading; log and pass the check.
		if a.l != nil {
			a.l.Warn("returns matrix unavailable, skipping cluster check", applogger.Error(err))
		}
		return nil, true, ""
	}

	cand := matrix[in.Signal.Ticker]
	cluster := 1 // the candidate itself
	for _, p := range in.Positions {
		series, ok := matrix[p.Ticker]
		if !ok || p.Ticker == in.Signal.Ticker {
			continue
		}
		if util.Correlation(cand, series) > a.cfg.CorrelationThreshold {
			cluster++
		}
	}
	if cluster > a.cfg.MaxClusterSize {
		return cand, false, fmt.Sprintf(
			"adding %s forms correlated cluster of %d, max %d (threshold %.2f)",
			in.Signal.Ticker, cluster, a.cfg.MaxClusterSize, a.cfg.CorrelationThreshold)
	}
	return cand, true, ""
}

// varSizeCap converts the portfolio VaR budget into a maximum dollar position
// size for the candidate: budget / (z * sigma_daily). Without a usable return
// series it falls back to the concentration-based cap.
func (a *RiskAssessor) varSizeCap(ctx context.Context, in AssessmentInput, candReturns []float64) float64 {
	fallback := in.Account.Equity * a.cfg.ConcentrationLimitPct / 100

	if len(candReturns) < 2 {
		if a.returns != nil {
			series, err := a.returns.Returns(ctx, in.Signal.Ticker, a.cfg.ReturnsLookbackDays)
			if err == nil {
				candReturns = series
			}
		}
	}
	sigma := util.StdDev(candReturns)
	if sigma <= 0 {
		return fallback
	}

	budget := in.Account.Equity * a.cfg.VarBudgetPct / 100
	capped := budget / (a.cfg.VarConfidenceZ * sigma)
	if capped > fallback {
		return fallback
	}
	return capped
}
