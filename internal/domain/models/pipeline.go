package models

import "time"

// Stage names the orchestrator's per-signal state machine states.
type Stage string

const (
	StageReceived          Stage = "received"
	StageKillSwitchChecked Stage = "kill_switch_checked"
	StageGuarded           Stage = "guarded"
	StageRiskAssessed      Stage = "risk_assessed"
	StageInstrumentRouted  Stage = "instrument_routed"
	StageSized             Stage = "sized"
	StageOrderSubmitted    Stage = "order_submitted"
	StageFillValidated     Stage = "fill_validated"
	StagePositionOpened    Stage = "position_opened"
	StageRecorded          Stage = "recorded"
)

// RejectReason is a stable machine-readable rejection code.
type RejectReason string

const (
	ReasonStaleSignal           RejectReason = "stale_signal"
	ReasonDuplicateSignal       RejectReason = "duplicate_signal"
	ReasonKillSwitchActive      RejectReason = "kill_switch_active"
	ReasonCircuitBreakerOpen    RejectReason = "circuit_breaker_open"
	ReasonDailyLossLimit        RejectReason = "daily_loss_limit"
	ReasonMaxPositions          RejectReason = "max_positions"
	ReasonConcentrationLimit    RejectReason = "concentration_limit"
	ReasonCorrelationCluster    RejectReason = "correlation_cluster"
	ReasonInsufficientBudget    RejectReason = "insufficient_budget"
	ReasonOrderSubmissionFailed RejectReason = "order_submission_failed"
	ReasonOrderRejectedByBroker RejectReason = "order_rejected_by_broker"
	ReasonFillValidationFailed  RejectReason = "fill_validation_failed"
	ReasonPersistenceError      RejectReason = "persistence_error"
)

// PipelineResult is the terminal outcome of one orchestrated signal run.
type PipelineResult struct {
	CorrelationID string       `json:"correlation_id"`
	Ticker        string       `json:"ticker"`
	Success       bool         `json:"success"`
	Stage         Stage        `json:"stage"` // stage at which processing stopped
	Reason        RejectReason `json:"reason,omitempty"`
	Message       string       `json:"message,omitempty"`

	Guard      *GuardDecision      `json:"guard,omitempty"`
	Assessment *RiskAssessment     `json:"assessment,omitempty"`
	Instrument *InstrumentDecision `json:"instrument,omitempty"`
	Sizing     *SizingDecision     `json:"sizing,omitempty"`
	Order      *OrderResult        `json:"order,omitempty"`
	Position   *Position           `json:"position,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RejectedAt reports the terminal state name for a rejected run, e.g.
// "rejected_at_risk_assessed".
func (r *PipelineResult) RejectedAt() string {
	if r.Success {
		return ""
	}
	return "rejected_at_" + string(r.Stage)
}
