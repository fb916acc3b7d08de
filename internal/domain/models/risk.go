package models

// RiskCheck records a single risk check that ran during assessment.
type RiskCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RiskAssessment is the multi-check gate output. Checks lists every check that
// ran in order; the first failed entry carries the rejection.
type RiskAssessment struct {
	Approved            bool         `json:"approved"`
	MaxPositionSize     float64      `json:"max_position_size"` // dollars
	RejectReason        RejectReason `json:"reject_reason,omitempty"`
	Checks              []RiskCheck  `json:"checks"`
	KillSwitchRequested bool         `json:"kill_switch_requested,omitempty"`
}

// SizingDecision is the position sizer output.
type SizingDecision struct {
	OK       bool         `json:"ok"`
	Quantity float64      `json:"quantity"`
	Reason   RejectReason `json:"reason,omitempty"`
	Message  string       `json:"message,omitempty"`
}
