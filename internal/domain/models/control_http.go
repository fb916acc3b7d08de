package models

// Requests for the control-surface HTTP endpoints. Defined in domain for
// consistency and reuse.

type StartRequest struct {
	Mode string `json:"mode" default:"paper" validate:"oneof=paper live"`
}

type KillRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type ClosePositionRequest struct {
	ExitPrice float64 `json:"exit_price" validate:"required,gt=0"`
	Reason    string  `json:"reason" default:"manual" validate:"required"`
}

type UpdateStopsRequest struct {
	Stop   float64 `json:"stop" validate:"gte=0"`
	Target float64 `json:"target" validate:"gte=0"`
}

type CircuitRequest struct {
	Status string `json:"status" validate:"required,oneof=open closed half_open"`
	Reason string `json:"reason" default:"operator" validate:"required"`
}

// StatusResponse reports the operator-visible state of the core.
type StatusResponse struct {
	Mode          string       `json:"mode"`
	Paused        bool         `json:"paused"`
	Control       ControlState `json:"control"`
	OpenPositions int          `json:"open_positions"`
}
