package ws

import (
	"encoding/json"
	"time"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/results"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/solver"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	// Client -> Server
	TypeRunStart = "run:start"
	TypeRunAbort = "run:abort"

	// Server -> Client
	TypeScenario = "scenario:loaded"
	TypeRunState = "run:state"
	TypeInterval = "run:interval"
	TypeWarning  = "run:warning"
	TypeSummary  = "run:summary"
)

// RunStartPayload optionally overrides run options for this execution.
type RunStartPayload struct {
	Strict bool `json:"strict"`
}

// RunStatePayload announces run lifecycle transitions.
type RunStatePayload struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// ScenarioPayload describes the loaded scenario to a newly connected client.
type ScenarioPayload struct {
	Zones    []string `json:"zones"`
	HotWater []string `json:"hot_water,omitempty"`
	Supplies []string `json:"supplies"`
	Start    string   `json:"start"`
	Steps    int      `json:"steps"`
}

// WarningPayload reports a timestep that hit the solver iteration cap.
type WarningPayload struct {
	Step       int     `json:"step"`
	Residual   float64 `json:"residual"`
	Iterations int     `json:"iterations"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// intervalPayload trims the timestamp to RFC3339 for the wire; the rest of
// the interval record serializes as-is.
type intervalPayload struct {
	results.Interval
	Time string `json:"time"`
}

func IntervalMessage(iv results.Interval) ([]byte, error) {
	return NewEnvelope(TypeInterval, intervalPayload{
		Interval: iv,
		Time:     iv.Time.Format(time.RFC3339),
	})
}

func WarningMessage(w solver.Warning) ([]byte, error) {
	return NewEnvelope(TypeWarning, WarningPayload{
		Step:       w.Step,
		Residual:   w.Residual,
		Iterations: w.Iterations,
	})
}

func SummaryMessage(s results.Summary) ([]byte, error) {
	return NewEnvelope(TypeSummary, s)
}
