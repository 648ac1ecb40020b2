package session

import (
	"time"

	"egzersizlab/internal/capture"
	"egzersizlab/internal/catalog"
	"egzersizlab/internal/evaluation"
)

// Status marks whether a test's interaction finished cleanly or survived
// a recoverable failure (e.g. a recording that could not be encoded).
type Status string

const (
	StatusCompleted          Status = "completed"
	StatusCompletedWithError Status = "completed-with-error"
)

// Outcome is the stored result of one completed test. Exactly one of the
// modality payloads is set, matching the test's modality. Skipped tests
// never get an Outcome.
type Outcome struct {
	TestID      string               `json:"testId"`
	Modality    catalog.Modality     `json:"modality"`
	Status      Status               `json:"status"`
	RecordedAt  time.Time            `json:"recordedAt"`
	Video       *VideoOutcome        `json:"video,omitempty"`
	Measurement *MeasurementOutcome  `json:"measurement,omitempty"`
	Response    *ResponseOutcome     `json:"response,omitempty"`
	Balance     *BalanceOutcome      `json:"balance,omitempty"`
}

// VideoOutcome references the recorded or uploaded artifact. Artifact is
// nil when finalization failed; Error carries the marker then.
type VideoOutcome struct {
	Artifact *capture.Artifact `json:"artifact"`
	Error    string            `json:"error,omitempty"`
}

// MeasurementOutcome holds the classified value per side. At least one
// side is always present.
type MeasurementOutcome struct {
	Left  *evaluation.Result `json:"left,omitempty"`
	Right *evaluation.Result `json:"right,omitempty"`
}

// ResponseOutcome records the chosen option with its resolved result.
type ResponseOutcome struct {
	OptionID    string `json:"optionId"`
	Label       string `json:"label"`
	Result      string `json:"result"`
	Description string `json:"description,omitempty"`
}

// BalanceOutcome records the final whole-second balance time, auto
// captured or manually overridden, with its classification.
type BalanceOutcome struct {
	Seconds        int               `json:"seconds"`
	Classification evaluation.Result `json:"classification"`
}
