package domain

// Outcome - terminal state of one monitoring cycle.
type Outcome string

const (
	OutcomeNoChange              Outcome = "noChange"
	OutcomeChangedBelowThreshold Outcome = "changedBelowThreshold"
	OutcomeChangedAndSent        Outcome = "changedAndSent"
	OutcomeChangedWithWarning    Outcome = "changedWithWarning"
	OutcomeChangedWithError      Outcome = "changedWithError"
	OutcomeFatalError            Outcome = "fatalError"
)

// Changed reports whether the cycle detected and persisted a change.
func (o Outcome) Changed() bool {
	switch o {
	case OutcomeChangedBelowThreshold, OutcomeChangedAndSent,
		OutcomeChangedWithWarning, OutcomeChangedWithError:
		return true
	default:
		return false
	}
}

// Stage - step of the cycle pipeline, recorded where it stopped.
type Stage string

const (
	StageFetching       Stage = "fetching"
	StageParsing        Stage = "parsing"
	StageDiffing        Stage = "diffing"
	StagePersisting     Stage = "persisting"
	StageThresholdCheck Stage = "thresholdCheck"
	StageRendering      Stage = "rendering"
	StageDispatching    Stage = "dispatching"
	StageIdle           Stage = "idle"
)

// CycleResult - explicit result of one cycle.
type CycleResult struct {
	Target    string       `json:"target"`
	Outcome   Outcome      `json:"outcome"`
	Stage     Stage        `json:"stage"`
	Snapshot  *Snapshot    `json:"snapshot,omitempty"`
	Previous  *Snapshot    `json:"previous,omitempty"`
	Change    *PriceChange `json:"change,omitempty"`
	Sent      *SendResult  `json:"sent,omitempty"`
	Warning   string       `json:"warning,omitempty"`
	Error     string       `json:"error,omitempty"`
	StartedAt int64        `json:"startedAt"`
	Duration  int64        `json:"durationMs"`
}

// CheckResult - fetch, compare and persist without dispatch.
type CheckResult struct {
	Target   string      `json:"target"`
	Snapshot Snapshot    `json:"snapshot"`
	Previous *Snapshot   `json:"previous,omitempty"`
	Change   PriceChange `json:"change"`
}
