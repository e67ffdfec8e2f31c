// Package types provides the shared data model for the book production pipeline.
package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the overall status of a pipeline run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

// Terminal reports whether the status is a terminal state.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunFailed || s == RunAborted
}

// Stage identifies one pipeline stage.
type Stage string

const (
	StageContent Stage = "content"
	StageFormat  Stage = "format"
	StageQuality Stage = "quality"
	StagePublish Stage = "publish"
	// StageMonitor is the observational side channel; it never appears in the
	// stage order and never produces a StageResult.
	StageMonitor Stage = "monitor"
)

// StageOrder is the fixed execution order of the producing stages.
var StageOrder = []Stage{StageContent, StageFormat, StageQuality, StagePublish}

// StageResult records the outcome of one agent invocation. Results are
// appended to the run's log and never mutated afterwards.
type StageResult struct {
	Stage       Stage         `json:"stage"`
	Status      string        `json:"status"` // "succeeded" or "failed"
	ArtifactRef string        `json:"artifact_ref,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	Retries     int           `json:"retries"`
}

// Run is a single pipeline execution. It is owned exclusively by the
// pipeline controller and mutated only by it.
type Run struct {
	ID           uuid.UUID     `json:"id"`
	Config       RunConfig     `json:"config"`
	Stages       []StageResult `json:"stages"`
	CurrentStage Stage         `json:"current_stage,omitempty"`
	Status       RunStatus     `json:"status"`
	Revisions    int           `json:"revisions"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// LastResult returns the most recently appended stage result, or nil if the
// run has not completed any stage yet.
func (r *Run) LastResult() *StageResult {
	if len(r.Stages) == 0 {
		return nil
	}
	return &r.Stages[len(r.Stages)-1]
}

// Clone returns a deep copy of the run so callers can inspect state without
// sharing the controller's mutable log.
func (r *Run) Clone() *Run {
	cp := *r
	cp.Stages = make([]StageResult, len(r.Stages))
	copy(cp.Stages, r.Stages)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Event is a transient progress notification. Events are produced, broadcast
// and discarded; the core never persists them.
type Event struct {
	RunID     uuid.UUID `json:"run_id"`
	Stage     Stage     `json:"stage"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}
