// Package agent defines the pipeline stage capability and its five variants:
// content, format, quality, monitor, and publish. Every variant performs one
// stage against shared run state behind the same invoke contract.
package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/book-foundry/internal/storybible"
	"github.com/jonathan/book-foundry/internal/types"
)

// RunState is the per-run state shared with agents. It is owned by the run;
// agents read it and only the story bible accepts (monotonic) mutation.
type RunState struct {
	RunID      uuid.UUID
	Config     types.RunConfig
	Bible      *storybible.StoryBible
	Manuscript string
}

// Verdict is the quality gate outcome.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictRevise Verdict = "revise"
)

// QualityFeedback is the structured feedback attached to a revise verdict
// and fed back into the content stage.
type QualityFeedback struct {
	Summary string   `json:"summary"`
	Issues  []string `json:"issues"`
}

// Input is the variant-specific payload for one invocation. ArtifactRef is
// the output of the preceding stage; Feedback is set when the content stage
// re-runs after a revise verdict.
type Input struct {
	ArtifactRef string
	Feedback    *QualityFeedback
}

// Output is the result of a successful invocation. Verdict and Feedback are
// populated by the quality variant only.
type Output struct {
	ArtifactRef string
	Verdict     Verdict
	Feedback    *QualityFeedback
}

// Agent is the uniform stage contract. Invoke failures are classified with
// types.Retryable or types.Fatal; the controller applies the retry policy.
type Agent interface {
	Stage() types.Stage
	Invoke(ctx context.Context, state *RunState, in Input) (Output, error)
}
