package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/book-foundry/internal/artifact"
	"github.com/jonathan/book-foundry/internal/llm"
	"github.com/jonathan/book-foundry/internal/prompts"
	"github.com/jonathan/book-foundry/internal/storybible"
	"github.com/jonathan/book-foundry/internal/types"
)

// MinChapterChars is the default lower bound on formatted chapter length
// before the deterministic gate asks for a revision.
const MinChapterChars = 200

// QualityAgent gates the formatted artifact: verdict pass proceeds to
// publish, verdict revise loops back to content with structured feedback.
// With an LLM client configured the verdict comes from an editorial review;
// without one, deterministic checks decide.
type QualityAgent struct {
	llm       llm.Client // optional
	store     artifact.Store
	minLength int
}

// NewQualityAgent creates a quality agent. The LLM client may be nil, in
// which case only deterministic checks run.
func NewQualityAgent(client llm.Client, store artifact.Store) *QualityAgent {
	return &QualityAgent{llm: client, store: store, minLength: MinChapterChars}
}

// Stage returns the stage this agent performs.
func (a *QualityAgent) Stage() types.Stage { return types.StageQuality }

// Invoke reviews the formatted artifact and returns a verdict.
func (a *QualityAgent) Invoke(ctx context.Context, state *RunState, in Input) (Output, error) {
	formatted, err := a.store.Read(in.ArtifactRef)
	if err != nil {
		return Output{}, types.Fatal(types.StageQuality, err)
	}

	// Deterministic checks run first; they catch structural problems
	// without spending a model call.
	if fb := a.deterministicChecks(string(formatted)); fb != nil {
		return Output{ArtifactRef: in.ArtifactRef, Verdict: VerdictRevise, Feedback: fb}, nil
	}

	if a.llm == nil {
		return Output{ArtifactRef: in.ArtifactRef, Verdict: VerdictPass}, nil
	}

	gen := storybible.NewContextGenerator(state.Bible)
	prompt := prompts.Format(prompts.MustGet("book.json", "review"), map[string]string{
		"Title":       state.Config.Title,
		"ActivePlots": strings.Join(gen.GetActivePlots(), ", "),
		"Chapter":     string(formatted),
	})

	raw, err := a.llm.GenerateJSON(ctx, prompt, llm.TierReview)
	if err != nil {
		return Output{}, types.Retryable(types.StageQuality, err)
	}

	var review struct {
		Verdict string   `json:"verdict"`
		Summary string   `json:"summary"`
		Issues  []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(raw), &review); err != nil {
		return Output{}, types.Retryable(types.StageQuality, fmt.Errorf("unparseable review: %w", err))
	}

	if review.Verdict == string(VerdictRevise) {
		return Output{
			ArtifactRef: in.ArtifactRef,
			Verdict:     VerdictRevise,
			Feedback:    &QualityFeedback{Summary: review.Summary, Issues: review.Issues},
		}, nil
	}
	return Output{ArtifactRef: in.ArtifactRef, Verdict: VerdictPass}, nil
}

// deterministicChecks returns feedback when the artifact fails structural
// checks, or nil when it is acceptable.
func (a *QualityAgent) deterministicChecks(formatted string) *QualityFeedback {
	var issues []string
	if !strings.Contains(formatted, "<p>") {
		issues = append(issues, "chapter has no paragraphs")
	}
	if len(formatted) < a.minLength {
		issues = append(issues, fmt.Sprintf("chapter is too short (%d chars, need %d)", len(formatted), a.minLength))
	}
	if len(issues) == 0 {
		return nil
	}
	return &QualityFeedback{Summary: "chapter failed structural checks", Issues: issues}
}
