package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/book-foundry/internal/artifact"
	"github.com/jonathan/book-foundry/internal/images"
	"github.com/jonathan/book-foundry/internal/llm"
	"github.com/jonathan/book-foundry/internal/prompts"
	"github.com/jonathan/book-foundry/internal/storybible"
	"github.com/jonathan/book-foundry/internal/types"
)

// ContentAgent drafts (or revises) chapter text. Every active plot thread in
// the story bible is incorporated into the generation context so the draft
// cannot silently drop narrative threads.
type ContentAgent struct {
	llm    llm.Client
	store  artifact.Store
	images images.Provider // optional cover/illustration capability
}

// NewContentAgent creates a content agent. The images provider may be nil
// when no cover generation is configured.
func NewContentAgent(client llm.Client, store artifact.Store, imgs images.Provider) *ContentAgent {
	return &ContentAgent{llm: client, store: store, images: imgs}
}

// Stage returns the stage this agent performs.
func (a *ContentAgent) Stage() types.Stage { return types.StageContent }

// Invoke generates a draft, or a revision when feedback is present.
func (a *ContentAgent) Invoke(ctx context.Context, state *RunState, in Input) (Output, error) {
	if a.llm == nil {
		return Output{}, types.Fatal(types.StageContent, fmt.Errorf("no LLM client configured"))
	}

	gen := storybible.NewContextGenerator(state.Bible)
	data := map[string]string{
		"Title":       state.Config.Title,
		"Chapter":     strconv.Itoa(state.Config.Chapter),
		"Consistency": gen.ConsistencyContext(),
		"Manuscript":  state.Manuscript,
	}

	var prompt string
	if in.Feedback != nil {
		previous, err := a.store.Read(in.ArtifactRef)
		if err != nil {
			return Output{}, types.Fatal(types.StageContent, fmt.Errorf("previous draft unavailable: %w", err))
		}
		data["Draft"] = string(previous)
		data["Feedback"] = formatFeedback(in.Feedback)
		prompt = prompts.Format(prompts.MustGet("book.json", "revise"), data)
	} else {
		prompt = prompts.Format(prompts.MustGet("book.json", "draft"), data)
	}

	// The draft and the cover image come from independent providers, so
	// generate them concurrently.
	var text, coverURL string
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := a.llm.GenerateText(gCtx, prompt, llm.TierDrafting)
		if err != nil {
			// Provider errors (timeouts, quota) are transient
			return types.Retryable(types.StageContent, err)
		}
		if strings.TrimSpace(out) == "" {
			return types.Retryable(types.StageContent, fmt.Errorf("model returned an empty draft"))
		}
		text = out
		return nil
	})
	if state.Config.CoverPrompt != "" && a.images != nil {
		g.Go(func() error {
			urls, err := a.images.Generate(gCtx, images.Request{
				Prompt: state.Config.CoverPrompt,
				Size:   "1024x1024",
				Count:  1,
			})
			if err != nil {
				return types.Retryable(types.StageContent, fmt.Errorf("cover generation failed: %w", err))
			}
			coverURL = urls[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Output{}, err
	}
	if coverURL != "" {
		text = fmt.Sprintf("[cover: %s]\n\n%s", coverURL, text)
	}

	ref, err := a.store.Write("draft", []byte(text))
	if err != nil {
		return Output{}, types.Fatal(types.StageContent, err)
	}
	return Output{ArtifactRef: ref}, nil
}

// formatFeedback renders quality feedback as a numbered list for the
// revision prompt.
func formatFeedback(fb *QualityFeedback) string {
	var sb strings.Builder
	if fb.Summary != "" {
		sb.WriteString(fb.Summary + "\n")
	}
	for i, issue := range fb.Issues {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue))
	}
	return sb.String()
}
