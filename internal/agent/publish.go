package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/book-foundry/internal/artifact"
	"github.com/jonathan/book-foundry/internal/render"
	"github.com/jonathan/book-foundry/internal/types"
)

// PublishAgent produces the final published artifact. Publishing is the only
// stage with an irreversible external effect, so invocations are idempotent
// per run: the run id is the idempotency key and a duplicate trigger returns
// the already-published reference.
type PublishAgent struct {
	renderer render.Renderer
	store    artifact.Store

	mu        sync.Mutex
	published map[uuid.UUID]string
}

// NewPublishAgent creates a publish agent.
func NewPublishAgent(renderer render.Renderer, store artifact.Store) *PublishAgent {
	return &PublishAgent{
		renderer:  renderer,
		store:     store,
		published: make(map[uuid.UUID]string),
	}
}

// Stage returns the stage this agent performs.
func (a *PublishAgent) Stage() types.Stage { return types.StagePublish }

// Invoke renders the quality-approved artifact to the run's output target.
func (a *PublishAgent) Invoke(ctx context.Context, state *RunState, in Input) (Output, error) {
	a.mu.Lock()
	if ref, ok := a.published[state.RunID]; ok {
		a.mu.Unlock()
		return Output{ArtifactRef: ref}, nil
	}
	a.mu.Unlock()

	approved, err := a.store.Read(in.ArtifactRef)
	if err != nil {
		return Output{}, types.Fatal(types.StagePublish, err)
	}

	// Stage the approved artifact as a file for the converter
	tmp, err := os.CreateTemp("", "publish-*.html")
	if err != nil {
		return Output{}, types.Fatal(types.StagePublish, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(approved); err != nil {
		_ = tmp.Close()
		return Output{}, types.Fatal(types.StagePublish, err)
	}
	if err := tmp.Close(); err != nil {
		return Output{}, types.Fatal(types.StagePublish, err)
	}

	target := state.Config.OutputTarget
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Output{}, types.Fatal(types.StagePublish, fmt.Errorf("failed to create output dir: %w", err))
		}
	}

	if err := a.renderer.Render(ctx, tmpPath, target); err != nil {
		if render.IsNonRecoverable(err) {
			return Output{}, types.Fatal(types.StagePublish, err)
		}
		return Output{}, types.Retryable(types.StagePublish, err)
	}

	a.mu.Lock()
	a.published[state.RunID] = target
	a.mu.Unlock()
	return Output{ArtifactRef: target}, nil
}
