// Package pipeline provides the high-level orchestration for the book
// production process.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/book-foundry/internal/agent"
	"github.com/jonathan/book-foundry/internal/config"
	"github.com/jonathan/book-foundry/internal/ingest"
	"github.com/jonathan/book-foundry/internal/storybible"
	"github.com/jonathan/book-foundry/internal/types"
)

// Notifier receives progress events. Delivery is fire-and-forget: the
// controller never waits on a notifier and a notifier failure never affects
// a run.
type Notifier interface {
	Broadcast(ev types.Event)
}

// RunRecorder persists run lifecycle records. Persistence is best-effort;
// a recorder failure is logged and the run continues.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *types.Run) error
	RecordStageResult(ctx context.Context, runID uuid.UUID, res types.StageResult) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status types.RunStatus) error
}

// Options configures a Controller. Agents is required; everything else is
// optional.
type Options struct {
	Agents   []agent.Agent
	Policy   config.Policy
	Notifier Notifier
	Monitor  *agent.MonitorAgent
	Recorder RunRecorder
}

// Controller owns all pipeline runs. Stages execute strictly sequentially
// within a run; distinct runs are fully independent.
type Controller struct {
	agents   map[types.Stage]agent.Agent
	policy   config.Policy
	notifier Notifier
	monitor  *agent.MonitorAgent
	recorder RunRecorder

	mu   sync.Mutex
	runs map[uuid.UUID]*runEntry
}

// runEntry is the controller's private per-run state. The embedded run is
// mutated only under the controller mutex.
type runEntry struct {
	run   *types.Run
	state *agent.RunState

	abortOnce sync.Once
	abort     chan struct{}
	done      chan struct{}
}

func (e *runEntry) aborted() bool {
	select {
	case <-e.abort:
		return true
	default:
		return false
	}
}

// NewController creates a controller from the given options. Every stage in
// the execution order must have an agent registered for it.
func NewController(opts Options) (*Controller, error) {
	agents := make(map[types.Stage]agent.Agent, len(opts.Agents))
	for _, a := range opts.Agents {
		if _, dup := agents[a.Stage()]; dup {
			return nil, fmt.Errorf("duplicate agent for stage %s", a.Stage())
		}
		agents[a.Stage()] = a
	}
	for _, stage := range types.StageOrder {
		if _, ok := agents[stage]; !ok {
			return nil, fmt.Errorf("no agent registered for stage %s", stage)
		}
	}

	policy := opts.Policy
	if policy.MaxStageAttempts == 0 {
		policy = config.DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Controller{
		agents:   agents,
		policy:   policy,
		notifier: opts.Notifier,
		monitor:  opts.Monitor,
		recorder: opts.Recorder,
		runs:     make(map[uuid.UUID]*runEntry),
	}, nil
}

// Start validates the configuration, creates a run and begins executing it
// asynchronously. It returns the run id immediately; progress is observed
// via Status, Wait and the event stream.
func (c *Controller) Start(ctx context.Context, cfg types.RunConfig) (uuid.UUID, error) {
	if err := cfg.Validate(); err != nil {
		return uuid.Nil, err
	}

	bible, err := storybible.Load(cfg.StoryBible)
	if err != nil {
		return uuid.Nil, &types.ConfigError{Err: fmt.Errorf("failed to load story bible: %w", err)}
	}
	manuscript, err := ingest.LoadContext(cfg.ManuscriptSource)
	if err != nil {
		return uuid.Nil, &types.ConfigError{Err: fmt.Errorf("failed to load manuscript: %w", err)}
	}

	run := &types.Run{
		ID:        uuid.New(),
		Config:    cfg,
		Status:    types.RunPending,
		CreatedAt: time.Now(),
	}
	entry := &runEntry{
		run: run,
		state: &agent.RunState{
			RunID:      run.ID,
			Config:     cfg,
			Bible:      bible,
			Manuscript: manuscript,
		},
		abort: make(chan struct{}),
		done:  make(chan struct{}),
	}

	c.mu.Lock()
	c.runs[run.ID] = entry
	c.mu.Unlock()

	if c.recorder != nil {
		if err := c.recorder.CreateRun(ctx, run); err != nil {
			log.Printf("[pipeline] failed to persist run %s: %v", run.ID, err)
		}
	}

	go c.execute(ctx, entry)
	return run.ID, nil
}

// Status returns a snapshot of the run, or an error for an unknown id.
func (c *Controller) Status(runID uuid.UUID) (*types.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.runs[runID]
	if !ok {
		return nil, fmt.Errorf("unknown run: %s", runID)
	}
	return entry.run.Clone(), nil
}

// Runs returns snapshots of all known runs.
func (c *Controller) Runs() []*types.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Run, 0, len(c.runs))
	for _, entry := range c.runs {
		out = append(out, entry.run.Clone())
	}
	return out
}

// Abort requests cancellation of a run. The in-flight stage finishes; the
// run stops at the next stage boundary. Aborting a terminal run is a no-op.
func (c *Controller) Abort(runID uuid.UUID) error {
	c.mu.Lock()
	entry, ok := c.runs[runID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown run: %s", runID)
	}
	entry.abortOnce.Do(func() { close(entry.abort) })
	return nil
}

// Wait blocks until the run reaches a terminal state or the context ends.
func (c *Controller) Wait(ctx context.Context, runID uuid.UUID) (*types.Run, error) {
	c.mu.Lock()
	entry, ok := c.runs[runID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown run: %s", runID)
	}
	select {
	case <-entry.done:
		return c.Status(runID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// execute drives a run through the stage order. Quality review may loop the
// run back to content drafting up to the policy's revision bound.
func (c *Controller) execute(ctx context.Context, entry *runEntry) {
	defer close(entry.done)
	run := entry.run

	c.setStatus(run, types.RunRunning)
	c.notify(types.Event{RunID: run.ID, Status: string(types.RunRunning), Timestamp: time.Now()})

	outputs := make(map[types.Stage]string)
	var feedback *agent.QualityFeedback

	idx := 0
	for idx < len(types.StageOrder) {
		if entry.aborted() {
			c.finish(ctx, entry, types.RunAborted)
			return
		}

		stage := types.StageOrder[idx]
		c.setCurrentStage(run, stage)

		in := agent.Input{}
		switch stage {
		case types.StageContent:
			in = agent.Input{ArtifactRef: outputs[types.StageContent], Feedback: feedback}
		case types.StageFormat:
			in = agent.Input{ArtifactRef: outputs[types.StageContent]}
		case types.StageQuality, types.StagePublish:
			in = agent.Input{ArtifactRef: outputs[types.StageFormat]}
		}

		out, res, err := c.runStage(ctx, entry.state, stage, in)
		c.appendResult(ctx, run, res)
		c.notify(types.Event{
			RunID:     run.ID,
			Stage:     stage,
			Status:    res.Status,
			Timestamp: time.Now(),
			Payload:   map[string]any{"retries": res.Retries, "artifact_ref": res.ArtifactRef},
		})

		if err != nil {
			log.Printf("[pipeline] run %s failed at stage %s: %v", run.ID, stage, err)
			c.finish(ctx, entry, types.RunFailed)
			return
		}
		outputs[stage] = out.ArtifactRef

		if stage == types.StageQuality && out.Verdict == agent.VerdictRevise {
			revisions := c.bumpRevisions(run)
			if revisions > c.policy.MaxRevisions {
				log.Printf("[pipeline] run %s exhausted revision bound (%d)", run.ID, c.policy.MaxRevisions)
				c.appendResult(ctx, run, types.StageResult{
					Stage:       types.StageQuality,
					Status:      "failed",
					ErrorDetail: fmt.Sprintf("revision limit exceeded after %d revisions", c.policy.MaxRevisions),
				})
				c.finish(ctx, entry, types.RunFailed)
				return
			}
			feedback = out.Feedback
			idx = 0
			continue
		}

		idx++
	}

	c.finish(ctx, entry, types.RunSucceeded)
}

// runStage invokes one agent with the controller's retry policy. The backoff
// doubles between attempts; a fatal failure or an exhausted bound ends the
// stage with a failed result.
func (c *Controller) runStage(ctx context.Context, state *agent.RunState, stage types.Stage, in agent.Input) (agent.Output, types.StageResult, error) {
	ag := c.agents[stage]
	start := time.Now()
	backoff := c.policy.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxStageAttempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if c.policy.StageTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.policy.StageTimeout)
		}
		out, err := ag.Invoke(attemptCtx, state, in)
		cancel()

		if err == nil {
			return out, types.StageResult{
				Stage:       stage,
				Status:      "succeeded",
				ArtifactRef: out.ArtifactRef,
				Duration:    time.Since(start),
				Retries:     attempt - 1,
			}, nil
		}
		lastErr = err

		if !types.IsRetryable(err) {
			log.Printf("[pipeline] stage %s fatal failure on attempt %d: %v", stage, attempt, err)
			return agent.Output{}, types.StageResult{
				Stage:       stage,
				Status:      "failed",
				ErrorDetail: err.Error(),
				Duration:    time.Since(start),
				Retries:     attempt - 1,
			}, err
		}

		if attempt < c.policy.MaxStageAttempts {
			log.Printf("[pipeline] stage %s attempt %d failed, retrying in %s: %v", stage, attempt, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return agent.Output{}, types.StageResult{
					Stage:       stage,
					Status:      "failed",
					ErrorDetail: ctx.Err().Error(),
					Duration:    time.Since(start),
					Retries:     attempt - 1,
				}, ctx.Err()
			}
			backoff *= 2
		}
	}

	// Retry bound exhausted: the failure is now fatal regardless of kind.
	err := types.Fatal(stage, fmt.Errorf("retry bound exhausted after %d attempts: %w", c.policy.MaxStageAttempts, lastErr))
	return agent.Output{}, types.StageResult{
		Stage:       stage,
		Status:      "failed",
		ErrorDetail: err.Error(),
		Duration:    time.Since(start),
		Retries:     c.policy.MaxStageAttempts - 1,
	}, err
}

// notify fans an event out to the notifier and the monitor. It must never
// block or panic the pipeline.
func (c *Controller) notify(ev types.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[pipeline] notifier panicked: %v", r)
		}
	}()
	if c.notifier != nil {
		c.notifier.Broadcast(ev)
	}
	if c.monitor != nil {
		c.monitor.Observe(ev)
	}
}

func (c *Controller) setStatus(run *types.Run, status types.RunStatus) {
	c.mu.Lock()
	run.Status = status
	c.mu.Unlock()
}

func (c *Controller) setCurrentStage(run *types.Run, stage types.Stage) {
	c.mu.Lock()
	run.CurrentStage = stage
	c.mu.Unlock()
}

func (c *Controller) bumpRevisions(run *types.Run) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	run.Revisions++
	return run.Revisions
}

func (c *Controller) appendResult(ctx context.Context, run *types.Run, res types.StageResult) {
	c.mu.Lock()
	run.Stages = append(run.Stages, res)
	c.mu.Unlock()

	if c.recorder != nil {
		if err := c.recorder.RecordStageResult(ctx, run.ID, res); err != nil {
			log.Printf("[pipeline] failed to persist stage result for run %s: %v", run.ID, err)
		}
	}
}

func (c *Controller) finish(ctx context.Context, entry *runEntry, status types.RunStatus) {
	run := entry.run

	c.mu.Lock()
	run.Status = status
	run.CurrentStage = ""
	now := time.Now()
	run.CompletedAt = &now
	c.mu.Unlock()

	c.notify(types.Event{RunID: run.ID, Status: string(status), Timestamp: now})

	if c.recorder != nil {
		if err := c.recorder.CompleteRun(ctx, run.ID, status); err != nil {
			log.Printf("[pipeline] failed to persist completion for run %s: %v", run.ID, err)
		}
	}
	log.Printf("[pipeline] run %s finished: %s", run.ID, status)
}
