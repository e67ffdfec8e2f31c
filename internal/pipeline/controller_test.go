package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/book-foundry/internal/agent"
	"github.com/jonathan/book-foundry/internal/config"
	"github.com/jonathan/book-foundry/internal/types"
)

// stageAgent is a scriptable agent for exercising the controller.
type stageAgent struct {
	stage types.Stage

	mu     sync.Mutex
	calls  int
	inputs []agent.Input
	fn     func(call int, in agent.Input) (agent.Output, error)
}

func (a *stageAgent) Stage() types.Stage { return a.stage }

func (a *stageAgent) Invoke(_ context.Context, _ *agent.RunState, in agent.Input) (agent.Output, error) {
	a.mu.Lock()
	a.calls++
	call := a.calls
	a.inputs = append(a.inputs, in)
	fn := a.fn
	a.mu.Unlock()
	if fn != nil {
		return fn(call, in)
	}
	return agent.Output{ArtifactRef: fmt.Sprintf("%s-%d", a.stage, call), Verdict: agent.VerdictPass}, nil
}

func (a *stageAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *stageAgent) input(i int) agent.Input {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inputs[i]
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []types.Event
	panics bool
}

func (n *recordingNotifier) Broadcast(ev types.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panics {
		panic("notifier exploded")
	}
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) recorded() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.Event, len(n.events))
	copy(out, n.events)
	return out
}

func fastPolicy() config.Policy {
	return config.Policy{
		MaxStageAttempts: 3,
		RetryBackoff:     time.Millisecond,
		MaxRevisions:     2,
	}
}

func testRunConfig(t *testing.T) types.RunConfig {
	t.Helper()
	dir := t.TempDir()
	ms := filepath.Join(dir, "ms.txt")
	require.NoError(t, os.WriteFile(ms, []byte("The ship had not returned."), 0o644))
	return types.RunConfig{
		ManuscriptSource: ms,
		OutputTarget:     filepath.Join(dir, "book.pdf"),
		Title:            "The Harbor",
		Chapter:          1,
	}
}

func newAgents() (content, format, quality, publish *stageAgent) {
	content = &stageAgent{stage: types.StageContent}
	format = &stageAgent{stage: types.StageFormat}
	quality = &stageAgent{stage: types.StageQuality}
	publish = &stageAgent{stage: types.StagePublish}
	return
}

func newTestController(t *testing.T, policy config.Policy, notifier Notifier, agents ...agent.Agent) *Controller {
	t.Helper()
	c, err := NewController(Options{Agents: agents, Policy: policy, Notifier: notifier})
	require.NoError(t, err)
	return c
}

func waitForRun(t *testing.T, c *Controller, runID uuid.UUID) *types.Run {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run, err := c.Wait(ctx, runID)
	require.NoError(t, err)
	return run
}

func TestController_SuccessfulRunPublishesOnce(t *testing.T) {
	content, format, quality, publish := newAgents()
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunSucceeded, run.Status)
	assert.Equal(t, 1, publish.callCount())
	require.NotNil(t, run.CompletedAt)

	// One result per stage, in execution order
	require.Len(t, run.Stages, 4)
	for i, stage := range types.StageOrder {
		assert.Equal(t, stage, run.Stages[i].Stage)
		assert.Equal(t, "succeeded", run.Stages[i].Status)
	}

	// Artifacts flow forward between stages
	assert.Equal(t, "content-1", format.input(0).ArtifactRef)
	assert.Equal(t, "format-1", quality.input(0).ArtifactRef)
	assert.Equal(t, "format-1", publish.input(0).ArtifactRef)
}

func TestController_RejectsInvalidConfig(t *testing.T) {
	content, format, quality, publish := newAgents()
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	_, err := c.Start(context.Background(), types.RunConfig{})
	require.Error(t, err)
	assert.True(t, types.IsConfigError(err))
	assert.Equal(t, 0, content.callCount())
}

func TestController_RetryableFailureRecovers(t *testing.T) {
	content, format, quality, publish := newAgents()
	format.fn = func(call int, _ agent.Input) (agent.Output, error) {
		if call < 3 {
			return agent.Output{}, types.Retryable(types.StageFormat, errors.New("transient"))
		}
		return agent.Output{ArtifactRef: "formatted"}, nil
	}
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunSucceeded, run.Status)
	assert.Equal(t, 3, format.callCount())
	assert.Equal(t, 2, run.Stages[1].Retries)
	assert.Equal(t, 1, publish.callCount())
}

func TestController_RetryBoundExhaustionFailsRun(t *testing.T) {
	content, format, quality, publish := newAgents()
	format.fn = func(int, agent.Input) (agent.Output, error) {
		return agent.Output{}, types.Retryable(types.StageFormat, errors.New("still down"))
	}
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunFailed, run.Status)
	assert.Equal(t, 3, format.callCount())
	assert.Equal(t, 0, publish.callCount())

	last := run.LastResult()
	require.NotNil(t, last)
	assert.Equal(t, types.StageFormat, last.Stage)
	assert.Equal(t, "failed", last.Status)
	assert.Contains(t, last.ErrorDetail, "retry bound exhausted")
}

func TestController_FatalFailureSkipsRetries(t *testing.T) {
	content, format, quality, publish := newAgents()
	content.fn = func(int, agent.Input) (agent.Output, error) {
		return agent.Output{}, types.Fatal(types.StageContent, errors.New("bad state"))
	}
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunFailed, run.Status)
	assert.Equal(t, 1, content.callCount())
	assert.Equal(t, 0, format.callCount())
}

func TestController_RevisionLoopCarriesFeedback(t *testing.T) {
	content, format, quality, publish := newAgents()
	quality.fn = func(call int, in agent.Input) (agent.Output, error) {
		if call == 1 {
			return agent.Output{
				ArtifactRef: in.ArtifactRef,
				Verdict:     agent.VerdictRevise,
				Feedback:    &agent.QualityFeedback{Summary: "flat", Issues: []string{"no tension"}},
			}, nil
		}
		return agent.Output{ArtifactRef: in.ArtifactRef, Verdict: agent.VerdictPass}, nil
	}
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunSucceeded, run.Status)
	assert.Equal(t, 1, run.Revisions)
	assert.Equal(t, 2, content.callCount())
	assert.Equal(t, 1, publish.callCount())

	// First draft gets no feedback; the revision gets the reviewer's notes
	// and the previous draft reference.
	assert.Nil(t, content.input(0).Feedback)
	second := content.input(1)
	require.NotNil(t, second.Feedback)
	assert.Equal(t, []string{"no tension"}, second.Feedback.Issues)
	assert.Equal(t, "content-1", second.ArtifactRef)
}

func TestController_RevisionBoundExhaustionFailsWithoutPublish(t *testing.T) {
	content, format, quality, publish := newAgents()
	quality.fn = func(_ int, in agent.Input) (agent.Output, error) {
		return agent.Output{
			ArtifactRef: in.ArtifactRef,
			Verdict:     agent.VerdictRevise,
			Feedback:    &agent.QualityFeedback{Summary: "never good enough"},
		}, nil
	}
	policy := fastPolicy()
	policy.MaxRevisions = 1
	c := newTestController(t, policy, nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunFailed, run.Status)
	assert.Equal(t, 0, publish.callCount())
	// Initial draft plus one permitted revision
	assert.Equal(t, 2, content.callCount())

	last := run.LastResult()
	require.NotNil(t, last)
	assert.Contains(t, last.ErrorDetail, "revision limit exceeded")
}

func TestController_NotifierPanicDoesNotFailRun(t *testing.T) {
	content, format, quality, publish := newAgents()
	notifier := &recordingNotifier{panics: true}
	c := newTestController(t, fastPolicy(), notifier, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunSucceeded, run.Status)
	assert.Equal(t, 1, publish.callCount())
}

func TestController_EventsEmittedPerStage(t *testing.T) {
	content, format, quality, publish := newAgents()
	notifier := &recordingNotifier{}
	c := newTestController(t, fastPolicy(), notifier, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)
	waitForRun(t, c, runID)

	events := notifier.recorded()
	// running + 4 stage events + terminal
	require.Len(t, events, 6)
	assert.Equal(t, string(types.RunRunning), events[0].Status)
	for i, stage := range types.StageOrder {
		assert.Equal(t, stage, events[i+1].Stage)
		assert.Equal(t, "succeeded", events[i+1].Status)
	}
	assert.Equal(t, string(types.RunSucceeded), events[5].Status)
	for _, ev := range events {
		assert.Equal(t, runID, ev.RunID)
	}
}

func TestController_AbortStopsAtStageBoundary(t *testing.T) {
	content, format, quality, publish := newAgents()
	started := make(chan struct{})
	release := make(chan struct{})
	content.fn = func(int, agent.Input) (agent.Output, error) {
		close(started)
		<-release
		return agent.Output{ArtifactRef: "draft"}, nil
	}
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)

	<-started
	require.NoError(t, c.Abort(runID))
	close(release)

	run := waitForRun(t, c, runID)
	assert.Equal(t, types.RunAborted, run.Status)
	// The in-flight stage finished and was recorded; nothing after it ran.
	require.Len(t, run.Stages, 1)
	assert.Equal(t, types.StageContent, run.Stages[0].Stage)
	assert.Equal(t, "succeeded", run.Stages[0].Status)
	assert.Equal(t, 0, format.callCount())
	assert.Equal(t, 0, publish.callCount())
}

func TestController_AbortUnknownRun(t *testing.T) {
	content, format, quality, publish := newAgents()
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)
	assert.Error(t, c.Abort(uuid.New()))
}

func TestController_ConcurrentRunsAreIsolated(t *testing.T) {
	content, format, quality, publish := newAgents()
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	idA, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)
	idB, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)
	require.NotEqual(t, idA, idB)

	runA := waitForRun(t, c, idA)
	runB := waitForRun(t, c, idB)

	assert.Equal(t, types.RunSucceeded, runA.Status)
	assert.Equal(t, types.RunSucceeded, runB.Status)
	assert.Len(t, runA.Stages, 4)
	assert.Len(t, runB.Stages, 4)
	assert.Equal(t, 2, publish.callCount())
	assert.Len(t, c.Runs(), 2)
}

func TestController_StatusReturnsSnapshot(t *testing.T) {
	content, format, quality, publish := newAgents()
	c := newTestController(t, fastPolicy(), nil, content, format, quality, publish)

	runID, err := c.Start(context.Background(), testRunConfig(t))
	require.NoError(t, err)
	waitForRun(t, c, runID)

	snap, err := c.Status(runID)
	require.NoError(t, err)
	snap.Stages[0].Status = "tampered"

	fresh, err := c.Status(runID)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", fresh.Stages[0].Status)

	_, err = c.Status(uuid.New())
	assert.Error(t, err)
}

func TestNewController_RequiresAllStages(t *testing.T) {
	content, format, quality, _ := newAgents()
	_, err := NewController(Options{Agents: []agent.Agent{content, format, quality}, Policy: fastPolicy()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish")
}
