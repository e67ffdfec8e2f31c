package types

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatus_Terminal(t *testing.T) {
	assert.False(t, RunPending.Terminal())
	assert.False(t, RunRunning.Terminal())
	assert.True(t, RunSucceeded.Terminal())
	assert.True(t, RunFailed.Terminal())
	assert.True(t, RunAborted.Terminal())
}

func TestRun_LastResult(t *testing.T) {
	run := &Run{ID: uuid.New()}
	assert.Nil(t, run.LastResult())

	run.Stages = append(run.Stages,
		StageResult{Stage: StageContent, Status: "succeeded"},
		StageResult{Stage: StageFormat, Status: "failed"},
	)
	last := run.LastResult()
	require.NotNil(t, last)
	assert.Equal(t, StageFormat, last.Stage)
}

func TestRun_CloneIsIndependent(t *testing.T) {
	now := time.Now()
	run := &Run{
		ID:          uuid.New(),
		Stages:      []StageResult{{Stage: StageContent, Status: "succeeded"}},
		Status:      RunSucceeded,
		CompletedAt: &now,
	}

	clone := run.Clone()
	clone.Stages[0].Status = "tampered"
	*clone.CompletedAt = now.Add(time.Hour)

	assert.Equal(t, "succeeded", run.Stages[0].Status)
	assert.True(t, run.CompletedAt.Equal(now))
}

func TestRunConfig_Validate(t *testing.T) {
	valid := &RunConfig{ManuscriptSource: "ms.txt", OutputTarget: "out.pdf"}
	assert.NoError(t, valid.Validate())

	missing := &RunConfig{OutputTarget: "out.pdf"}
	err := missing.Validate()
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestStageErrorClassification(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsRetryable(Retryable(StageContent, base)))
	assert.False(t, IsRetryable(Fatal(StageContent, base)))
	// Unclassified errors are treated as fatal
	assert.False(t, IsRetryable(base))
	assert.False(t, IsRetryable(nil))

	// Wrapping preserves the classification and the cause
	wrapped := Retryable(StagePublish, base)
	assert.True(t, errors.Is(wrapped, base))
	var se *StageError
	require.True(t, errors.As(wrapped, &se))
	assert.Equal(t, StagePublish, se.Stage)
	assert.Equal(t, "retryable", se.Kind.String())
}
