package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/book-foundry/internal/artifact"
	"github.com/jonathan/book-foundry/internal/types"
)

func writeFormatted(t *testing.T, store artifact.Store, body string) string {
	t.Helper()
	ref, err := store.Write("formatted", []byte(FormatChapter("T", 1, body)))
	require.NoError(t, err)
	return ref
}

func TestQualityAgent_PassWithoutLLM(t *testing.T) {
	store := artifact.NewMemStore()
	ref := writeFormatted(t, store, strings.Repeat("A solid paragraph of prose. ", 20))

	a := NewQualityAgent(nil, store)
	out, err := a.Invoke(context.Background(), &RunState{}, Input{ArtifactRef: ref})
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, out.Verdict)
	assert.Nil(t, out.Feedback)
}

func TestQualityAgent_ShortChapterRevises(t *testing.T) {
	store := artifact.NewMemStore()
	ref, err := store.Write("formatted", []byte("<p>tiny</p>"))
	require.NoError(t, err)

	a := NewQualityAgent(nil, store)
	out, err := a.Invoke(context.Background(), &RunState{}, Input{ArtifactRef: ref})
	require.NoError(t, err)
	assert.Equal(t, VerdictRevise, out.Verdict)
	require.NotNil(t, out.Feedback)
	assert.NotEmpty(t, out.Feedback.Issues)
}

func TestQualityAgent_LLMReviseVerdict(t *testing.T) {
	store := artifact.NewMemStore()
	ref := writeFormatted(t, store, strings.Repeat("A solid paragraph of prose. ", 20))

	client := &fakeLLM{json: `{"verdict": "revise", "summary": "flat", "issues": ["the heir never appears"]}`}
	a := NewQualityAgent(client, store)

	out, err := a.Invoke(context.Background(), &RunState{}, Input{ArtifactRef: ref})
	require.NoError(t, err)
	assert.Equal(t, VerdictRevise, out.Verdict)
	require.NotNil(t, out.Feedback)
	assert.Equal(t, []string{"the heir never appears"}, out.Feedback.Issues)
}

func TestQualityAgent_LLMPassVerdict(t *testing.T) {
	store := artifact.NewMemStore()
	ref := writeFormatted(t, store, strings.Repeat("A solid paragraph of prose. ", 20))

	client := &fakeLLM{json: `{"verdict": "pass", "summary": "good"}`}
	a := NewQualityAgent(client, store)

	out, err := a.Invoke(context.Background(), &RunState{}, Input{ArtifactRef: ref})
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, out.Verdict)
}

func TestQualityAgent_UnparseableReviewIsRetryable(t *testing.T) {
	store := artifact.NewMemStore()
	ref := writeFormatted(t, store, strings.Repeat("A solid paragraph of prose. ", 20))

	client := &fakeLLM{json: "not json at all"}
	a := NewQualityAgent(client, store)

	_, err := a.Invoke(context.Background(), &RunState{}, Input{ArtifactRef: ref})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}
