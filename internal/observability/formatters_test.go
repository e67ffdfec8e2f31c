package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/book-foundry/internal/storybible"
	"github.com/jonathan/book-foundry/internal/types"
)

func TestPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	run := &types.Run{
		ID:        uuid.New(),
		Config:    types.RunConfig{Title: "The Harbor", Chapter: 2},
		Status:    types.RunFailed,
		Revisions: 1,
		Stages: []types.StageResult{
			{Stage: types.StageContent, Status: "succeeded"},
			{Stage: types.StageFormat, Status: "failed", ErrorDetail: "boom", Retries: 2},
		},
	}
	p.PrintRun(run)

	out := buf.String()
	assert.Contains(t, out, "Pipeline Run")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "The Harbor")
	assert.Contains(t, out, "content")
	assert.Contains(t, out, "retries=2")
}

func TestPrintRun_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRun(nil)
	assert.Empty(t, buf.String())
}

func TestPrintStoryBible(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	bible := storybible.New(
		[]storybible.Character{{Name: "Mara", Traits: []string{"stubborn"}}},
		[]storybible.PlotThread{
			{ID: "p1", Description: "the stolen ledger"},
			{ID: "p2", Description: "the harbor fire", Resolved: true},
		},
	)
	p.PrintStoryBible(bible)

	out := buf.String()
	assert.Contains(t, out, "Mara")
	assert.Contains(t, out, "stubborn")
	assert.Contains(t, out, "[open] the stolen ledger")
	assert.Contains(t, out, "[resolved] the harbor fire")
}

func TestPrintStoryBible_TruncatesLongLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var chars []storybible.Character
	for i := 0; i < 8; i++ {
		chars = append(chars, storybible.Character{Name: "Character"})
	}
	p.PrintStoryBible(storybible.New(chars, nil))

	assert.Contains(t, buf.String(), "and 3 more")
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	ts := time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC)
	p.PrintEvent(types.Event{RunID: uuid.New(), Stage: types.StageContent, Status: "succeeded", Timestamp: ts})
	p.PrintEvent(types.Event{RunID: uuid.New(), Status: "running", Timestamp: ts})

	out := buf.String()
	assert.Contains(t, out, "content: succeeded")
	assert.Contains(t, out, "run running")
}
