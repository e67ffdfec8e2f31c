package agent

import (
	"context"
	"sync"

	"github.com/jonathan/book-foundry/internal/images"
	"github.com/jonathan/book-foundry/internal/llm"
	"github.com/jonathan/book-foundry/internal/types"
)

// fakeLLM returns canned responses and records prompts.
type fakeLLM struct {
	mu      sync.Mutex
	text    string
	json    string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateText(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.json, f.err
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// fakeImages returns canned image URLs.
type fakeImages struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (f *fakeImages) Generate(_ context.Context, _ images.Request) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.urls, f.err
}

// fakeRenderer copies input to output and counts invocations.
type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSink records events handed to the monitor.
type fakeSink struct {
	mu     sync.Mutex
	events []types.Event
	err    error
}

func (f *fakeSink) RecordEvent(_ context.Context, ev types.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeSink) recorded() []types.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Event, len(f.events))
	copy(out, f.events)
	return out
}
