// Package storybible provides the narrative consistency model consumed by
// content generation: characters, plot threads, and queries over them.
package storybible

import (
	"fmt"
	"strings"
	"sync"
)

// Character describes one recurring character in the story bible.
type Character struct {
	Name   string   `json:"name"`
	Traits []string `json:"traits,omitempty"`
	Arc    string   `json:"arc,omitempty"`
}

// PlotThread is one narrative thread. Resolved is monotonic within a run:
// once a thread is resolved it never becomes unresolved again.
type PlotThread struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Resolved    bool   `json:"resolved"`
}

// StoryBible holds the consistency data for one run. It is owned by the run
// and safe for concurrent readers.
type StoryBible struct {
	mu         sync.RWMutex
	characters []Character
	threads    []PlotThread
}

// New creates a StoryBible from the given characters and threads, preserving
// thread order.
func New(characters []Character, threads []PlotThread) *StoryBible {
	b := &StoryBible{}
	b.characters = append(b.characters, characters...)
	b.threads = append(b.threads, threads...)
	return b
}

// Characters returns a copy of the character list.
func (b *StoryBible) Characters() []Character {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Character, len(b.characters))
	copy(out, b.characters)
	return out
}

// Threads returns a copy of the plot thread list in source order.
func (b *StoryBible) Threads() []PlotThread {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PlotThread, len(b.threads))
	copy(out, b.threads)
	return out
}

// Resolve marks the thread with the given id as resolved. Resolving an
// already-resolved thread is a no-op; there is deliberately no way to
// unresolve a thread.
func (b *StoryBible) Resolve(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.threads {
		if b.threads[i].ID == id {
			b.threads[i].Resolved = true
			return nil
		}
	}
	return fmt.Errorf("unknown plot thread %q", id)
}

// ContextGenerator answers consistency queries over a StoryBible. All queries
// are pure and safe to call repeatedly and concurrently.
type ContextGenerator struct {
	bible *StoryBible
}

// NewContextGenerator creates a generator over bible. A nil bible behaves
// like an empty one.
func NewContextGenerator(bible *StoryBible) *ContextGenerator {
	return &ContextGenerator{bible: bible}
}

// GetActivePlots returns the ids of all unresolved plot threads in the
// bible's thread order. An empty or absent bible yields an empty slice.
// The active set is recomputed on every call, never cached.
func (g *ContextGenerator) GetActivePlots() []string {
	active := []string{}
	if g == nil || g.bible == nil {
		return active
	}
	for _, t := range g.bible.Threads() {
		if !t.Resolved {
			active = append(active, t.ID)
		}
	}
	return active
}

// ConsistencyContext renders the characters and unresolved threads as prompt
// context for the content stage.
func (g *ContextGenerator) ConsistencyContext() string {
	if g == nil || g.bible == nil {
		return ""
	}
	var sb strings.Builder
	chars := g.bible.Characters()
	if len(chars) > 0 {
		sb.WriteString("Characters:\n")
		for _, c := range chars {
			sb.WriteString("- " + c.Name)
			if len(c.Traits) > 0 {
				sb.WriteString(" (" + strings.Join(c.Traits, ", ") + ")")
			}
			if c.Arc != "" {
				sb.WriteString(": " + c.Arc)
			}
			sb.WriteString("\n")
		}
	}
	var open []PlotThread
	for _, t := range g.bible.Threads() {
		if !t.Resolved {
			open = append(open, t)
		}
	}
	if len(open) > 0 {
		sb.WriteString("Active plot threads (all must be honored):\n")
		for _, t := range open {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", t.ID, t.Description))
		}
	}
	return sb.String()
}
