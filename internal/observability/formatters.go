// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/book-foundry/internal/storybible"
	"github.com/jonathan/book-foundry/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRun outputs a human-readable summary of a run and its stage log.
func (p *Printer) PrintRun(run *types.Run) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", run.Status))
	if run.Config.Title != "" {
		sb.WriteString(fmt.Sprintf("Title:     %s (chapter %d)\n", run.Config.Title, run.Config.Chapter))
	}
	if run.Revisions > 0 {
		sb.WriteString(fmt.Sprintf("Revisions: %d\n", run.Revisions))
	}

	if len(run.Stages) > 0 {
		sb.WriteString("\nStages:\n")
		for _, res := range run.Stages {
			sb.WriteString(fmt.Sprintf("  %-8s %-9s retries=%d\n", res.Stage, res.Status, res.Retries))
			if res.ErrorDetail != "" {
				sb.WriteString(fmt.Sprintf("           %s\n", res.ErrorDetail))
			}
		}
	}

	p.printBox("Pipeline Run", strings.TrimRight(sb.String(), "\n"))
}

// PrintStoryBible outputs a human-readable summary of the loaded story bible.
func (p *Printer) PrintStoryBible(bible *storybible.StoryBible) {
	if bible == nil {
		return
	}

	var sb strings.Builder

	characters := bible.Characters()
	if len(characters) > 0 {
		sb.WriteString("Characters:\n")
		count := min(len(characters), maxItemsToShow)
		for i := 0; i < count; i++ {
			ch := characters[i]
			sb.WriteString(fmt.Sprintf("  • %s", ch.Name))
			if len(ch.Traits) > 0 {
				sb.WriteString(fmt.Sprintf(" (%s)", strings.Join(ch.Traits, ", ")))
			}
			sb.WriteString("\n")
		}
		if len(characters) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(characters)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	threads := bible.Threads()
	if len(threads) > 0 {
		sb.WriteString("Plot Threads:\n")
		count := min(len(threads), maxItemsToShow)
		for i := 0; i < count; i++ {
			th := threads[i]
			marker := "open"
			if th.Resolved {
				marker = "resolved"
			}
			sb.WriteString(fmt.Sprintf("  • [%s] %s\n", marker, th.Description))
		}
		if len(threads) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(threads)-maxItemsToShow))
		}
	}

	if sb.Len() == 0 {
		sb.WriteString("(empty)")
	}
	p.printBox("Story Bible", strings.TrimRight(sb.String(), "\n"))
}

// PrintEvent outputs a one-line progress event.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintEvent(ev types.Event) {
	if ev.Stage != "" {
		fmt.Fprintf(p.out, "[%s] %s: %s\n", ev.Timestamp.Format("15:04:05"), ev.Stage, ev.Status)
		return
	}
	fmt.Fprintf(p.out, "[%s] run %s\n", ev.Timestamp.Format("15:04:05"), ev.Status)
}
