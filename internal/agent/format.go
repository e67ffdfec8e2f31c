package agent

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/jonathan/book-foundry/internal/artifact"
	"github.com/jonathan/book-foundry/internal/types"
)

// FormatAgent turns a text draft into a markup-ready HTML artifact. It is a
// pure transformation with no external side effects besides writing the
// formatted artifact.
type FormatAgent struct {
	store artifact.Store
}

// NewFormatAgent creates a format agent.
func NewFormatAgent(store artifact.Store) *FormatAgent {
	return &FormatAgent{store: store}
}

// Stage returns the stage this agent performs.
func (a *FormatAgent) Stage() types.Stage { return types.StageFormat }

// Invoke reads the draft artifact and writes the formatted artifact.
func (a *FormatAgent) Invoke(_ context.Context, state *RunState, in Input) (Output, error) {
	draft, err := a.store.Read(in.ArtifactRef)
	if err != nil {
		// A missing upstream artifact cannot be fixed by retrying
		return Output{}, types.Fatal(types.StageFormat, err)
	}

	formatted := FormatChapter(state.Config.Title, state.Config.Chapter, string(draft))

	ref, err := a.store.Write("formatted", []byte(formatted))
	if err != nil {
		return Output{}, types.Fatal(types.StageFormat, err)
	}
	return Output{ArtifactRef: ref}, nil
}

// FormatChapter renders draft text as a standalone HTML document: title
// heading, paragraphs split on blank lines, all text HTML-escaped.
func FormatChapter(title string, chapter int, draft string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title)))
	if title != "" {
		sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(title)))
	}
	if chapter > 0 {
		sb.WriteString(fmt.Sprintf("<h2>Chapter %d</h2>\n", chapter))
	}

	for _, para := range splitParagraphs(draft) {
		sb.WriteString("<p>" + html.EscapeString(para) + "</p>\n")
	}

	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// splitParagraphs splits draft text on blank lines, joining wrapped lines
// within a paragraph with single spaces.
func splitParagraphs(text string) []string {
	var paras []string
	for _, block := range strings.Split(text, "\n\n") {
		lines := strings.Fields(strings.ReplaceAll(block, "\n", " "))
		if len(lines) == 0 {
			continue
		}
		paras = append(paras, strings.Join(lines, " "))
	}
	return paras
}
