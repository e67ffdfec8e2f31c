package storybible

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/book-foundry/internal/schemas"
)

// bibleDocument is the on-disk JSON shape of a story bible.
type bibleDocument struct {
	Characters  []Character  `json:"characters,omitempty"`
	PlotThreads []PlotThread `json:"plot_threads,omitempty"`
}

// Load reads a story bible JSON file, validates it against the embedded
// schema, and returns the bible. An empty path returns an empty bible.
func Load(path string) (*StoryBible, error) {
	if path == "" {
		return New(nil, nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story bible %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes story bible JSON content.
func Parse(data []byte) (*StoryBible, error) {
	if err := schemas.Validate(schemas.StoryBibleSchema, data); err != nil {
		return nil, fmt.Errorf("invalid story bible: %w", err)
	}

	var doc bibleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse story bible JSON: %w", err)
	}
	return New(doc.Characters, doc.PlotThreads), nil
}
