package types

import (
	"github.com/go-playground/validator/v10"
)

// RunConfig describes one requested pipeline run. ManuscriptSource and
// OutputTarget are required; everything else has sensible defaults.
type RunConfig struct {
	// ManuscriptSource is the reference to the manuscript context the content
	// stage drafts against (plain text or HTML file).
	ManuscriptSource string `json:"manuscript_source" validate:"required"`
	// OutputTarget is where the published artifact is written.
	OutputTarget string `json:"output_target" validate:"required"`
	// StoryBible is an optional path to a story bible JSON file. When empty
	// the run proceeds with an empty consistency model.
	StoryBible string `json:"story_bible,omitempty"`
	// Title is the working title threaded through generated artifacts.
	Title string `json:"title,omitempty"`
	// Chapter is the chapter number being produced.
	Chapter int `json:"chapter,omitempty" validate:"min=0"`
	// CoverPrompt, when set, asks the image capability for a cover
	// illustration during the content stage.
	CoverPrompt string `json:"cover_prompt,omitempty"`
}

// Validate checks the run configuration using the validator. Failures are
// configuration errors and surface before any stage starts.
func (c *RunConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}
