// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration that can be loaded from a
// JSON file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Paths
	Manuscript string `json:"manuscript,omitempty"` // Path to the manuscript source (text or HTML)
	StoryBible string `json:"story_bible,omitempty"` // Path to the story bible JSON file
	Output     string `json:"output,omitempty"`      // Path the published artifact is written to
	Policy     string `json:"policy,omitempty"`      // Path to the pipeline policy YAML file

	// Book metadata
	Title   string `json:"title,omitempty"`   // Book title
	Chapter int    `json:"chapter,omitempty"` // Chapter number being produced

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	ImageAPIKey string `json:"image_api_key,omitempty"` // OpenAI API key for cover generation
	CoverPrompt string `json:"cover_prompt,omitempty"`  // Prompt for cover image generation
	Verbose     bool   `json:"verbose,omitempty"`       // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"`  // PostgreSQL connection URL
	ListenAddr  string `json:"listen_addr,omitempty"`   // Server listen address
	ArtifactDir string `json:"artifact_dir,omitempty"`  // Directory for intermediate artifacts
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked after merging with CLI flags, not here.
func (c *Config) Validate() error {
	if c.Chapter < 0 {
		return fmt.Errorf("config error: 'chapter' must be non-negative")
	}

	if c.Manuscript != "" {
		if _, err := os.Stat(c.Manuscript); os.IsNotExist(err) {
			return fmt.Errorf("config error: manuscript file not found: %s", c.Manuscript)
		}
	}
	if c.StoryBible != "" {
		if _, err := os.Stat(c.StoryBible); os.IsNotExist(err) {
			return fmt.Errorf("config error: story bible file not found: %s", c.StoryBible)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Manuscript == "" {
		result.Manuscript = defaults.Manuscript
	}
	if result.StoryBible == "" {
		result.StoryBible = defaults.StoryBible
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.Policy == "" {
		result.Policy = defaults.Policy
	}
	if result.Title == "" {
		result.Title = defaults.Title
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.ImageAPIKey == "" {
		result.ImageAPIKey = defaults.ImageAPIKey
	}
	if result.CoverPrompt == "" {
		result.CoverPrompt = defaults.CoverPrompt
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	if result.ArtifactDir == "" {
		result.ArtifactDir = defaults.ArtifactDir
	}

	if result.Chapter == 0 {
		result.Chapter = defaults.Chapter
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
