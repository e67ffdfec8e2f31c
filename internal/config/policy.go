package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy controls retry and revision behavior for pipeline runs. It is
// loaded from a YAML file so operators can tune bounds without a rebuild.
type Policy struct {
	// MaxStageAttempts bounds attempts per stage, first try included.
	MaxStageAttempts int `yaml:"max_stage_attempts"`
	// RetryBackoff is the delay before the first retry; it doubles on
	// each subsequent retry of the same stage.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	// MaxRevisions bounds how many times quality review may send a run
	// back to content drafting.
	MaxRevisions int `yaml:"max_revisions"`
	// StageTimeout bounds a single stage attempt. Zero disables it.
	StageTimeout time.Duration `yaml:"stage_timeout"`
}

// DefaultPolicy returns the policy used when no file is given.
func DefaultPolicy() Policy {
	return Policy{
		MaxStageAttempts: 3,
		RetryBackoff:     2 * time.Second,
		MaxRevisions:     2,
	}
}

// LoadPolicy reads a policy YAML file. An empty path returns the defaults.
// Fields omitted from the file keep their default values.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy YAML: %w", err)
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// UnmarshalYAML decodes durations from strings like "2s" or "500ms".
// Fields absent from the document are left untouched so defaults survive.
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxStageAttempts *int   `yaml:"max_stage_attempts"`
		RetryBackoff     string `yaml:"retry_backoff"`
		MaxRevisions     *int   `yaml:"max_revisions"`
		StageTimeout     string `yaml:"stage_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.MaxStageAttempts != nil {
		p.MaxStageAttempts = *raw.MaxStageAttempts
	}
	if raw.MaxRevisions != nil {
		p.MaxRevisions = *raw.MaxRevisions
	}
	if raw.RetryBackoff != "" {
		d, err := time.ParseDuration(raw.RetryBackoff)
		if err != nil {
			return fmt.Errorf("invalid retry_backoff: %w", err)
		}
		p.RetryBackoff = d
	}
	if raw.StageTimeout != "" {
		d, err := time.ParseDuration(raw.StageTimeout)
		if err != nil {
			return fmt.Errorf("invalid stage_timeout: %w", err)
		}
		p.StageTimeout = d
	}
	return nil
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.MaxStageAttempts < 1 {
		return fmt.Errorf("policy error: max_stage_attempts must be at least 1, got %d", p.MaxStageAttempts)
	}
	if p.MaxRevisions < 0 {
		return fmt.Errorf("policy error: max_revisions must be non-negative, got %d", p.MaxRevisions)
	}
	if p.RetryBackoff < 0 {
		return fmt.Errorf("policy error: retry_backoff must be non-negative, got %s", p.RetryBackoff)
	}
	if p.StageTimeout < 0 {
		return fmt.Errorf("policy error: stage_timeout must be non-negative, got %s", p.StageTimeout)
	}
	return nil
}
