package types

import (
	"errors"
	"fmt"
)

// ConfigError indicates a bad run configuration. It surfaces immediately to
// the caller of Start, before any stage runs.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid run configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FailureKind classifies a stage failure for the controller's retry policy.
type FailureKind int

const (
	// FailureRetryable marks transient failures: external API timeouts,
	// temporary resource unavailability. Retried up to the policy bound.
	FailureRetryable FailureKind = iota
	// FailureFatal marks unrecoverable failures. A fatal failure terminates
	// the run immediately.
	FailureFatal
)

func (k FailureKind) String() string {
	if k == FailureRetryable {
		return "retryable"
	}
	return "fatal"
}

// StageError is a classified failure from one agent invocation.
type StageError struct {
	Stage Stage
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s failure: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Retryable wraps err as a transient failure of the given stage.
func Retryable(stage Stage, err error) error {
	return &StageError{Stage: stage, Kind: FailureRetryable, Err: err}
}

// Fatal wraps err as an unrecoverable failure of the given stage.
func Fatal(stage Stage, err error) error {
	return &StageError{Stage: stage, Kind: FailureFatal, Err: err}
}

// IsRetryable reports whether err is classified as a transient stage failure.
// Unclassified errors are treated as fatal.
func IsRetryable(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == FailureRetryable
	}
	return false
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
