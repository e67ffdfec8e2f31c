// Package render invokes external document converters: a subprocess-style
// tool or a headless Chromium instance, both behind one Renderer interface.
package render

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrNonRecoverable marks a conversion failure that retrying cannot fix
// (bad input, unsupported format). Callers map everything else to a
// transient failure.
var ErrNonRecoverable = errors.New("non-recoverable conversion failure")

// IsNonRecoverable reports whether err is marked non-recoverable.
func IsNonRecoverable(err error) bool {
	return errors.Is(err, ErrNonRecoverable)
}

// Renderer converts an input artifact file into an output artifact file.
type Renderer interface {
	Render(ctx context.Context, inputPath, outputPath string) error
}

// CommandRenderer shells out to an external converter. The tool is invoked
// as: bin [args...] inputPath outputPath, and judged by exit status.
type CommandRenderer struct {
	Bin  string
	Args []string
	// FatalExits lists exit codes that mark the input itself as bad; those
	// failures are non-recoverable rather than transient.
	FatalExits map[int]bool
}

// NewCommandRenderer creates a CommandRenderer for the given tool.
func NewCommandRenderer(bin string, args ...string) *CommandRenderer {
	return &CommandRenderer{Bin: bin, Args: args}
}

// Render runs the converter and maps its exit status to an error.
func (r *CommandRenderer) Render(ctx context.Context, inputPath, outputPath string) error {
	args := append(append([]string{}, r.Args...), inputPath, outputPath)
	cmd := exec.CommandContext(ctx, r.Bin, args...)

	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if r.FatalExits[code] {
			return fmt.Errorf("%s exited with status %d: %s: %w", r.Bin, code, firstLine(out), ErrNonRecoverable)
		}
		return fmt.Errorf("%s exited with status %d: %s", r.Bin, code, firstLine(out))
	}
	// Tool missing or not executable: retrying won't help
	return fmt.Errorf("failed to run %s: %v: %w", r.Bin, err, ErrNonRecoverable)
}

// firstLine trims converter output down to its first line for error detail.
func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
