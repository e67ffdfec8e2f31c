package render

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRenderer_Success(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	r := NewCommandRenderer("sh", "-c", "exit 0", "--")
	err := r.Render(context.Background(), "in.html", "out.pdf")
	assert.NoError(t, err)
}

func TestCommandRenderer_TransientFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	r := NewCommandRenderer("sh", "-c", "exit 3", "--")
	err := r.Render(context.Background(), "in.html", "out.pdf")
	require.Error(t, err)
	assert.False(t, IsNonRecoverable(err))
}

func TestCommandRenderer_FatalExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	r := NewCommandRenderer("sh", "-c", "exit 64", "--")
	r.FatalExits = map[int]bool{64: true}
	err := r.Render(context.Background(), "in.html", "out.pdf")
	require.Error(t, err)
	assert.True(t, IsNonRecoverable(err))
}

func TestCommandRenderer_MissingTool(t *testing.T) {
	r := NewCommandRenderer("definitely-not-a-real-converter")
	err := r.Render(context.Background(), "in.html", "out.pdf")
	require.Error(t, err)
	assert.True(t, IsNonRecoverable(err))
}
