package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadContext_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chapter.txt")
	require.NoError(t, os.WriteFile(path, []byte("It was a dark night.\n\n\n\nThe ship sailed on.\n"), 0o644))

	text, err := LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, "It was a dark night.\n\nThe ship sailed on.", text)
}

func TestLoadContext_HTML(t *testing.T) {
	html := `<!DOCTYPE html>
<html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><nav>menu</nav><p>It was a dark night.</p><footer>copyright</footer></body></html>`
	path := filepath.Join(t.TempDir(), "chapter.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	text, err := LoadContext(path)
	require.NoError(t, err)
	assert.Contains(t, text, "It was a dark night.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "menu")
	assert.NotContains(t, text, "copyright")
}

func TestLoadContext_SniffsHTMLWithoutExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chapter.src")
	require.NoError(t, os.WriteFile(path, []byte("<html><body><p>hello</p></body></html>"), 0o644))

	text, err := LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestLoadContext_TruncatesLongSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", MaxContextBytes+500)), 0o644))

	text, err := LoadContext(path)
	require.NoError(t, err)
	assert.Len(t, text, MaxContextBytes)
}

func TestLoadContext_MissingFile(t *testing.T) {
	_, err := LoadContext(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
