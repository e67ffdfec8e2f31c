// Package ingest loads manuscript context for the content stage. Sources are
// plain-text or HTML files; HTML is stripped down to readable prose.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxContextBytes bounds how much manuscript context is handed to the
// content stage; long manuscripts are truncated from the front.
const MaxContextBytes = 32_000

// LoadContext reads a manuscript source file and returns prose context for
// chapter drafting.
func LoadContext(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read manuscript source %s: %w", path, err)
	}

	text := string(data)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" || looksLikeHTML(text) {
		text, err = ExtractText(text)
		if err != nil {
			return "", fmt.Errorf("failed to extract manuscript text: %w", err)
		}
	}

	text = collapseWhitespace(text)
	if len(text) > MaxContextBytes {
		text = text[:MaxContextBytes]
	}
	return text, nil
}

// ExtractText strips markup from an HTML manuscript and returns its prose.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Drop non-content elements before extracting text
	doc.Find("script, style, nav, header, footer, noscript").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return sel.Text(), nil
}

// looksLikeHTML sniffs for markup in sources without an .html extension.
func looksLikeHTML(text string) bool {
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// collapseWhitespace normalizes runs of blank lines and trims each line.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
