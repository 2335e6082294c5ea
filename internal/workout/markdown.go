package workout

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown renders movement descriptions. Raw HTML in the source is not passed through.
//
//nolint:gochecknoglobals // goldmark.Markdown is safe for concurrent use.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderDescription converts the markdown description of m to HTML.
func RenderDescription(m Movement) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(m.DescriptionMarkdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown of movement %d: %w", m.ID, err)
	}
	return buf.String(), nil
}
