package report

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// MarkdownHTML renders markdown into an inline HTML attachment.
func MarkdownHTML(title, source string) (*HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", title, err)
	}
	return NewHTML(title, buf.String()), nil
}
