package utils

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts post content to sanitized HTML. On render failure it falls back to escaped text.
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		Sugar.Warnf("markdown render failed: %v", err)
		return SanitizePlain(source)
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes()))
}
