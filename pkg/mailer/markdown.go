package mailer

import (
	"bytes"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md         goldmark.Markdown
	htmlPolicy *bluemonday.Policy
	initOnce   sync.Once
)

func initMarkdown() {
	initOnce.Do(func() {
		md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

		// Contact values end up inside the body, so the rendered HTML is
		// restricted to formatting and links.
		htmlPolicy = bluemonday.UGCPolicy()
		htmlPolicy.RequireNoFollowOnLinks(true)
	})
}

// MarkdownToHTML renders a personalized body as Markdown and sanitizes the result.
// It is used for the optional HTML alternative; the plain text part is sent as is.
func MarkdownToHTML(text string) (string, error) {
	initMarkdown()

	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return htmlPolicy.Sanitize(buf.String()), nil
}
