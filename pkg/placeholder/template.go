package placeholder

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFrontmatter indicates a template file with unreadable YAML frontmatter.
var ErrInvalidFrontmatter = errors.New("placeholder: invalid frontmatter")

// Template is the subject and body captured for one campaign pass.
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Render returns the subject and body personalized for row.
func (t Template) Render(row map[string]string) (subject, body string) {
	return Render(t.Subject, row), Render(t.Body, row)
}

// Fields lists the placeholders used across subject and body.
func (t Template) Fields() []string {
	fields := Fields(t.Subject)
	for _, f := range Fields(t.Body) {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Missing lists placeholders that none of the given columns can fill.
// Such tokens are sent unsubstituted.
func (t Template) Missing(columns []string) []string {
	var missing []string
	for _, f := range t.Fields() {
		if !slices.Contains(columns, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

var delimiter = []byte("---")

// Parse reads a template file: optional YAML frontmatter carrying the subject,
// followed by the body.
//
//	---
//	subject: Hello {name}
//	---
//	Hi {name},
//	...
func Parse(content []byte) (Template, error) {
	if !bytes.HasPrefix(content, delimiter) {
		return Template{Body: string(content)}, nil
	}

	rest := bytes.TrimLeft(bytes.TrimPrefix(content, delimiter), "\r\n")
	end := bytes.Index(rest, delimiter)
	if end < 0 {
		return Template{}, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	var tmpl Template
	if front := rest[:end]; len(bytes.TrimSpace(front)) > 0 {
		var meta map[string]any
		if err := yaml.Unmarshal(front, &meta); err != nil {
			return Template{}, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
		for k, v := range meta {
			if strings.EqualFold(k, "subject") && v != nil {
				tmpl.Subject = fmt.Sprint(v)
			}
		}
	}

	body := string(rest[end+len(delimiter):])
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")
	tmpl.Body = body

	return tmpl, nil
}
