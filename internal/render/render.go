// Package render turns journal text into an HTML preview.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/mastermind/internal/markup"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown rewrites journal structure as Markdown: date lines become level 2
// headings, section starts level 3 headings carrying the header tags, and
// whole-line tag markers and section ends disappear. Other lines pass
// through unchanged.
func Markdown(text string, p *markup.Patterns) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		tok := p.Classify(line)
		switch tok.Kind {
		case markup.KindDate:
			out = append(out, "", "## "+tok.Date, "")
		case markup.KindSectionStart:
			heading := "### " + tok.Project()
			if tags := tok.HeaderTags(); len(tags) > 0 {
				heading += " (" + strings.Join(tags, ", ") + ")"
			}
			out = append(out, "", heading, "")
		case markup.KindSectionEnd:
			out = append(out, "")
		case markup.KindTagOpen, markup.KindTagClose:
		default:
			out = append(out, line)
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}

// HTML renders journal text to an HTML fragment.
func HTML(text string, p *markup.Patterns) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(text, p)), &buf); err != nil {
		return "", fmt.Errorf("render: convert: %w", err)
	}
	return buf.String(), nil
}
