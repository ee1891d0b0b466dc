// Package compose builds the cross-project composite view and folds edits of
// it back into each project document.
package compose

import (
	"sort"
	"strings"

	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/parser"
	"github.com/starford/mastermind/internal/selection"
	"github.com/starford/mastermind/internal/visibility"
)

// Document is one project's parsed sections.
type Document struct {
	Name     string
	Sections []parser.Section
}

// Compose renders the selected documents, in the given order, as a single
// editable text. Each project restates its date line whenever the date of
// its next shown section changes.
func Compose(docs []Document, sel selection.Selection, p *markup.Patterns) string {
	var chunks []string
	for _, doc := range docs {
		chunks = append(chunks, projectChunks(doc.Sections, sel, p)...)
	}
	return strings.Join(chunks, "\n")
}

// ComparableView renders one project exactly as Compose would, so an edited
// composite can be checked for changes against it.
func ComparableView(name, text string, sel selection.Selection, p *markup.Patterns) string {
	return strings.Join(projectChunks(parser.ForProject(name, text, p), sel, p), "\n")
}

func projectChunks(sections []parser.Section, sel selection.Selection, p *markup.Patterns) []string {
	secs := append([]parser.Section(nil), sections...)
	sort.SliceStable(secs, func(i, j int) bool { return secs[i].Order < secs[j].Order })

	var chunks []string
	last := ""
	for _, s := range secs {
		if len(sel.Dates) > 0 && (s.Date == "" || !sel.Dates.Has(s.Date)) {
			continue
		}
		if s.Date != "" && s.Date != last {
			chunks = append(chunks, p.DateLine(s.Date))
			last = s.Date
		}
		chunks = append(chunks, visibility.Filter(s.Content, p, sel.Tags))
	}
	return chunks
}

// ProjectText is the slice of a composite attributed to one project.
type ProjectText struct {
	Name string
	Text string
}

// GroupByProject splits an edited composite back into per-project texts,
// in order of first appearance. A date line seen outside any section is
// carried into the next section's project.
func GroupByProject(text string, p *markup.Patterns) []ProjectText {
	var order []string
	texts := make(map[string]string)
	current := ""
	var buf []string

	flush := func() {
		if current != "" {
			joined := strings.Join(buf, "\n")
			prev, seen := texts[current]
			switch {
			case !seen:
				order = append(order, current)
				texts[current] = joined
			case prev == "":
				texts[current] = joined
			default:
				texts[current] = prev + "\n" + joined
			}
		}
		buf = nil
		current = ""
	}

	for _, line := range strings.Split(text, "\n") {
		tok := p.Classify(line)
		switch {
		case tok.Kind == markup.KindSectionStart:
			name := tok.Project()
			if current != "" && current != name {
				flush()
			}
			current = name
			buf = append(buf, line)
		case tok.Kind == markup.KindSectionEnd:
			buf = append(buf, line)
			flush()
		case current != "" || tok.Kind == markup.KindDate:
			buf = append(buf, line)
		}
	}
	if len(buf) > 0 {
		flush()
	}

	out := make([]ProjectText, 0, len(order))
	for _, name := range order {
		out = append(out, ProjectText{Name: name, Text: texts[name]})
	}
	return out
}
