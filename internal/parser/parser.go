// Package parser splits journal text into dated, tagged project sections.
package parser

import (
	"fmt"
	"strings"

	"github.com/starford/mastermind/internal/markup"
)

// Section is one delimited block of a project document.
type Section struct {
	Project string `json:"project"`
	// Date is the DD/MM/YYYY date in effect when the section opened, or
	// empty when no date line preceded it.
	Date    string   `json:"date,omitempty"`
	Tags    []string `json:"tags"`
	Content string   `json:"content"`
	Header  string   `json:"header"`
	Order   int      `json:"order"`
	Key     string   `json:"key"`
}

// Result holds the output of parsing one document.
type Result struct {
	Sections []Section `json:"sections"`
	Errors   []string  `json:"errors"`
	Warnings []string  `json:"warnings"`
}

type openSection struct {
	project string
	date    string
	header  string
	start   int // 0-based index of the start line
	line    int
	tags    []string
	seen    map[string]struct{}
	lines   []string
}

func (s *openSection) addTag(tag string) {
	if tag == "" {
		return
	}
	if _, ok := s.seen[tag]; ok {
		return
	}
	s.seen[tag] = struct{}{}
	s.tags = append(s.tags, tag)
}

// Parse walks text line by line. It never fails: malformed structure is
// reported through Result.Errors and Result.Warnings.
func Parse(text string, p *markup.Patterns) *Result {
	res := &Result{Sections: []Section{}, Errors: []string{}, Warnings: []string{}}

	var cur *openSection
	currentDate := ""

	seal := func() {
		date := cur.date
		if date == "" {
			date = "nodate"
		}
		order := cur.start
		res.Sections = append(res.Sections, Section{
			Project: cur.project,
			Date:    cur.date,
			Tags:    cur.tags,
			Content: strings.Join(cur.lines, "\n"),
			Header:  cur.header,
			Order:   order,
			Key:     fmt.Sprintf("%s@%s#%d", cur.project, date, order),
		})
		cur = nil
	}

	for i, line := range strings.Split(text, "\n") {
		tok := p.Classify(line)
		switch tok.Kind {
		case markup.KindDate:
			currentDate = tok.Date
			if cur != nil {
				cur.lines = append(cur.lines, line)
			}

		case markup.KindSectionStart:
			if cur != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"section opened at line %d reopened at line %d before close, previous section dropped", cur.line, i+1))
			}
			cur = &openSection{
				project: tok.Project(),
				date:    currentDate,
				header:  line,
				start:   i,
				line:    i + 1,
				seen:    make(map[string]struct{}),
				lines:   []string{line},
				tags:    []string{},
			}
			for _, tag := range tok.HeaderTags() {
				cur.addTag(tag)
			}
			if currentDate == "" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("section without active date (line %d)", i+1))
			}

		case markup.KindSectionEnd:
			if cur == nil {
				res.Errors = append(res.Errors, fmt.Sprintf("close without open (line %d)", i+1))
				continue
			}
			cur.lines = append(cur.lines, line)
			seal()

		default:
			if cur == nil {
				continue
			}
			for _, tag := range p.ScanOpenTags(line) {
				cur.addTag(tag)
			}
			cur.lines = append(cur.lines, line)
		}
	}

	if cur != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("unterminated section at end of file (opened at line %d)", cur.line))
		seal()
	}
	return res
}

// ForProject returns the sections of text that belong to project name.
func ForProject(name, text string, p *markup.Patterns) []Section {
	var out []Section
	for _, s := range Parse(text, p).Sections {
		if s.Project == name {
			out = append(out, s)
		}
	}
	return out
}

// Dates returns the distinct dates of sections in first-seen order.
func Dates(sections []Section) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range sections {
		if s.Date == "" {
			continue
		}
		if _, ok := seen[s.Date]; ok {
			continue
		}
		seen[s.Date] = struct{}{}
		out = append(out, s.Date)
	}
	return out
}

// BlockTags returns every tag opened on a line of its own anywhere in text.
// These are the tags the visibility mask can act on.
func BlockTags(text string, p *markup.Patterns) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(text, "\n") {
		tag, ok := p.OpenTagLine(line)
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
