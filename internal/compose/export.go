package compose

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/parser"
)

// ErrNothingToExport is returned when the text holds no sections.
var ErrNothingToExport = errors.New("compose: no sections to export")

// Export appends every dated section of text to its project's document,
// under that date. A section lands after the blocks of the last matching
// date line; when the date is absent the date line is appended first.
// It returns the projects whose documents changed.
func Export(text string, store Store, p *markup.Patterns, logger *slog.Logger) ([]string, error) {
	sections := parser.Parse(text, p).Sections
	if len(sections) == 0 {
		return nil, ErrNothingToExport
	}

	var order []string
	byProject := make(map[string][]parser.Section)
	for _, s := range sections {
		if _, ok := byProject[s.Project]; !ok {
			order = append(order, s.Project)
		}
		byProject[s.Project] = append(byProject[s.Project], s)
	}

	var changed []string
	var errs []error
	for _, name := range order {
		current := ""
		if data, err := store.Read(name); err == nil {
			current = string(data)
		}

		updated := current
		for _, s := range byProject[name] {
			if s.Date == "" {
				logger.Warn("export: skipping undated section", slog.String("project", name), slog.String("key", s.Key))
				continue
			}
			updated = insertUnderDate(updated, s.Date, s.Content, p)
		}
		if updated == current {
			continue
		}
		if err := store.Write(name, []byte(updated)); err != nil {
			errs = append(errs, fmt.Errorf("compose: export %s: %w", name, err))
			continue
		}
		changed = append(changed, name)
	}
	return changed, errors.Join(errs...)
}

func insertUnderDate(doc, date, content string, p *markup.Patterns) string {
	dateLine := p.DateLine(date)
	if doc == "" {
		return dateLine + "\n" + content + "\n"
	}

	lines := strings.Split(doc, "\n")
	last := -1
	for i, l := range lines {
		if d, ok := p.DateOf(l); ok && d == date {
			last = i
		}
	}
	if last < 0 {
		return doc + "\n" + dateLine + "\n" + content + "\n"
	}

	at := len(lines)
	for i := last + 1; i < len(lines); i++ {
		if _, ok := p.DateOf(lines[i]); ok {
			at = i
			break
		}
	}
	before := strings.Join(lines[:at], "\n")
	after := strings.Join(lines[at:], "\n")
	if after == "" {
		return before + "\n" + content + "\n"
	}
	return before + "\n" + content + "\n" + after
}
