// Package bucket groups a project document's blocks under their dates.
package bucket

import (
	"strings"

	"github.com/starford/mastermind/internal/markup"
)

// Block is a section's raw lines, from its start line through its end line.
type Block struct {
	Header string
	Lines  []string
}

// Model maps each date to the blocks that follow its date line.
type Model struct {
	// Dates in first-seen order.
	Dates  []string
	Blocks map[string][]Block
}

// Build scans text into a Model. Blocks that appear before the first date
// line have no bucket and are dropped. Text outside blocks is ignored.
func Build(text string, p *markup.Patterns) *Model {
	lines := strings.Split(text, "\n")
	m := &Model{Blocks: make(map[string][]Block)}
	current := ""

	for i := 0; i < len(lines); {
		if date, ok := p.DateOf(lines[i]); ok {
			current = date
			if _, seen := m.Blocks[date]; !seen {
				m.Blocks[date] = []Block{}
				m.Dates = append(m.Dates, date)
			}
			i++
			continue
		}
		if !p.IsStart(lines[i]) {
			i++
			continue
		}

		start := i
		for i < len(lines) && !p.IsEnd(lines[i]) {
			i++
		}
		if i < len(lines) {
			i++
		}
		if current == "" {
			continue
		}
		block := Block{Header: lines[start], Lines: append([]string(nil), lines[start:i]...)}
		m.Blocks[current] = append(m.Blocks[current], block)
	}
	return m
}
