// Package visibility decides which lines of a block the current tag
// selection exposes.
package visibility

import (
	"strings"

	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/selection"
)

// Mask returns one flag per line. A tag marker line is visible when its own
// tag is selected. Any other line is visible when every tag block enclosing
// it is selected; lines outside all tag blocks are always visible.
// A close marker removes the most recent open tag of the same name; a close
// whose tag is not open is ignored.
func Mask(lines []string, p *markup.Patterns, tags selection.Set) []bool {
	mask := make([]bool, len(lines))
	var stack []string
	for i, line := range lines {
		if tag, ok := p.OpenTagLine(line); ok {
			stack = append(stack, tag)
			mask[i] = tags.Has(tag)
			continue
		}
		if tag, ok := p.CloseTagLine(line); ok {
			for j := len(stack) - 1; j >= 0; j-- {
				if stack[j] == tag {
					stack = append(stack[:j], stack[j+1:]...)
					break
				}
			}
			mask[i] = tags.Has(tag)
			continue
		}
		mask[i] = allSelected(stack, tags)
	}
	return mask
}

func allSelected(stack []string, tags selection.Set) bool {
	for _, t := range stack {
		if !tags.Has(t) {
			return false
		}
	}
	return true
}

// AnyVisible reports whether at least one line survives the mask.
func AnyVisible(lines []string, p *markup.Patterns, tags selection.Set) bool {
	for _, v := range Mask(lines, p, tags) {
		if v {
			return true
		}
	}
	return false
}

// Filter keeps only the visible lines of content.
func Filter(content string, p *markup.Patterns, tags selection.Set) string {
	lines := strings.Split(content, "\n")
	mask := Mask(lines, p, tags)
	out := lines[:0:0]
	for i, line := range lines {
		if mask[i] {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
