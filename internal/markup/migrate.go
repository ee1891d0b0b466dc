package markup

import (
	"sort"
	"strings"
)

// Migrate rewrites every structural line and inline tag marker of text from
// one delimiter set to another. Content lines pass through untouched.
func Migrate(text string, from, to *Patterns) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		tok := from.Classify(line)
		switch tok.Kind {
		case KindDate:
			lines[i] = to.DateLine(tok.Date)
		case KindSectionStart:
			lines[i] = to.StartLine(strings.TrimSpace(tok.Name + tok.Rest))
		case KindSectionEnd:
			lines[i] = to.EndLine()
		default:
			lines[i] = rewriteTags(line, from, to)
		}
	}
	return strings.Join(lines, "\n")
}

type tagHit struct {
	start, end int
	name       string
	open       bool
}

// rewriteTags replaces open and close markers in a single left-to-right
// pass so a freshly written marker is never matched again.
func rewriteTags(line string, from, to *Patterns) string {
	var hits []tagHit
	for _, m := range from.openScan.FindAllStringSubmatchIndex(line, -1) {
		hits = append(hits, tagHit{start: m[0], end: m[1], name: line[m[2]:m[3]], open: true})
	}
	for _, m := range from.closeScan.FindAllStringSubmatchIndex(line, -1) {
		hits = append(hits, tagHit{start: m[0], end: m[1], name: line[m[2]:m[3]]})
	}
	if len(hits) == 0 {
		return line
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	var b strings.Builder
	last := 0
	for _, h := range hits {
		if h.start < last {
			continue
		}
		b.WriteString(line[last:h.start])
		if h.open {
			b.WriteString(to.OpenTag(h.name))
		} else {
			b.WriteString(to.CloseTag(h.name))
		}
		last = h.end
	}
	b.WriteString(line[last:])
	return b.String()
}
