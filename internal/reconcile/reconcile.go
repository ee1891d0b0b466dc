// Package reconcile folds an edited, filtered view of a project document back
// into the full document without touching lines the editor could not see.
package reconcile

import (
	"regexp"
	"strings"

	"github.com/starford/mastermind/internal/bucket"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/selection"
	"github.com/starford/mastermind/internal/visibility"
)

var blankRun = regexp.MustCompile(`\n{4,}`)

// Input is everything one reconciliation needs. Selection sets are read,
// never modified.
type Input struct {
	// Original is the authoritative document text.
	Original string
	// Edited is the user's filtered composite for this project only.
	Edited string
	// Tags is the active tag selection.
	Tags selection.Set
	// Focus limits which dates may change. Empty means every date.
	Focus selection.Set
}

type blockRef struct {
	date string
	pos  int
}

type reconciler struct {
	p        *markup.Patterns
	in       Input
	full     *bucket.Model
	edited   *bucket.Model
	byHeader map[string]blockRef
	consumed map[blockRef]bool
}

// Reconcile returns the new document text.
//
// Edited blocks are matched to original blocks by exact header text. When a
// header occurs more than once in the original, the last occurrence wins.
func Reconcile(in Input, p *markup.Patterns) string {
	r := &reconciler{
		p:        p,
		in:       in,
		full:     bucket.Build(in.Original, p),
		edited:   bucket.Build(in.Edited, p),
		byHeader: make(map[string]blockRef),
		consumed: make(map[blockRef]bool),
	}
	for _, date := range r.full.Dates {
		for pos, b := range r.full.Blocks[date] {
			r.byHeader[b.Header] = blockRef{date: date, pos: pos}
		}
	}

	var out []string
	for _, date := range r.dates() {
		var blocks [][]string
		if r.inFocus(date) {
			blocks = r.mergeDate(date)
		} else {
			for _, b := range r.full.Blocks[date] {
				blocks = append(blocks, b.Lines)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		out = append(out, p.DateLine(date))
		for i, b := range blocks {
			if i > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
				out = append(out, "")
			}
			out = append(out, b...)
		}
	}
	return blankRun.ReplaceAllString(strings.Join(out, "\n"), "\n\n\n")
}

// dates is the union of both models' dates in calendar order.
func (r *reconciler) dates() []string {
	seen := make(map[string]struct{}, len(r.full.Dates)+len(r.edited.Dates))
	var out []string
	for _, list := range [][]string{r.full.Dates, r.edited.Dates} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	markup.SortDates(out)
	return out
}

func (r *reconciler) inFocus(date string) bool {
	return len(r.in.Focus) == 0 || r.in.Focus.Has(date)
}

func (r *reconciler) mergeDate(date string) [][]string {
	var blocks [][]string
	for _, e := range r.edited.Blocks[date] {
		ref, ok := r.byHeader[e.Header]
		if !ok {
			blocks = append(blocks, e.Lines)
			continue
		}
		orig := r.full.Blocks[ref.date][ref.pos]
		blocks = append(blocks, MergeBlock(orig.Lines, e.Lines, r.p, r.in.Tags))
		r.consumed[ref] = true
	}

	// An unmatched block the user could see was deleted by the edit. One
	// with nothing visible was never shown and is kept.
	for pos, b := range r.full.Blocks[date] {
		if r.consumed[blockRef{date: date, pos: pos}] {
			continue
		}
		if !visibility.AnyVisible(b.Lines, r.p, r.in.Tags) {
			blocks = append(blocks, b.Lines)
		}
	}
	return blocks
}

// MergeBlock replaces the visible lines of orig, in order, with the lines of
// edited. Hidden lines are kept as they are. The block's own end line stays
// last, so hidden lines can never be pushed outside the block: the edited end
// line is dropped and surplus edited lines go just before the original one.
// Visible slots left over once edited runs out are dropped. A block without
// an end line takes the surplus at its end.
func MergeBlock(orig, edited []string, p *markup.Patterns, tags selection.Set) []string {
	mask := visibility.Mask(orig, p, tags)

	end := -1
	if n := len(orig); n > 0 && p.IsEnd(orig[n-1]) {
		end = n - 1
	}
	body := edited
	if n := len(body); end >= 0 && n > 0 && p.IsEnd(body[n-1]) {
		body = body[:n-1]
	}

	merged := make([]string, 0, len(orig)+len(body))
	next := 0
	for i, line := range orig {
		switch {
		case i == end:
			merged = append(merged, body[next:]...)
			next = len(body)
			merged = append(merged, line)
		case !mask[i]:
			merged = append(merged, line)
		case next < len(body):
			merged = append(merged, body[next])
			next++
		}
	}
	return append(merged, body[next:]...)
}
