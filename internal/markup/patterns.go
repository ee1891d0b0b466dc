package markup

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnnamedProject is used when a section start line carries no name.
const UnnamedProject = "SansNom"

const dateCapture = `(\d{2}/\d{2}/\d{4})`

// Kind classifies one journal line.
type Kind int

const (
	KindOther Kind = iota
	KindDate
	KindSectionStart
	KindSectionEnd
	KindTagOpen
	KindTagClose
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindSectionStart:
		return "section-start"
	case KindSectionEnd:
		return "section-end"
	case KindTagOpen:
		return "tag-open"
	case KindTagClose:
		return "tag-close"
	default:
		return "other"
	}
}

// Token is the classification of a single line.
type Token struct {
	Kind Kind
	Date string
	Tag  string
	// Name and Rest are the raw captures of a section start line.
	Name string
	Rest string
}

// Project returns the first whitespace-separated word of a section start,
// or UnnamedProject when there is none.
func (t Token) Project() string {
	fields := strings.Fields(t.Name + t.Rest)
	if len(fields) == 0 {
		return UnnamedProject
	}
	return fields[0]
}

// HeaderTags returns the words following the project name on a start line.
func (t Token) HeaderTags() []string {
	fields := strings.Fields(t.Name + t.Rest)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// Patterns is the compiled form of a Delimiters value. It is immutable and
// safe for concurrent use.
type Patterns struct {
	delims Delimiters

	date      *regexp.Regexp
	start     *regexp.Regexp
	end       *regexp.Regexp
	openLine  *regexp.Regexp
	closeLine *regexp.Regexp
	openScan  *regexp.Regexp
	closeScan *regexp.Regexp
}

// Compile builds the line matchers for d. Literal template text is escaped,
// so delimiters may contain any regular expression metacharacter.
func Compile(d *Delimiters) (*Patterns, error) {
	if d == nil {
		return nil, ErrConfigNotLoaded
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	tagName := "(" + tagNameClass(d.Tags.Open, d.Tags.Close) + ")"

	date, err := fill(d.Date.LinePrefix, DatePlaceholder, dateCapture)
	if err != nil {
		return nil, err
	}
	start, err := fill(d.Section.StartPrefix, NamePlaceholder, `(.+)`)
	if err != nil {
		return nil, err
	}
	open, err := fill(d.Tags.Open, NamePlaceholder, tagName)
	if err != nil {
		return nil, err
	}
	closing, err := fill(d.Tags.Close, NamePlaceholder, tagName)
	if err != nil {
		return nil, err
	}

	p := &Patterns{delims: *d}
	for _, c := range []struct {
		dst  **regexp.Regexp
		expr string
	}{
		{&p.date, `^\s*` + date + `\s*$`},
		{&p.start, `^\s*` + start + `(.*)$`},
		{&p.end, `^\s*` + regexp.QuoteMeta(d.Section.EndLine) + `\s*$`},
		{&p.openLine, `^\s*` + open + `\s*$`},
		{&p.closeLine, `^\s*` + closing + `\s*$`},
		{&p.openScan, open},
		{&p.closeScan, closing},
	} {
		re, err := regexp.Compile(c.expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		*c.dst = re
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(d Delimiters) *Patterns {
	p, err := Compile(&d)
	if err != nil {
		panic(err)
	}
	return p
}

// fill escapes the literal parts of tmpl and puts capture where the
// placeholder was.
func fill(tmpl, placeholder, capture string) (string, error) {
	before, after, ok := strings.Cut(tmpl, placeholder)
	if !ok {
		return "", fmt.Errorf("%w: %q lacks %s", ErrInvalidTemplate, tmpl, placeholder)
	}
	return regexp.QuoteMeta(before) + capture + regexp.QuoteMeta(after), nil
}

// tagNameClass excludes whitespace and every punctuation rune used by the
// tag templates, so a name never swallows its own delimiter.
func tagNameClass(templates ...string) string {
	var b strings.Builder
	b.WriteString(`[^\s`)
	seen := make(map[rune]bool)
	for _, t := range templates {
		for _, r := range strings.ReplaceAll(t, NamePlaceholder, "") {
			if seen[r] || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
				continue
			}
			seen[r] = true
			if r < utf8.RuneSelf {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	b.WriteString(`]+`)
	return b.String()
}

// Delimiters returns a copy of the templates p was compiled from.
func (p *Patterns) Delimiters() Delimiters { return p.delims }

// Classify assigns line to exactly one Kind. Date lines win over section
// starts, which win over ends, then tag opens and closes.
func (p *Patterns) Classify(line string) Token {
	if m := p.date.FindStringSubmatch(line); m != nil {
		return Token{Kind: KindDate, Date: m[1]}
	}
	if m := p.start.FindStringSubmatch(line); m != nil {
		return Token{Kind: KindSectionStart, Name: m[1], Rest: m[2]}
	}
	if p.end.MatchString(line) {
		return Token{Kind: KindSectionEnd}
	}
	if m := p.openLine.FindStringSubmatch(line); m != nil {
		return Token{Kind: KindTagOpen, Tag: m[1]}
	}
	if m := p.closeLine.FindStringSubmatch(line); m != nil {
		return Token{Kind: KindTagClose, Tag: m[1]}
	}
	return Token{Kind: KindOther}
}

// DateOf reports the date carried by a date line.
func (p *Patterns) DateOf(line string) (string, bool) {
	m := p.date.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsStart reports whether line opens a section.
func (p *Patterns) IsStart(line string) bool { return p.start.MatchString(line) }

// IsEnd reports whether line is the section end line.
func (p *Patterns) IsEnd(line string) bool { return p.end.MatchString(line) }

// OpenTagLine reports whether line consists of a single tag-open marker.
func (p *Patterns) OpenTagLine(line string) (string, bool) {
	m := p.openLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CloseTagLine reports whether line consists of a single tag-close marker.
func (p *Patterns) CloseTagLine(line string) (string, bool) {
	m := p.closeLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ScanOpenTags returns every tag opened anywhere in line, in order.
func (p *Patterns) ScanOpenTags(line string) []string {
	var out []string
	for _, m := range p.openScan.FindAllStringSubmatch(line, -1) {
		out = append(out, m[1])
	}
	return out
}

// DateLine builds the date line for a DD/MM/YYYY date.
func (p *Patterns) DateLine(date string) string {
	return strings.Replace(p.delims.Date.LinePrefix, DatePlaceholder, date, 1)
}

// StartLine builds the start line of a section for project name.
func (p *Patterns) StartLine(name string) string {
	return strings.Replace(p.delims.Section.StartPrefix, NamePlaceholder, name, 1)
}

// EndLine returns the section end line.
func (p *Patterns) EndLine() string { return p.delims.Section.EndLine }

// OpenTag builds the open marker of tag name.
func (p *Patterns) OpenTag(name string) string {
	return strings.Replace(p.delims.Tags.Open, NamePlaceholder, name, 1)
}

// CloseTag builds the close marker of tag name.
func (p *Patterns) CloseTag(name string) string {
	return strings.Replace(p.delims.Tags.Close, NamePlaceholder, name, 1)
}
