// Package markup turns the configurable journal delimiters into line matchers
// and renderers shared by every other package.
package markup

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Placeholders substituted inside delimiter templates.
const (
	DatePlaceholder = "{DD/MM/YYYY}"
	NamePlaceholder = "{name}"
)

var (
	// ErrConfigNotLoaded is returned when patterns are requested before any
	// delimiter configuration is available.
	ErrConfigNotLoaded = errors.New("markup: configuration not loaded")
	// ErrInvalidTemplate is returned when a template lacks its placeholder.
	ErrInvalidTemplate = errors.New("markup: invalid template")
)

// Delimiters is the user-editable set of templates that give journal lines
// their structural meaning.
type Delimiters struct {
	Date    DateDelimiters    `yaml:"date" json:"date"`
	Section SectionDelimiters `yaml:"section" json:"section"`
	Tags    TagDelimiters     `yaml:"tags" json:"tags"`
}

type DateDelimiters struct {
	LinePrefix string `yaml:"line_prefix" json:"linePrefix"`
}

type SectionDelimiters struct {
	StartPrefix string `yaml:"start_prefix" json:"startPrefix"`
	EndLine     string `yaml:"end_line" json:"endLine"`
}

type TagDelimiters struct {
	Open  string `yaml:"open" json:"open"`
	Close string `yaml:"close" json:"close"`
}

// Defaults returns the delimiters a fresh installation starts with.
func Defaults() Delimiters {
	return Delimiters{
		Date:    DateDelimiters{LinePrefix: ":::date " + DatePlaceholder},
		Section: SectionDelimiters{StartPrefix: "__/@@ " + NamePlaceholder, EndLine: "@@/"},
		Tags:    TagDelimiters{Open: "<" + NamePlaceholder + ">", Close: "<" + NamePlaceholder + "/>"},
	}
}

// Validate checks that every template is present and carries its placeholder.
func (d *Delimiters) Validate() error {
	return validation.Errors{
		"date.linePrefix":     validation.Validate(d.Date.LinePrefix, validation.Required, containing(DatePlaceholder)),
		"section.startPrefix": validation.Validate(d.Section.StartPrefix, validation.Required, containing(NamePlaceholder)),
		"section.endLine":     validation.Validate(d.Section.EndLine, validation.Required, validation.By(singleLine)),
		"tags.open":           validation.Validate(d.Tags.Open, validation.Required, containing(NamePlaceholder)),
		"tags.close":          validation.Validate(d.Tags.Close, validation.Required, containing(NamePlaceholder)),
	}.Filter()
}

func containing(placeholder string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if !strings.Contains(s, placeholder) {
			return fmt.Errorf("must contain %s", placeholder)
		}
		return singleLine(s)
	})
}

func singleLine(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, "\r\n") {
		return errors.New("must be a single line")
	}
	return nil
}
