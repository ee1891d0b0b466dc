// Package console prints journal data for terminal users.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/models"
	"github.com/starford/mastermind/internal/parser"
)

var (
	bold    = color.New(color.Bold)
	faint   = color.New(color.Faint)
	red     = color.New(color.FgRed)
	yellow  = color.New(color.FgYellow)
	green   = color.New(color.FgGreen)
	magenta = color.New(color.FgMagenta)
)

// Printer writes tables to Out.
type Printer struct {
	Out io.Writer
}

// New returns a Printer on color.Output.
func New() *Printer {
	return &Printer{Out: color.Output}
}

// Analysis prints the sections of a parse result followed by its errors and
// warnings.
func (p *Printer) Analysis(res *parser.Result) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("Project"), bold.Sprint("Date"), bold.Sprint("Tags"), bold.Sprint("Lines"))
	for _, s := range res.Sections {
		date := s.Date
		if date == "" {
			date = faint.Sprint("-")
		}
		tbl.AddRow(s.Order, s.Project, date, strings.Join(s.Tags, ", "), strings.Count(s.Content, "\n")+1)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(p.Out, tbl)

	for _, e := range res.Errors {
		_, _ = fmt.Fprintln(p.Out, red.Sprint("error: ")+e)
	}
	for _, w := range res.Warnings {
		_, _ = fmt.Fprintln(p.Out, yellow.Sprint("warning: ")+w)
	}
}

// Projects prints stored project documents.
func (p *Printer) Projects(metas []models.ProjectMetadata) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Project"), bold.Sprint("Size"), bold.Sprint("Updated"))
	for _, m := range metas {
		tbl.AddRow(m.Name, m.Size, m.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(p.Out, tbl)
}

// Report prints the outcome of a save pass.
func (p *Printer) Report(r *compose.Report) {
	_, _ = fmt.Fprintln(p.Out, faint.Sprint("batch "+r.BatchID))
	tbl := uitable.New()
	tbl.Separator = "  "
	for _, res := range r.Results {
		tbl.AddRow(res.Project, statusColor(res.Status).Sprint(string(res.Status)), res.Error)
	}
	_, _ = fmt.Fprintln(p.Out, tbl)
}

func statusColor(s compose.Status) *color.Color {
	switch s {
	case compose.StatusSaved:
		return green
	case compose.StatusFailed:
		return red
	case compose.StatusIgnored:
		return yellow
	default:
		return faint
	}
}
