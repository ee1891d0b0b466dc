package mcpserver

import (
	"fmt"

	"github.com/starford/mastermind/internal/markup"
)

// FormatContract describes the journal layout that LLM consumers should
// follow when writing project documents or editing a composite, spelled
// with the delimiters in p.
func FormatContract(p *markup.Patterns) string {
	d := p.Delimiters()
	date := p.DateLine("15/01/2025")
	start := p.StartLine("Website")
	end := p.EndLine()
	openTag, closeTag := p.OpenTag("todo"), p.CloseTag("todo")

	return fmt.Sprintf(`# Mastermind Journal Format Contract

Every project document and every composite view uses these line types.
A line is structural only when it matches a template exactly (surrounding
whitespace is ignored); everything else is content.

## Delimiters in effect

| Line            | Template |
|-----------------|----------|
| Date            | %[1]s |
| Section start   | %[2]s |
| Section end     | %[3]s |
| Tag open        | %[4]s |
| Tag close       | %[5]s |

`+"`"+`%[6]s`+"`"+` is a day/month/year date, `+"`"+`%[7]s`+"`"+` a project or tag name.

## Rules

1. A **date line** applies to every section below it until the next date line.
2. A **section** starts with the start line naming its project and runs to the
   end line. Words after the project name on the start line are header tags.
3. **Tag blocks** open and close on lines of their own inside a section and may
   nest. Tags hide or show their content in a composite view.
4. A project document only holds sections of its own project.
5. When saving a composite, keep every structural line as it was. Edit,
   add or remove content lines only; hidden content is preserved.
6. Project names use letters, digits, spaces, `+"`_`"+` and `+"`-`"+`.

## Example

`+"```"+`
%[8]s
%[9]s
Deployed the landing page.
%[10]s
Fix the contact form.
%[11]s
%[12]s
`+"```"+`
`,
		d.Date.LinePrefix, d.Section.StartPrefix, d.Section.EndLine, d.Tags.Open, d.Tags.Close,
		markup.DatePlaceholder, markup.NamePlaceholder,
		date, start, openTag, closeTag, end,
	)
}
