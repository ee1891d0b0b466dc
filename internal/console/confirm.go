package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/starford/mastermind/internal/compose"
)

// TerminalConfirmer shows each proposal's merged document and asks for a
// y/N answer on In. End of input rejects.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

var _ compose.Confirmer = (*TerminalConfirmer)(nil)

func (c *TerminalConfirmer) Confirm(ctx context.Context, prop compose.Proposal) (compose.Decision, error) {
	if err := ctx.Err(); err != nil {
		return compose.Decision{}, err
	}
	if c.r == nil {
		c.r = bufio.NewReader(c.In)
	}

	_, _ = fmt.Fprintf(c.Out, "%s\n", bold.Sprintf("== %s ==", prop.Name))
	for _, line := range strings.Split(prop.Merged, "\n") {
		_, _ = fmt.Fprintln(c.Out, magenta.Sprint("| ")+line)
	}
	_, _ = fmt.Fprintf(c.Out, "write %s? [y/N] ", prop.Name)

	answer, err := c.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return compose.Decision{}, fmt.Errorf("console: read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return compose.Decision{Accept: true}, nil
	default:
		return compose.Decision{}, nil
	}
}
