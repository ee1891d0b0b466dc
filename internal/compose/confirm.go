package compose

import (
	"context"
	"sync"

	"github.com/starford/mastermind/internal/selection"
)

// Proposal is what the user is asked to accept for one project.
type Proposal struct {
	Name string `json:"name"`
	// Original is the stored document before the save.
	Original string `json:"original"`
	// Proposed is the user's edited composite for this project.
	Proposed string `json:"proposed"`
	// Merged is the document that will be written if Proposed is accepted
	// as is.
	Merged string `json:"merged"`
}

// Decision answers a Proposal. A non-empty Text that differs from the
// proposal replaces the edited composite and is reconciled again.
type Decision struct {
	Accept bool   `json:"accept"`
	Text   string `json:"text,omitempty"`
}

// Confirmer resolves one proposal at a time.
type Confirmer interface {
	Confirm(ctx context.Context, p Proposal) (Decision, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Proposal) (Decision, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Proposal) (Decision, error) { return f(ctx, p) }

// AcceptAll accepts every proposal unchanged.
type AcceptAll struct{}

func (AcceptAll) Confirm(context.Context, Proposal) (Decision, error) {
	return Decision{Accept: true}, nil
}

// Decisions answers from decisions made up front, for callers that cannot
// prompt. Projects in Ignore are rejected; Override supplies a hand-edited
// composite for a project. Everything else is accepted.
type Decisions struct {
	Ignore   selection.Set
	Override map[string]string
}

func (d Decisions) Confirm(_ context.Context, p Proposal) (Decision, error) {
	if d.Ignore.Has(p.Name) {
		return Decision{}, nil
	}
	if text, ok := d.Override[p.Name]; ok {
		return Decision{Accept: true, Text: text}, nil
	}
	return Decision{Accept: true}, nil
}

// Preview records every proposal and rejects it, turning a save pass into a
// dry run.
type Preview struct {
	mu        sync.Mutex
	proposals []Proposal
}

func (p *Preview) Confirm(_ context.Context, prop Proposal) (Decision, error) {
	p.mu.Lock()
	p.proposals = append(p.proposals, prop)
	p.mu.Unlock()
	return Decision{}, nil
}

func (p *Preview) Proposals() []Proposal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Proposal(nil), p.proposals...)
}
