package compose

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/reconcile"
	"github.com/starford/mastermind/internal/selection"
)

// Store is the document store a save pass reads from and writes to.
type Store interface {
	Read(name string) ([]byte, error)
	Write(name string, content []byte) error
}

// Status is the outcome of one project in a save pass.
type Status string

const (
	StatusSaved     Status = "saved"
	StatusIgnored   Status = "ignored"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

// Result reports what happened to one project.
type Result struct {
	Project string `json:"project"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Report summarises a save pass.
type Report struct {
	BatchID string   `json:"batch_id"`
	Results []Result `json:"results"`
}

// Saved returns the names of projects that were written.
func (r *Report) Saved() []string {
	var out []string
	for _, res := range r.Results {
		if res.Status == StatusSaved {
			out = append(out, res.Project)
		}
	}
	return out
}

type saveTask struct {
	name   string
	edited string
}

// SavePass reconciles an edited composite into the store one project at a
// time. The next project is not looked at until the confirmation for the
// current one has resolved.
type SavePass struct {
	store   Store
	confirm Confirmer
	logger  *slog.Logger
}

func NewSavePass(store Store, confirm Confirmer, logger *slog.Logger) *SavePass {
	if confirm == nil {
		confirm = AcceptAll{}
	}
	return &SavePass{store: store, confirm: confirm, logger: logger}
}

// Run processes every project of composite in order of first appearance.
// Per-project failures are recorded in the report and do not stop the pass;
// only context cancellation does.
func (s *SavePass) Run(ctx context.Context, composite string, sel selection.Selection, p *markup.Patterns) (*Report, error) {
	report := &Report{BatchID: ulid.Make().String(), Results: []Result{}}
	logger := s.logger.With(slog.String("batch", report.BatchID))

	var queue []saveTask
	for _, pt := range GroupByProject(composite, p) {
		queue = append(queue, saveTask{name: pt.Name, edited: pt.Text})
	}

	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := s.process(ctx, task, sel, p, logger)
		report.Results = append(report.Results, res)
		if res.Status == StatusFailed && ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	logger.Info("save pass finished", slog.Int("projects", len(report.Results)))
	return report, nil
}

func (s *SavePass) process(ctx context.Context, t saveTask, sel selection.Selection, p *markup.Patterns, logger *slog.Logger) Result {
	res := Result{Project: t.name}

	original := ""
	if data, err := s.store.Read(t.name); err != nil {
		logger.Warn("save: fetch failed, treating as empty",
			slog.String("project", t.name), slog.String("error", err.Error()))
	} else {
		original = string(data)
	}

	if ComparableView(t.name, original, sel, p) == t.edited {
		res.Status = StatusUnchanged
		return res
	}

	in := reconcile.Input{Original: original, Edited: t.edited, Tags: sel.Tags, Focus: sel.Dates}
	proposal := Proposal{
		Name:     t.name,
		Original: original,
		Proposed: t.edited,
		Merged:   reconcile.Reconcile(in, p),
	}

	dec, err := s.confirm.Confirm(ctx, proposal)
	if err != nil {
		logger.Warn("save: confirmation failed", slog.String("project", t.name), slog.String("error", err.Error()))
		res.Status, res.Error = StatusFailed, err.Error()
		return res
	}
	if !dec.Accept {
		res.Status = StatusIgnored
		return res
	}

	merged := proposal.Merged
	if dec.Text != "" && dec.Text != t.edited {
		in.Edited = dec.Text
		merged = reconcile.Reconcile(in, p)
	}
	if merged == original {
		res.Status = StatusUnchanged
		return res
	}

	if err := s.store.Write(t.name, []byte(merged)); err != nil {
		logger.Error("save: write failed", slog.String("project", t.name), slog.String("error", err.Error()))
		res.Status, res.Error = StatusFailed, err.Error()
		return res
	}
	logger.Info("save: project written", slog.String("project", t.name))
	res.Status = StatusSaved
	return res
}
