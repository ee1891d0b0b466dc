package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/index"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/parser"
	"github.com/starford/mastermind/internal/selection"
	"github.com/starford/mastermind/internal/sse"
	"github.com/starford/mastermind/internal/storage"
)

// ResolveSelection fills in the defaults of a selection: no projects means
// every stored project, no tags means every whole-line tag of the selected
// projects. Dates are passed through; none means no date focus.
func (s *Service) ResolveSelection(ctx context.Context, projects, tags, dates []string) (selection.Selection, error) {
	sel := selection.Selection{Projects: projects, Tags: selection.NewSet(tags...), Dates: selection.NewSet(dates...)}
	if len(sel.Projects) == 0 {
		metas, err := s.store.List()
		if err != nil {
			return sel, err
		}
		for _, m := range metas {
			sel.Projects = append(sel.Projects, m.Name)
		}
	}
	if sel.Tags.Len() == 0 {
		inv, err := s.Inventory(ctx, sel.Projects)
		if err != nil {
			return sel, err
		}
		sel.Tags = selection.NewSet(inv.Tags...)
	}
	return sel, nil
}

// Compose builds the composite view of the selected projects. A project
// whose document cannot be read contributes nothing.
func (s *Service) Compose(_ context.Context, sel selection.Selection) (string, error) {
	p, err := s.Patterns()
	if err != nil {
		return "", err
	}
	docs := make([]compose.Document, 0, len(sel.Projects))
	for _, name := range sel.Projects {
		data, err := s.store.Read(name)
		if err != nil {
			s.logger.Warn("compose: read failed", slog.String("project", name), slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, compose.Document{Name: name, Sections: parser.ForProject(name, string(data), p)})
	}
	return compose.Compose(docs, sel, p), nil
}

// Save folds an edited composite back into the project documents, one
// project at a time, asking confirm about each changed project. A nil
// confirm accepts everything.
func (s *Service) Save(ctx context.Context, composite string, sel selection.Selection, confirm compose.Confirmer) (*compose.Report, error) {
	p, err := s.Patterns()
	if err != nil {
		return nil, err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	report, err := compose.NewSavePass(&indexingStore{s: s}, confirm, s.logger).Run(ctx, composite, sel, p)
	if report != nil {
		s.publish(sse.SaveCompleted, report)
	}
	return report, err
}

// Preview runs a save pass that writes nothing and returns what would have
// been asked.
func (s *Service) Preview(ctx context.Context, composite string, sel selection.Selection) ([]compose.Proposal, error) {
	p, err := s.Patterns()
	if err != nil {
		return nil, err
	}
	var prev compose.Preview
	if _, err := compose.NewSavePass(s.store, &prev, s.logger).Run(ctx, composite, sel, p); err != nil {
		return nil, err
	}
	out := prev.Proposals()
	if out == nil {
		out = []compose.Proposal{}
	}
	return out, nil
}

// Export appends the dated sections of free text to their projects.
func (s *Service) Export(_ context.Context, text string) ([]string, error) {
	p, err := s.Patterns()
	if err != nil {
		return nil, err
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return compose.Export(text, &indexingStore{s: s}, p, s.logger)
}

// Delimiters returns the delimiter configuration in effect.
func (s *Service) Delimiters(_ context.Context) (*markup.Delimiters, error) {
	return s.delims.Delimiters()
}

// UpdateDelimiters replaces the delimiter configuration. With migrate set,
// every project document is rewritten from the old delimiters to the new
// ones. The index is rebuilt either way. It returns the migrated projects.
func (s *Service) UpdateDelimiters(ctx context.Context, d markup.Delimiters, migrate bool) ([]string, error) {
	next, err := markup.Compile(&d)
	if err != nil {
		return nil, err
	}
	prev, err := s.Patterns()
	if err != nil {
		return nil, err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.delims.Save(d); err != nil {
		return nil, err
	}

	migrated := []string{}
	if migrate {
		metas, err := s.store.List()
		if err != nil {
			return nil, err
		}
		for _, m := range metas {
			data, err := s.store.Read(m.Name)
			if err != nil {
				return migrated, err
			}
			out := markup.Migrate(string(data), prev, next)
			if out == string(data) {
				continue
			}
			if err := s.store.Write(m.Name, []byte(out)); err != nil {
				return migrated, fmt.Errorf("journal: migrate %s: %w", m.Name, err)
			}
			migrated = append(migrated, m.Name)
		}
		s.logger.Info("delimiters migrated", slog.Int("projects", len(migrated)))
	}

	if err := s.reindex(); err != nil {
		return migrated, err
	}
	s.publish(sse.ConfigUpdated, map[string]any{"migrated": migrated})
	return migrated, nil
}

// Reindex drops the index and rebuilds it from the store.
func (s *Service) Reindex(_ context.Context) error {
	return s.reindex()
}

func (s *Service) reindex() error {
	if err := s.db.Reset(); err != nil {
		return err
	}
	return index.Sync(s.db, s.store, s.pats, s.logger)
}

// indexingStore keeps the index and event stream in step with writes made
// by save passes and exports.
type indexingStore struct {
	s *Service
}

func (w *indexingStore) Read(name string) ([]byte, error) {
	return w.s.store.Read(name)
}

func (w *indexingStore) Write(name string, content []byte) error {
	clean, err := storage.SanitizeName(name)
	if err != nil {
		return err
	}
	_, readErr := w.s.store.Read(clean)
	if err := w.s.store.Write(clean, content); err != nil {
		return err
	}
	data, err := w.s.store.Read(clean)
	if err != nil {
		return err
	}
	w.s.indexDocument(clean, data)
	if readErr != nil {
		w.s.projectEvent("created", clean)
	} else {
		w.s.projectEvent("updated", clean)
	}
	return nil
}
