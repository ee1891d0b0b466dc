// Package journal coordinates the project store, the index and the delimiter
// configuration behind the HTTP, MCP and command line surfaces.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/mastermind/internal/apperr"
	"github.com/starford/mastermind/internal/checksum"
	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/index"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/models"
	"github.com/starford/mastermind/internal/parser"
	"github.com/starford/mastermind/internal/render"
	"github.com/starford/mastermind/internal/selection"
	"github.com/starford/mastermind/internal/sse"
	"github.com/starford/mastermind/internal/storage"
)

// DelimiterStore holds the delimiter configuration.
type DelimiterStore interface {
	markup.Source
	Save(d markup.Delimiters) error
}

// Events receives change notifications. *sse.Broker implements it.
type Events interface {
	PublishProjectEvent(kind, project string)
	Publish(event sse.Event)
}

// Deps are the collaborators of a Service. Archive and Events may be nil.
type Deps struct {
	Store      storage.Provider
	Archive    *storage.Archive
	DB         *index.DB
	Delimiters DelimiterStore
	Events     Events
	Logger     *slog.Logger
}

// Service coordinates storage, index and configuration operations.
type Service struct {
	store   storage.Provider
	archive *storage.Archive
	db      *index.DB
	delims  DelimiterStore
	pats    *markup.Compiler
	events  Events
	logger  *slog.Logger

	// saveMu keeps save passes, exports and migrations from interleaving.
	saveMu sync.Mutex
}

// New creates a journal service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   d.Store,
		archive: d.Archive,
		db:      d.DB,
		delims:  d.Delimiters,
		pats:    markup.NewCompiler(d.Delimiters),
		events:  d.Events,
		logger:  logger,
	}
}

// PatternSource exposes the compiled delimiters for the index watcher.
func (s *Service) PatternSource() index.PatternSource { return s.pats }

// Patterns returns the compiled delimiters in effect.
func (s *Service) Patterns() (*markup.Patterns, error) {
	return s.pats.Patterns()
}

func (s *Service) projectEvent(kind, name string) {
	if s.events != nil {
		s.events.PublishProjectEvent(kind, name)
	}
}

func (s *Service) publish(typ string, data any) {
	if s.events != nil {
		s.events.Publish(sse.Event{Type: typ, Data: data})
	}
}

func (s *Service) indexDocument(name string, data []byte) {
	p, err := s.Patterns()
	if err != nil {
		s.logger.Warn("index: patterns unavailable", slog.String("error", err.Error()))
		return
	}
	if err := index.IndexDocument(s.db, name, data, time.Now(), p); err != nil {
		s.logger.Warn("index: update failed", slog.String("project", name), slog.String("error", err.Error()))
	}
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", apperr.ErrNotFound, err)
	}
	return err
}

// ListProjects returns the indexed projects.
func (s *Service) ListProjects(_ context.Context) ([]index.ProjectRow, error) {
	return s.db.ListProjects()
}

// GetProject reads one project document.
func (s *Service) GetProject(_ context.Context, name string) (*models.Project, error) {
	clean, err := storage.SanitizeName(name)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(clean)
	if err != nil {
		return nil, notFound(err)
	}
	return s.project(clean, data), nil
}

func (s *Service) project(name string, data []byte) *models.Project {
	p := &models.Project{Name: name, Content: string(data), Checksum: checksum.Sum(data)}
	if row, err := s.db.GetProject(name); err == nil && row != nil {
		p.UpdatedAt = row.UpdatedAt
	}
	return p
}

// CreateProject writes a new project document. Empty content is replaced by
// a dated section skeleton for the project.
func (s *Service) CreateProject(_ context.Context, name, content string) (*models.Project, error) {
	clean, err := storage.SanitizeName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Read(clean); err == nil {
		return nil, fmt.Errorf("journal: create %s: %w", clean, apperr.ErrAlreadyExists)
	}
	if content == "" {
		p, err := s.Patterns()
		if err != nil {
			return nil, err
		}
		content = skeleton(p, clean, time.Now())
	}
	if err := s.store.Write(clean, []byte(content)); err != nil {
		return nil, err
	}
	data, err := s.store.Read(clean)
	if err != nil {
		return nil, err
	}
	s.indexDocument(clean, data)
	s.projectEvent("created", clean)
	return s.project(clean, data), nil
}

func skeleton(p *markup.Patterns, name string, now time.Time) string {
	return p.DateLine(now.Format(markup.DateLayout)) + "\n" + p.StartLine(name) + "\n\n" + p.EndLine() + "\n"
}

// PutProject replaces a project document, creating it when missing. A
// non-empty ifMatch must match the stored checksum.
func (s *Service) PutProject(_ context.Context, name, content, ifMatch string) (*models.Project, bool, error) {
	clean, err := storage.SanitizeName(name)
	if err != nil {
		return nil, false, err
	}
	existing, readErr := s.store.Read(clean)
	created := readErr != nil
	switch {
	case created && !errors.Is(readErr, fs.ErrNotExist):
		return nil, false, readErr
	case created && ifMatch != "" && ifMatch != "*":
		return nil, false, fmt.Errorf("journal: put %s: %w", clean, apperr.ErrNotFound)
	case !created && !checksum.Matches(ifMatch, checksum.Sum(existing)):
		return nil, false, fmt.Errorf("journal: put %s: %w", clean, apperr.ErrConflict)
	}

	if err := s.store.Write(clean, []byte(content)); err != nil {
		return nil, false, err
	}
	data, err := s.store.Read(clean)
	if err != nil {
		return nil, false, err
	}
	s.indexDocument(clean, data)
	if created {
		s.projectEvent("created", clean)
	} else {
		s.projectEvent("updated", clean)
	}
	return s.project(clean, data), created, nil
}

// DeleteProject removes a project document and its index entries.
func (s *Service) DeleteProject(_ context.Context, name string) error {
	clean, err := storage.SanitizeName(name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(clean); err != nil {
		return notFound(err)
	}
	if err := s.db.DeleteProject(clean); err != nil {
		return err
	}
	s.projectEvent("deleted", clean)
	return nil
}

// ArchiveProject moves a project document to the archive and returns the
// archive key.
func (s *Service) ArchiveProject(_ context.Context, name string) (string, error) {
	clean, err := storage.SanitizeName(name)
	if err != nil {
		return "", err
	}
	key, err := s.store.Archive(clean)
	if err != nil {
		return "", notFound(err)
	}
	if err := s.db.DeleteProject(clean); err != nil {
		return key, err
	}
	s.logger.Info("project archived", slog.String("project", clean), slog.String("key", key))
	s.projectEvent("archived", clean)
	return key, nil
}

// Archives lists archived copies.
func (s *Service) Archives(_ context.Context) []models.ArchiveEntry {
	if s.archive == nil {
		return []models.ArchiveEntry{}
	}
	out := s.archive.List()
	if out == nil {
		out = []models.ArchiveEntry{}
	}
	return out
}

// ReadArchive returns one archived copy.
func (s *Service) ReadArchive(_ context.Context, key string) ([]byte, error) {
	if s.archive == nil || key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return nil, fmt.Errorf("journal: archive %q: %w", key, apperr.ErrNotFound)
	}
	data, err := s.archive.Read(key)
	if err != nil {
		return nil, notFound(err)
	}
	return data, nil
}

// Search runs a full-text search over indexed sections.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	out, err := s.db.Search(query, limit)
	if out == nil {
		out = []index.SearchResult{}
	}
	return out, err
}

// Inventory lists dates and tags of the given projects, or of every project.
func (s *Service) Inventory(_ context.Context, projects []string) (*index.Inventory, error) {
	return s.db.Inventory(projects)
}

// Analyze parses arbitrary text with the current delimiters.
func (s *Service) Analyze(_ context.Context, text string) (*parser.Result, error) {
	p, err := s.Patterns()
	if err != nil {
		return nil, err
	}
	return parser.Parse(text, p), nil
}

// RenderProject renders one project's composite view as HTML. A nil
// selection shows everything the project holds.
func (s *Service) RenderProject(ctx context.Context, name string, sel *selection.Selection) (string, error) {
	proj, err := s.GetProject(ctx, name)
	if err != nil {
		return "", err
	}
	p, err := s.Patterns()
	if err != nil {
		return "", err
	}
	if sel == nil {
		resolved, err := s.ResolveSelection(ctx, []string{proj.Name}, nil, nil)
		if err != nil {
			return "", err
		}
		sel = &resolved
	}
	return render.HTML(compose.ComparableView(proj.Name, proj.Content, *sel, p), p)
}

// Snippets are ready-made lines in the current delimiters.
type Snippets struct {
	Date    string `json:"date"`
	Section string `json:"section"`
	Tag     string `json:"tag"`
}

// Snippets builds a date line for now, a section skeleton for project and a
// tag pair for tag.
func (s *Service) Snippets(_ context.Context, project, tag string, now time.Time) (*Snippets, error) {
	p, err := s.Patterns()
	if err != nil {
		return nil, err
	}
	if project == "" {
		project = markup.UnnamedProject
	}
	if tag == "" {
		tag = "tag"
	}
	return &Snippets{
		Date:    p.DateLine(now.Format(markup.DateLayout)),
		Section: p.StartLine(project) + "\n\n" + p.EndLine(),
		Tag:     p.OpenTag(tag) + "\n\n" + p.CloseTag(tag),
	}, nil
}
