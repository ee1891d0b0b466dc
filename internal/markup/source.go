package markup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source supplies the delimiters currently in effect.
type Source interface {
	Delimiters() (*Delimiters, error)
}

type staticSource struct{ d Delimiters }

// Static returns a Source that always yields d.
func Static(d Delimiters) Source { return staticSource{d: d} }

func (s staticSource) Delimiters() (*Delimiters, error) {
	d := s.d
	return &d, nil
}

// FileSource keeps the delimiters in a YAML file next to the journal.
type FileSource struct {
	path     string
	defaults Delimiters

	mu      sync.RWMutex
	current *Delimiters
}

func NewFileSource(path string, defaults Delimiters) *FileSource {
	return &FileSource{path: path, defaults: defaults}
}

// Load reads the file, creating it from the defaults when it does not exist.
func (s *FileSource) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.Save(s.defaults)
	}
	if err != nil {
		return fmt.Errorf("markup: read %s: %w", s.path, err)
	}

	var d Delimiters
	if err := yaml.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("markup: parse %s: %w", s.path, err)
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, s.path, err)
	}

	s.mu.Lock()
	s.current = &d
	s.mu.Unlock()
	return nil
}

// Delimiters returns a copy of the loaded configuration.
func (s *FileSource) Delimiters() (*Delimiters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrConfigNotLoaded
	}
	d := *s.current
	return &d, nil
}

// Save validates d, persists it and makes it current.
func (s *FileSource) Save(d Delimiters) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	data, err := yaml.Marshal(&d)
	if err != nil {
		return fmt.Errorf("markup: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("markup: mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("markup: write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("markup: rename %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.current = &d
	s.mu.Unlock()
	return nil
}

// Compiler hands out Patterns for the source's current delimiters and
// recompiles whenever they change.
type Compiler struct {
	src Source

	mu   sync.Mutex
	last Delimiters
	pats *Patterns
}

func NewCompiler(src Source) *Compiler {
	return &Compiler{src: src}
}

func (c *Compiler) Patterns() (*Patterns, error) {
	d, err := c.src.Delimiters()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pats != nil && c.last == *d {
		return c.pats, nil
	}
	p, err := Compile(d)
	if err != nil {
		return nil, err
	}
	c.last, c.pats = *d, p
	return p, nil
}
