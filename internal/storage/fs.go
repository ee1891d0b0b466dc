package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/mastermind/internal/apperr"
	"github.com/starford/mastermind/internal/checksum"
	"github.com/starford/mastermind/internal/models"
)

// Ext is the file extension of project documents.
const Ext = ".md"

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_\- ]`)

// SanitizeName maps a project name onto the characters allowed in a file
// name. Anything else becomes an underscore.
func SanitizeName(name string) (string, error) {
	clean := strings.TrimSpace(unsafeName.ReplaceAllString(name, "_"))
	if clean == "" {
		return "", fmt.Errorf("storage: %q: %w", name, apperr.ErrInvalidName)
	}
	return clean, nil
}

// FS implements Provider with one <name>.md file per project in a flat
// directory.
type FS struct {
	root    string // absolute path to the journal directory
	archive *Archive
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist. archive may be nil, in which case
// Archive fails.
func NewFS(root string, archive *Archive) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, archive: archive}, nil
}

// Root returns the absolute journal directory.
func (f *FS) Root() string { return f.root }

// pathFor resolves a project name to its file inside root.
func (f *FS) pathFor(name string) (string, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(f.root, clean+Ext)
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("storage: name escapes journal root: %s", name)
	}
	return abs, nil
}

// NameFromPath returns the project name of a document path, or false when
// the path is not a project document.
func NameFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, Ext) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, Ext), true
}

// List returns metadata for every project document, sorted by name.
func (f *FS) List() ([]models.ProjectMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.ProjectMetadata
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := NameFromPath(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.ProjectMetadata{
			Name:      name,
			Checksum:  checksum.Sum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the raw bytes of a project document.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.pathFor(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file, fsync, rename. Line endings are
// normalised to LF.
func (f *FS) Write(name string, content []byte) error {
	abs, err := f.pathFor(name)
	if err != nil {
		return err
	}
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	tmp, err := os.CreateTemp(f.root, ".mastermind-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a project document.
func (f *FS) Delete(name string) error {
	abs, err := f.pathFor(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

// Archive copies the document into the archive store, then removes it.
func (f *FS) Archive(name string) (string, error) {
	if f.archive == nil {
		return "", fmt.Errorf("storage: archive %s: no archive configured", name)
	}
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	data, err := f.Read(clean)
	if err != nil {
		return "", err
	}
	key, err := f.archive.Put(clean, data)
	if err != nil {
		return "", err
	}
	if err := f.Delete(clean); err != nil {
		return key, err
	}
	return key, nil
}
