package storage

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"github.com/starford/mastermind/internal/models"
)

const stampLayout = "20060102-150405"

// Archive keeps retired project documents in a diskv store, one flat file
// per archived copy named <project>-<YYYYMMDD-HHMMSS>.md.
type Archive struct {
	d   *diskv.Diskv
	now func() time.Time
}

// NewArchive opens (or creates) the archive rooted at dir.
func NewArchive(dir string) *Archive {
	return &Archive{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			TempDir:      filepath.Join(dir, ".tmp"),
			CacheSizeMax: 1 << 20,
		}),
		now: time.Now,
	}
}

// Put stores content under a fresh timestamped key and returns the key.
func (a *Archive) Put(name string, content []byte) (string, error) {
	stamp := a.now().Format(stampLayout)
	key := name + "-" + stamp + Ext
	for i := 2; a.d.Has(key); i++ {
		key = fmt.Sprintf("%s-%s-%d%s", name, stamp, i, Ext)
	}
	if err := a.d.Write(key, content); err != nil {
		return "", fmt.Errorf("storage: archive %s: %w", name, err)
	}
	return key, nil
}

// Read returns an archived copy.
func (a *Archive) Read(key string) ([]byte, error) {
	data, err := a.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("storage: archive read %s: %w", key, err)
	}
	return data, nil
}

// List returns every archived copy, newest stamp last within a project.
func (a *Archive) List() []models.ArchiveEntry {
	cancel := make(chan struct{})
	defer close(cancel)

	var out []models.ArchiveEntry
	for key := range a.d.Keys(cancel) {
		if strings.HasPrefix(key, ".") || !strings.HasSuffix(key, Ext) {
			continue
		}
		out = append(out, parseArchiveKey(key))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// parseArchiveKey splits <project>-<YYYYMMDD>-<HHMMSS>[-n].md.
func parseArchiveKey(key string) models.ArchiveEntry {
	e := models.ArchiveEntry{Key: key, Project: strings.TrimSuffix(key, Ext)}
	parts := strings.Split(e.Project, "-")
	for i := len(parts) - 2; i >= 1; i-- {
		stamp := parts[i] + "-" + parts[i+1]
		if _, err := time.Parse(stampLayout, stamp); err == nil {
			e.Project = strings.Join(parts[:i], "-")
			e.Stamp = stamp
			break
		}
	}
	return e
}
