// Package testutil provides shared test helpers for setting up journals and
// databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mastermind/internal/index"
	"github.com/starford/mastermind/internal/journal"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mastermind-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary journal directory with an archive beneath it.
func TestStore(t *testing.T) (string, *storage.FS, *storage.Archive) {
	t.Helper()
	dir := t.TempDir()
	archive := storage.NewArchive(filepath.Join(dir, "archive"))
	store, err := storage.NewFS(dir, archive)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store, archive
}

// TestService wires a journal service over a temporary directory, database
// and default delimiters. events may be nil.
func TestService(t *testing.T, events journal.Events) (*journal.Service, string) {
	t.Helper()
	dir, store, archive := TestStore(t)

	delims := markup.NewFileSource(filepath.Join(t.TempDir(), "delimiters.yaml"), markup.Defaults())
	if err := delims.Load(); err != nil {
		t.Fatal(err)
	}

	svc := journal.New(journal.Deps{
		Store:      store,
		Archive:    archive,
		DB:         TestDB(t),
		Delimiters: delims,
		Events:     events,
		Logger:     Logger(),
	})
	return svc, dir
}

// WriteProject writes a project document straight to disk.
func WriteProject(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+storage.Ext), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
