package index

import (
	"log/slog"
	"time"

	"github.com/starford/mastermind/internal/checksum"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/parser"
	"github.com/starford/mastermind/internal/storage"
)

// PatternSource yields the compiled delimiters in effect.
type PatternSource interface {
	Patterns() (*markup.Patterns, error)
}

// Sync walks the journal and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, pats PatternSource, logger *slog.Logger) error {
	p, err := pats.Patterns()
	if err != nil {
		return err
	}
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}

		if checksums[m.Name] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("project", m.Name), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, m.Name, data, m.UpdatedAt, p); err != nil {
			logger.Warn("sync: index failed", slog.String("project", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("project", m.Name))
		}
	}

	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.DeleteProject(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("project", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("project", name))
			}
		}
	}

	return nil
}

// IndexDocument parses a project document and upserts it. Only the sections
// headed with the project's own name are indexed, matching what the
// composite view shows for it.
func IndexDocument(db *DB, name string, data []byte, updatedAt time.Time, p *markup.Patterns) error {
	text := string(data)
	secs := parser.ForProject(name, text, p)

	rows := make([]SectionRow, 0, len(secs))
	for _, s := range secs {
		rows = append(rows, SectionRow{
			Project: name,
			Order:   s.Order,
			Date:    s.Date,
			Header:  s.Header,
			Tags:    s.Tags,
			Content: s.Content,
		})
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	row := ProjectRow{Name: name, Checksum: checksum.Sum(data), UpdatedAt: updatedAt}
	return db.UpsertProject(row, rows, parser.BlockTags(text, p))
}
