//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on the sections table.
	return nil
}

func ftsInsert(_ *sql.Tx, _ string, _ SectionRow) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

func ftsReset(_ *sql.Tx) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT project, ord, date, header, substr(content, 1, 200)
		FROM sections
		WHERE header LIKE ? OR content LIKE ? OR tags LIKE ?
		ORDER BY project, ord
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Project, &r.Order, &r.Date, &r.Header, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
