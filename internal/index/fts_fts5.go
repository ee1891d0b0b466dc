//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(
			project UNINDEXED,
			ord UNINDEXED,
			date UNINDEXED,
			header,
			content,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, project string, s SectionRow) error {
	_, err := tx.Exec(`INSERT INTO sections_fts (project, ord, date, header, content, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		project, s.Order, s.Date, s.Header, s.Content, strings.Join(s.Tags, " "))
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, project string) error {
	if _, err := tx.Exec(`DELETE FROM sections_fts WHERE project = ?`, project); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM sections_fts`); err != nil {
		return fmt.Errorf("index: reset fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching sections with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT project,
		       ord,
		       date,
		       header,
		       snippet(sections_fts, 4, '<b>', '</b>', '...', 64)
		FROM sections_fts
		WHERE sections_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
