package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/mastermind/internal/markup"
)

// ProjectRow represents a row in the projects table.
type ProjectRow struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	Sections  int       `json:"sections"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SectionRow represents one indexed section.
type SectionRow struct {
	Project string   `json:"project"`
	Order   int      `json:"order"`
	Date    string   `json:"date,omitempty"`
	Header  string   `json:"header"`
	Tags    []string `json:"tags"`
	Content string   `json:"content"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Project string `json:"project"`
	Order   int    `json:"order"`
	Date    string `json:"date,omitempty"`
	Header  string `json:"header"`
	Snippet string `json:"snippet"`
}

// Inventory lists what a set of projects contains, for building selections.
type Inventory struct {
	Projects []string `json:"projects"`
	// Dates in calendar order.
	Dates []string `json:"dates"`
	// Tags that open a block on a line of their own; these can hide content.
	Tags []string `json:"tags"`
	// SectionTags are every tag seen in section headers or bodies.
	SectionTags []string `json:"section_tags"`
	Calendar    []Year   `json:"calendar"`
}

// Year groups the months of a year that have at least one dated section.
type Year struct {
	Year   int   `json:"year"`
	Months []int `json:"months"`
}

// UpsertProject replaces a project's row, sections, block tags and FTS
// entries within a transaction.
func (db *DB) UpsertProject(p ProjectRow, sections []SectionRow, blockTags []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO projects (name, checksum, sections, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			checksum   = excluded.checksum,
			sections   = excluded.sections,
			updated_at = excluded.updated_at
	`, p.Name, p.Checksum, len(sections), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert project: %w", err)
	}

	_, _ = tx.Exec(`DELETE FROM sections WHERE project = ?`, p.Name)
	if err := ftsDelete(tx, p.Name); err != nil {
		return err
	}
	if len(sections) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO sections (project, ord, date, header, tags, content) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare section insert: %w", err)
		}
		defer stmt.Close()
		for _, s := range sections {
			tagsJSON, _ := json.Marshal(nonNil(s.Tags))
			if _, err := stmt.Exec(p.Name, s.Order, s.Date, s.Header, string(tagsJSON), s.Content); err != nil {
				return fmt.Errorf("index: insert section: %w", err)
			}
			if err := ftsInsert(tx, p.Name, s); err != nil {
				return err
			}
		}
	}

	_, _ = tx.Exec(`DELETE FROM block_tags WHERE project = ?`, p.Name)
	for _, tag := range blockTags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO block_tags (project, tag) VALUES (?, ?)`, p.Name, tag); err != nil {
			return fmt.Errorf("index: insert block tag: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteProject removes a project with its sections, tags and FTS entries.
func (db *DB) DeleteProject(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, name); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM block_tags WHERE project = ?`, name)
	_, _ = tx.Exec(`DELETE FROM sections WHERE project = ?`, name)
	_, _ = tx.Exec(`DELETE FROM projects WHERE name = ?`, name)

	return tx.Commit()
}

// Reset empties the index, for a full rebuild after the delimiters change.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsReset(tx); err != nil {
		return err
	}
	for _, table := range []string{"block_tags", "sections", "projects"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("index: reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a project, or empty string if not found.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM projects WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns name to checksum for every indexed project.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// GetProject returns one project row, or nil if it is not indexed.
func (db *DB) GetProject(name string) (*ProjectRow, error) {
	var p ProjectRow
	err := db.conn.QueryRow(`SELECT name, checksum, sections, updated_at FROM projects WHERE name = ?`, name).
		Scan(&p.Name, &p.Checksum, &p.Sections, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns every indexed project ordered by name.
func (db *DB) ListProjects() ([]ProjectRow, error) {
	rows, err := db.conn.Query(`SELECT name, checksum, sections, updated_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("index: list projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectRow{}
	for rows.Next() {
		var p ProjectRow
		if err := rows.Scan(&p.Name, &p.Checksum, &p.Sections, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Sections returns a project's sections in document order.
func (db *DB) Sections(project string) ([]SectionRow, error) {
	rows, err := db.conn.Query(`
		SELECT project, ord, date, header, tags, content
		FROM sections WHERE project = ? ORDER BY ord
	`, project)
	if err != nil {
		return nil, fmt.Errorf("index: sections: %w", err)
	}
	defer rows.Close()

	var out []SectionRow
	for rows.Next() {
		var s SectionRow
		var tagsJSON string
		if err := rows.Scan(&s.Project, &s.Order, &s.Date, &s.Header, &tagsJSON, &s.Content); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &s.Tags)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Inventory collects dates and tags for the given projects, or for every
// project when the list is empty.
func (db *DB) Inventory(projects []string) (*Inventory, error) {
	where, args := projectFilter("project", projects)
	inv := &Inventory{Projects: []string{}, Dates: []string{}, Tags: []string{}, SectionTags: []string{}, Calendar: []Year{}}

	pWhere, pArgs := projectFilter("name", projects)
	if err := db.collect(&inv.Projects, `SELECT name FROM projects`+pWhere+` ORDER BY name`, pArgs...); err != nil {
		return nil, err
	}
	if err := db.collect(&inv.Dates, `SELECT DISTINCT date FROM sections`+and(where, `date <> ''`), args...); err != nil {
		return nil, err
	}
	markup.SortDates(inv.Dates)
	if err := db.collect(&inv.Tags, `SELECT DISTINCT tag FROM block_tags`+where+` ORDER BY tag`, args...); err != nil {
		return nil, err
	}

	var raw []string
	if err := db.collect(&raw, `SELECT tags FROM sections`+where, args...); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, r := range raw {
		var tags []string
		_ = json.Unmarshal([]byte(r), &tags)
		for _, t := range tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				inv.SectionTags = append(inv.SectionTags, t)
			}
		}
	}
	sort.Strings(inv.SectionTags)

	inv.Calendar = calendar(inv.Dates)
	return inv, nil
}

func (db *DB) collect(dst *[]string, query string, args ...any) error {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return fmt.Errorf("index: inventory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		*dst = append(*dst, s)
	}
	return rows.Err()
}

func projectFilter(column string, projects []string) (string, []any) {
	if len(projects) == 0 {
		return "", nil
	}
	args := make([]any, len(projects))
	for i, p := range projects {
		args[i] = p
	}
	return " WHERE " + column + " IN (?" + strings.Repeat(", ?", len(projects)-1) + ")", args
}

func and(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}

// calendar groups sorted dates into years and months.
func calendar(dates []string) []Year {
	out := []Year{}
	for _, d := range dates {
		year, m, _, ok := markup.DateParts(d)
		if !ok {
			continue
		}
		if len(out) == 0 || out[len(out)-1].Year != year {
			out = append(out, Year{Year: year})
		}
		y := &out[len(out)-1]
		if len(y.Months) == 0 || y.Months[len(y.Months)-1] != m {
			y.Months = append(y.Months, m)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
