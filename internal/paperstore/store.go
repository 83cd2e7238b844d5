// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paperstore caches retrieval metadata in SQLite. Every paper
// the aggregator returns is upserted here so repeated runs on related
// topics can be inspected offline with the cache subcommand. Generated
// reports are never stored; this is bibliographic metadata only.
package paperstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/pkg/types"
)

const dbFile = "litreview.db"

// Store manages the retrieval cache database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache at dir/litreview.db, creating the
// schema when missing.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT,
			abstract TEXT,
			authors TEXT,
			journal TEXT,
			year INTEGER,
			doi TEXT,
			source TEXT,
			fetched_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_source ON papers(source)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Put upserts one paper.
func (s *Store) Put(p types.UnifiedPaper) error {
	authors, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("marshaling authors: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO papers (id, title, abstract, authors, journal, year, doi, source, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract,
			authors=excluded.authors, journal=excluded.journal,
			year=excluded.year, doi=excluded.doi,
			source=excluded.source, fetched_at=excluded.fetched_at`,
		p.ID, p.Title, p.Abstract, string(authors), p.Journal, p.Year,
		p.DOI, string(p.Source), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", p.ID, err)
	}
	return nil
}

// PutAll upserts papers in one transaction.
func (s *Store) PutAll(papers []types.UnifiedPaper) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO papers (id, title, abstract, authors, journal, year, doi, source, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract,
			authors=excluded.authors, journal=excluded.journal,
			year=excluded.year, doi=excluded.doi,
			source=excluded.source, fetched_at=excluded.fetched_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range papers {
		authors, err := json.Marshal(p.Authors)
		if err != nil {
			return fmt.Errorf("marshaling authors for %s: %w", p.ID, err)
		}
		if _, err := stmt.Exec(p.ID, p.Title, p.Abstract, string(authors),
			p.Journal, p.Year, p.DOI, string(p.Source), now); err != nil {
			return fmt.Errorf("upserting paper %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns one cached paper by ID. The second return value reports
// whether it was found.
func (s *Store) Get(id string) (types.UnifiedPaper, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, title, abstract, authors, journal, year, doi, source
		 FROM papers WHERE id = ?`, id)

	var p types.UnifiedPaper
	var authors, source string
	err := row.Scan(&p.ID, &p.Title, &p.Abstract, &authors, &p.Journal,
		&p.Year, &p.DOI, &source)
	if err == sql.ErrNoRows {
		return types.UnifiedPaper{}, false, nil
	}
	if err != nil {
		return types.UnifiedPaper{}, false, fmt.Errorf("querying paper %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return types.UnifiedPaper{}, false, fmt.Errorf("unmarshaling authors for %s: %w", id, err)
	}
	p.Source = types.Source(source)
	return p, true, nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Papers   int                  `yaml:"papers"`
	BySource map[types.Source]int `yaml:"by_source"`
}

// Stats counts cached papers overall and per source.
func (s *Store) Stats() (Stats, error) {
	st := Stats{BySource: make(map[types.Source]int)}

	if err := s.db.QueryRow(`SELECT count(*) FROM papers`).Scan(&st.Papers); err != nil {
		return Stats{}, fmt.Errorf("counting papers: %w", err)
	}

	rows, err := s.db.Query(`SELECT source, count(*) FROM papers GROUP BY source`)
	if err != nil {
		return Stats{}, fmt.Errorf("counting by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return Stats{}, fmt.Errorf("scanning source count: %w", err)
		}
		st.BySource[types.Source(source)] = n
	}
	return st, rows.Err()
}

// Clear removes every cached paper.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM papers`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Export writes all cached papers to w as YAML, ordered by fetch time
// then ID for stable output.
func (s *Store) Export(w io.Writer) error {
	rows, err := s.db.Query(
		`SELECT id, title, abstract, authors, journal, year, doi, source
		 FROM papers ORDER BY fetched_at, id`)
	if err != nil {
		return fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.UnifiedPaper
	for rows.Next() {
		var p types.UnifiedPaper
		var authors, source string
		if err := rows.Scan(&p.ID, &p.Title, &p.Abstract, &authors,
			&p.Journal, &p.Year, &p.DOI, &source); err != nil {
			return fmt.Errorf("scanning paper: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
			return fmt.Errorf("unmarshaling authors for %s: %w", p.ID, err)
		}
		p.Source = types.Source(source)
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(struct {
		Papers []types.UnifiedPaper `yaml:"papers"`
	}{Papers: papers})
}
