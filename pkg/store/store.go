// Package store keeps named PSM datasets for each raw file in an SQLite database
// next to it.
package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ChrisMcGann/pepkey/pkg/psm"
	tsvreader "github.com/ChrisMcGann/pepkey/pkg/reader/tsv"
	tsvwriter "github.com/ChrisMcGann/pepkey/pkg/writer/tsv"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Suffix replaces the extension of a raw file to name its store
const Suffix = ".ms_data.db"

// Dataset names written by the search and scoring stages
const (
	FirstSearch  = "first_search"
	SecondSearch = "second_search"
	PeptideFDR   = "peptide_fdr"
	ProteinFDR   = "protein_fdr"
)

// ErrDatasetNotFound is returned by Read when no dataset has the requested name
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset describes a stored table
type Dataset struct {
	Name    string
	RunID   string
	Created time.Time
	Rows    int
}

// Store is the dataset database of one raw file
type Store struct {
	db   *sql.DB
	path string
}

// PathFor returns the store path of a raw file
func PathFor(rawFile string) string {
	return strings.TrimSuffix(rawFile, filepath.Ext(rawFile)) + Suffix
}

// Open opens or creates the store at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS datasets (
		name TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		created TEXT NOT NULL,
		n_rows INTEGER NOT NULL,
		rows BLOB
	);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables in %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenFor opens the store belonging to a raw file
func OpenFor(rawFile string) (*Store, error) {
	return Open(PathFor(rawFile))
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Write stores t under name, replacing any previous dataset of that name, and
// returns the new run identifier
func (s *Store) Write(name string, t psm.Table) (string, error) {
	var buf bytes.Buffer
	if err := tsvwriter.Write(&buf, t); err != nil {
		return "", fmt.Errorf("failed to encode dataset %s: %w", name, err)
	}

	runID := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO datasets (name, run_id, created, n_rows, rows)
		VALUES (?, ?, ?, ?, ?)
	`, name, runID, time.Now().UTC().Format(time.RFC3339), len(t), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to write dataset %s to %s: %w", name, s.path, err)
	}
	return runID, nil
}

// Read returns the dataset stored under name
func (s *Store) Read(name string) (psm.Table, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT rows FROM datasets WHERE name = ?`, name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s in %s", ErrDatasetNotFound, name, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s from %s: %w", name, s.path, err)
	}

	t, err := tsvreader.ReadAll(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", name, err)
	}
	return t, nil
}

// Has reports whether a dataset named name exists
func (s *Store) Has(name string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM datasets WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", s.path, err)
	}
	return n > 0, nil
}

// List returns every stored dataset ordered by name
func (s *Store) List() ([]Dataset, error) {
	rows, err := s.db.Query(`SELECT name, run_id, created, n_rows FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.path, err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var d Dataset
		var created string
		if err := rows.Scan(&d.Name, &d.RunID, &created, &d.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		if d.Created, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes a dataset. Deleting a missing dataset is not an error.
func (s *Store) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete dataset %s: %w", name, err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
