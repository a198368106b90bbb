// Package sqlite provides SQLite database writing and loading for spectral libraries
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ChrisMcGann/pepkey/pkg/library"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Archive layout version
	archiveVersion = 1
)

// Writer handles writing a library to an SQLite archive
type Writer struct {
	db           *sql.DB
	outputPath   string
	spectrumStmt *sql.Stmt
	proteinStmt  *sql.Stmt
	peptideStmt  *sql.Stmt
	mappingStmt  *sql.Stmt
	boundStmt    *sql.Stmt
	width        int
	spectra      int
	finalized    bool
}

// NewWriter creates a new SQLite writer. An existing file at outputPath is replaced.
func NewWriter(outputPath string) (*Writer, error) {
	if err := os.Remove(outputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to replace %s: %w", outputPath, err)
	}

	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY,
		Sequence TEXT NOT NULL,
		PrecursorMass DOUBLE NOT NULL,
		blobMass BLOB,
		blobType BLOB
	);

	CREATE TABLE IF NOT EXISTS BoundsTable (
		ColumnIndex INTEGER PRIMARY KEY,
		Count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ProteinTable (
		ProteinId INTEGER PRIMARY KEY,
		Accession TEXT,
		Name TEXT,
		Description TEXT,
		Sequence TEXT
	);

	CREATE TABLE IF NOT EXISTS PeptideTable (
		PeptideId INTEGER PRIMARY KEY,
		Sequence TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS PeptideProteinTable (
		PeptideId INTEGER REFERENCES PeptideTable(PeptideId),
		ProteinId INTEGER REFERENCES ProteinTable(ProteinId),
		Position INTEGER,
		PRIMARY KEY (PeptideId, ProteinId)
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Width INTEGER,
		Spectra INTEGER,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.spectrumStmt, err = w.db.Prepare(`
		INSERT INTO SpectrumTable (SpectrumId, Sequence, PrecursorMass, blobMass, blobType)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	w.proteinStmt, err = w.db.Prepare(`
		INSERT INTO ProteinTable (ProteinId, Accession, Name, Description, Sequence)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare protein statement: %w", err)
	}

	w.peptideStmt, err = w.db.Prepare(`INSERT INTO PeptideTable (PeptideId, Sequence) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare peptide statement: %w", err)
	}

	w.mappingStmt, err = w.db.Prepare(`
		INSERT INTO PeptideProteinTable (PeptideId, ProteinId, Position) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare mapping statement: %w", err)
	}

	w.boundStmt, err = w.db.Prepare(`INSERT INTO BoundsTable (ColumnIndex, Count) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare bounds statement: %w", err)
	}

	return nil
}

// WriteLibrary writes all spectra, bounds, proteins and the peptide map in one transaction
func (w *Writer) WriteLibrary(lib *library.Library) error {
	if err := lib.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid library: %w", err)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := w.writeAll(tx, lib); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit library: %w", err)
	}
	w.width = lib.Width()
	w.spectra = lib.Len()
	return nil
}

func (w *Writer) writeAll(tx *sql.Tx, lib *library.Library) error {
	spectrumStmt := tx.Stmt(w.spectrumStmt)
	for i := 0; i < lib.Len(); i++ {
		_, err := spectrumStmt.Exec(
			i,                                // SpectrumId
			lib.Sequences[i],                 // Sequence
			lib.Precursors[i],                // PrecursorMass
			encodeFloat64(lib.FragMasses[i]), // blobMass
			encodeInt8(lib.FragTypes[i]),     // blobType
		)
		if err != nil {
			return fmt.Errorf("failed to insert spectrum %s: %w", lib.Sequences[i], err)
		}
	}

	boundStmt := tx.Stmt(w.boundStmt)
	for j, n := range lib.Bounds {
		if _, err := boundStmt.Exec(j, n); err != nil {
			return fmt.Errorf("failed to insert bounds: %w", err)
		}
	}

	proteinStmt := tx.Stmt(w.proteinStmt)
	for i, p := range lib.Proteins {
		if _, err := proteinStmt.Exec(i, p.ID, p.Name, p.Description, p.Sequence); err != nil {
			return fmt.Errorf("failed to insert protein %s: %w", p.Name, err)
		}
	}

	if lib.Peptides == nil {
		return nil
	}
	peptideStmt := tx.Stmt(w.peptideStmt)
	mappingStmt := tx.Stmt(w.mappingStmt)
	for i, seq := range lib.Peptides.Sequences() {
		if _, err := peptideStmt.Exec(i, seq); err != nil {
			return fmt.Errorf("failed to insert peptide %s: %w", seq, err)
		}
		for k, p := range lib.Peptides.Proteins(seq) {
			if _, err := mappingStmt.Exec(i, p, k); err != nil {
				return fmt.Errorf("failed to insert mapping %s: %w", seq, err)
			}
		}
	}
	return nil
}

// encodeFloat64 encodes values as a little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// encodeInt8 encodes values one byte each
func encodeInt8(values []int8) []byte {
	buf := make([]byte, len(values))
	for i, v := range values {
		buf[i] = byte(v)
	}
	return buf
}

// Finalize writes the header table and closes the database
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true

	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, Width, Spectra, Description)
		VALUES (?, ?, ?, ?, ?)
	`, archiveVersion, time.Now().Format(headerDateFormat), w.width, w.spectra, "pepkey theoretical library")
	if err != nil {
		w.db.Close()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{w.spectrumStmt, w.proteinStmt, w.peptideStmt, w.mappingStmt, w.boundStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}

// Save writes lib to a new archive at path
func Save(path string, lib *library.Library) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteLibrary(lib); err != nil {
		w.Close()
		return err
	}
	return w.Finalize()
}
