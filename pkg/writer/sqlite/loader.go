package sqlite

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/library"
)

// ErrNotLibrary is returned when a file is not a library archive
var ErrNotLibrary = errors.New("not a library archive")

// Header is the metadata row of an archive
type Header struct {
	Version      int
	CreationDate string
	Width        int
	Spectra      int
	Description  string
}

// ReadHeader returns the header of the archive at path
func ReadHeader(path string) (Header, error) {
	db, err := open(path)
	if err != nil {
		return Header{}, err
	}
	defer db.Close()
	return readHeader(db)
}

func open(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func readHeader(db *sql.DB) (Header, error) {
	var h Header
	err := db.QueryRow(`SELECT version, CreationDate, Width, Spectra, Description FROM HeaderTable LIMIT 1`).
		Scan(&h.Version, &h.CreationDate, &h.Width, &h.Spectra, &h.Description)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrNotLibrary, err)
	}
	return h, nil
}

// Load reads a library archive written by Writer
func Load(path string) (*library.Library, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	h, err := readHeader(db)
	if err != nil {
		return nil, err
	}

	lib := &library.Library{
		Precursors: make([]float64, 0, h.Spectra),
		Sequences:  make([]string, 0, h.Spectra),
		FragMasses: make([][]float64, 0, h.Spectra),
		FragTypes:  make([][]int8, 0, h.Spectra),
		Bounds:     make([]int64, h.Width),
	}

	if err := loadSpectra(db, lib, h.Width); err != nil {
		return nil, err
	}
	if err := loadBounds(db, lib); err != nil {
		return nil, err
	}
	if lib.Proteins, err = loadProteins(db); err != nil {
		return nil, err
	}
	if lib.Peptides, err = loadPeptides(db); err != nil {
		return nil, err
	}
	return lib, nil
}

func loadSpectra(db *sql.DB, lib *library.Library, width int) error {
	rows, err := db.Query(`SELECT Sequence, PrecursorMass, blobMass, blobType FROM SpectrumTable ORDER BY SpectrumId`)
	if err != nil {
		return fmt.Errorf("failed to query spectra: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq       string
			precursor float64
			massBlob  []byte
			typeBlob  []byte
		)
		if err := rows.Scan(&seq, &precursor, &massBlob, &typeBlob); err != nil {
			return fmt.Errorf("failed to scan spectrum: %w", err)
		}
		masses, err := decodeFloat64(massBlob)
		if err != nil {
			return fmt.Errorf("spectrum %s: %w", seq, err)
		}
		if len(masses) != width || len(typeBlob) != width {
			return fmt.Errorf("spectrum %s: width %d/%d, want %d", seq, len(masses), len(typeBlob), width)
		}
		lib.Sequences = append(lib.Sequences, seq)
		lib.Precursors = append(lib.Precursors, precursor)
		lib.FragMasses = append(lib.FragMasses, masses)
		lib.FragTypes = append(lib.FragTypes, decodeInt8(typeBlob))
	}
	return rows.Err()
}

func loadBounds(db *sql.DB, lib *library.Library) error {
	rows, err := db.Query(`SELECT ColumnIndex, Count FROM BoundsTable ORDER BY ColumnIndex`)
	if err != nil {
		return fmt.Errorf("failed to query bounds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var j int
		var n int64
		if err := rows.Scan(&j, &n); err != nil {
			return fmt.Errorf("failed to scan bounds: %w", err)
		}
		if j < 0 || j >= len(lib.Bounds) {
			return fmt.Errorf("bounds column %d outside width %d", j, len(lib.Bounds))
		}
		lib.Bounds[j] = n
	}
	return rows.Err()
}

func loadProteins(db *sql.DB) ([]core.Protein, error) {
	rows, err := db.Query(`SELECT Accession, Name, Description, Sequence FROM ProteinTable ORDER BY ProteinId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query proteins: %w", err)
	}
	defer rows.Close()

	var proteins []core.Protein
	for rows.Next() {
		var p core.Protein
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Sequence); err != nil {
			return nil, fmt.Errorf("failed to scan protein: %w", err)
		}
		proteins = append(proteins, p)
	}
	return proteins, rows.Err()
}

func loadPeptides(db *sql.DB) (*library.PeptideMap, error) {
	rows, err := db.Query(`
		SELECT p.Sequence, m.ProteinId
		FROM PeptideTable p
		JOIN PeptideProteinTable m ON m.PeptideId = p.PeptideId
		ORDER BY p.PeptideId, m.Position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query peptides: %w", err)
	}
	defer rows.Close()

	peptides := library.NewPeptideMap()
	for rows.Next() {
		var seq string
		var protein int
		if err := rows.Scan(&seq, &protein); err != nil {
			return nil, fmt.Errorf("failed to scan peptide: %w", err)
		}
		peptides.Add(seq, protein)
	}
	return peptides, rows.Err()
}

// decodeFloat64 decodes a little-endian float64 blob
func decodeFloat64(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return values, nil
}

func decodeInt8(blob []byte) []int8 {
	values := make([]int8, len(blob))
	for i, b := range blob {
		values[i] = int8(b)
	}
	return values
}
