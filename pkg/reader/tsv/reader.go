// Package tsv provides streaming readers for tab-separated PSM tables
package tsv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/psm"
	"github.com/shenwei356/xopen"
)

// ErrMissingColumn is returned when a required column is absent from the header
var ErrMissingColumn = errors.New("missing required column")

// Required lists the columns every PSM table must carry
var Required = []string{"query_idx", "sequence", "charge"}

// Reader provides streaming access to tab-separated PSM tables.
// Columns are matched by header name; numeric columns the reader does not know
// are kept as features.
type Reader struct {
	scanner *bufio.Scanner
	header  []string
	lineNum int
	current psm.PSM
	err     error
}

// NewReader creates a reader and consumes the header line
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	header := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for _, col := range Required {
		if !contains(header, col) {
			return nil, fmt.Errorf("%w '%s'", ErrMissingColumn, col)
		}
	}

	return &Reader{scanner: scanner, header: header, lineNum: 1}, nil
}

// Header returns the column names
func (r *Reader) Header() []string {
	return r.header
}

// Next advances to the next row. Returns false when no more rows or error.
func (r *Reader) Next() bool {
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := r.parseRow(strings.Split(line, "\t"))
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.lineNum, err)
			return false
		}
		r.current = row
		return true
	}
	r.err = r.scanner.Err()
	return false
}

// PSM returns the current row
func (r *Reader) PSM() psm.PSM {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// parseRow maps fields onto a PSM by column name
func (r *Reader) parseRow(fields []string) (psm.PSM, error) {
	if len(fields) != len(r.header) {
		return psm.PSM{}, fmt.Errorf("expected %d fields, got %d", len(r.header), len(fields))
	}

	p := psm.PSM{FeatureIdx: psm.NoFeature}
	for i, col := range r.header {
		v := strings.TrimSpace(fields[i])
		var err error
		switch col {
		case "query_idx":
			p.QueryIdx, err = parseInt(v, 0)
		case "feature_idx":
			p.FeatureIdx, err = parseInt(v, psm.NoFeature)
		case "raw_idx":
			p.RawIdx, err = parseInt(v, 0)
		case "db_idx":
			p.DBIdx, err = parseInt(v, 0)
		case "sequence":
			p.Sequence = v
		case "precursor":
			p.Precursor = v
		case "charge":
			p.Charge, err = parseInt(v, 0)
		case "mz":
			p.MZ, err = parseFloat(v)
		case "delta_m_ppm":
			p.DeltaMPPM, err = parseFloat(v)
		case "b_hits":
			p.BHits, err = parseInt(v, 0)
		case "y_hits":
			p.YHits, err = parseInt(v, 0)
		case "hits":
			p.Hits, err = parseInt(v, 0)
		case "matched_int":
			p.MatchedInt, err = parseFloat(v)
		case "dist":
			p.Dist, err = parseFloat(v)
		case "score":
			p.Score, err = parseFloat(v)
		case "decoy":
			p.Decoy, err = parseBool(v)
		case "target":
			p.Target, err = parseBool(v)
		case "target_cum":
			p.TargetCum, err = parseInt(v, 0)
		case "decoys_cum":
			p.DecoysCum, err = parseInt(v, 0)
		case "fdr":
			p.FDR, err = parseFloat(v)
		case "q_value":
			p.QValue, err = parseFloat(v)
		case "protein":
			p.Protein = v
		case "protein_group":
			p.ProteinGroup = v
		case "razor":
			p.Razor, err = parseBool(v)
		default:
			// Non-numeric extra columns are dropped
			if v == "" || col == "" {
				continue
			}
			if f, ferr := strconv.ParseFloat(v, 64); ferr == nil {
				p.SetFeature(col, f)
			}
		}
		if err != nil {
			return psm.PSM{}, fmt.Errorf("column %s: %w", col, err)
		}
	}
	if p.Sequence == "" {
		return psm.PSM{}, fmt.Errorf("empty sequence")
	}
	return p, nil
}

// parseInt accepts integers written as floats ("2.0"). Empty and NaN fields give def.
func parseInt(s string, def int) (int, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return def, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer '%s'", s)
	}
	if math.IsNaN(f) {
		return def, nil
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid integer '%s'", s)
	}
	return int(f), nil
}

// parseFloat treats an empty field as zero
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number '%s'", s)
	}
	return f, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "0.0":
		return false, nil
	case "1", "true", "1.0":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean '%s'", s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ReadAll reads every row into a table and prepares it
func ReadAll(r io.Reader) (psm.Table, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	var t psm.Table
	for reader.Next() {
		t = append(t, reader.PSM())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	t.Prepare()
	return t, nil
}

// ReadFile reads a plain or compressed PSM table from path
func ReadFile(path string) (psm.Table, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer fh.Close()

	t, err := ReadAll(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
