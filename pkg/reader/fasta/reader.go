// Package fasta provides streaming readers for protein FASTA databases
package fasta

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// ErrInvalidPath is returned when a FASTA path or pattern matches no files.
var ErrInvalidPath = errors.New("no FASTA files found")

// Reader provides streaming access to one FASTA file (plain or compressed)
type Reader struct {
	reader  *fastx.Reader
	path    string
	current *core.Protein
	err     error
}

// NewReader opens a FASTA file for reading
func NewReader(path string) (*Reader, error) {
	r, err := fastx.NewReader(seq.Unlimit, path, "")
	if err != nil {
		return nil, fmt.Errorf("failed to open FASTA file %s: %w", path, err)
	}
	return &Reader{reader: r, path: path}, nil
}

// Next advances to the next entry. Returns false when no more entries or error.
func (r *Reader) Next() bool {
	r.current = nil

	record, err := r.reader.Read()
	if err != nil {
		if err != io.EOF {
			r.err = fmt.Errorf("%s: %w", r.path, err)
		}
		return false
	}

	r.current = parseRecord(record)
	return true
}

// Entry returns the current protein entry
func (r *Reader) Entry() *core.Protein {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// Close releases the underlying file
func (r *Reader) Close() {
	r.reader.Close()
}

// parseRecord copies a record out of the reader's reused buffers.
// UniProt headers ("sp|P02769|ALBU_BOVIN ...") use the accession as the ID.
func parseRecord(record *fastx.Record) *core.Protein {
	name := string(record.ID)
	id := name
	if parts := strings.Split(name, "|"); len(parts) > 1 && parts[1] != "" {
		id = parts[1]
	}
	return &core.Protein{
		ID:          id,
		Name:        name,
		Description: string(record.Name),
		Sequence:    strings.ToUpper(strings.TrimRight(string(record.Seq.Seq), "*")),
	}
}

// ValidSequence reports whether every residue of s is in the permitted alphabet
func ValidSequence(s string) bool {
	for _, r := range s {
		if !core.IsAminoAcid(r) {
			return false
		}
	}
	return s != ""
}

// ReadPaths expands a list of files, directories and glob patterns into FASTA files.
// A directory contributes every *.fasta file inside it. Zero matches is an error.
func ReadPaths(paths ...string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil {
			if !info.IsDir() {
				add(p)
				continue
			}
			matches, err := filepath.Glob(filepath.Join(p, "*.fasta"))
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", p, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m)
			}
			continue
		}

		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid FASTA pattern '%s': %w", p, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, strings.Join(paths, ", "))
	}
	return files, nil
}

// CountEntries counts the entries of a FASTA file for progress reporting
func CountEntries(path string) (int, error) {
	r, err := NewReader(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for r.Next() {
		n++
	}
	return n, r.Err()
}
