// Package decoy builds reversed decoy peptides for target-decoy FDR estimation.
package decoy

import (
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/core"
)

// Options controls the swaps applied after reversal.
type Options struct {
	SwapAL bool // Move unmodified A and L one position to the right
	SwapKR bool // Exchange an unmodified C-terminal K and R
}

// DefaultOptions enables both swaps.
var DefaultOptions = Options{SwapAL: true, SwapKR: true}

// Parse splits a peptide into residue tokens. A token is any run of lowercase
// modification tags followed by the uppercase residue they modify. A decoy suffix is dropped.
func Parse(peptide string) []string {
	if i := strings.IndexByte(peptide, '_'); i >= 0 {
		peptide = peptide[:i]
	}
	tokens := make([]string, 0, len(peptide))
	start := 0
	for i := 0; i < len(peptide); i++ {
		if c := peptide[i]; c >= 'A' && c <= 'Z' {
			tokens = append(tokens, peptide[start:i+1])
			start = i + 1
		}
	}
	return tokens
}

// Sequence reverses the residue tokens of peptide and applies the configured swaps.
// The result carries no decoy suffix; see Tag.
func Sequence(peptide string, opts Options) string {
	tokens := Parse(peptide)
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	if opts.SwapAL {
		swapAL(tokens)
	}
	if opts.SwapKR {
		swapKR(tokens)
	}
	return strings.Join(tokens, "")
}

// swapKR exchanges a C-terminal K or R. Modified residues are left in place.
func swapKR(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	switch tokens[len(tokens)-1] {
	case "K":
		tokens[len(tokens)-1] = "R"
	case "R":
		tokens[len(tokens)-1] = "K"
	}
}

// swapAL moves each unmodified A or L one position right, then skips past it.
func swapAL(tokens []string) {
	for i := 0; i < len(tokens)-1; i++ {
		if tokens[i] == "A" || tokens[i] == "L" {
			tokens[i], tokens[i+1] = tokens[i+1], tokens[i]
			i++
		}
	}
}

// Sequences returns the decoy of every peptide, in order.
func Sequences(peptides []string, opts Options) []string {
	out := make([]string, len(peptides))
	for i, p := range peptides {
		out[i] = Sequence(p, opts)
	}
	return out
}

// Tag appends the decoy suffix to every peptide in place and returns the slice.
func Tag(peptides []string) []string {
	for i := range peptides {
		peptides[i] += core.DecoySuffix
	}
	return peptides
}

// IsDecoy reports whether a peptide sequence ends in a lowercase character, which is how
// decoy-tagged sequences are recognised in PSM tables.
func IsDecoy(sequence string) bool {
	if sequence == "" {
		return false
	}
	c := sequence[len(sequence)-1]
	return c >= 'a' && c <= 'z'
}
