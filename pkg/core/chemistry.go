// Package core provides chemistry calculations for peptide mass calculations
package core

import (
	"fmt"
	"math"
)

// Atomic masses (monoisotopic)
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900
	MassP = 30.9737615100

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
)

// MassH2O is the mass of water added to every peptide
var MassH2O = 2*MassH + MassO

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S int
}

// Mass returns the monoisotopic mass of the composition
func (c AminoAcidComposition) Mass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS
}

// AminoAcidMasses maps amino acid one-letter codes to elemental composition
var AminoAcidMasses = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1, S: 0},
	'R': {C: 6, H: 12, N: 4, O: 1, S: 0},
	'N': {C: 4, H: 6, N: 2, O: 2, S: 0},
	'D': {C: 4, H: 5, N: 1, O: 3, S: 0},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3, S: 0},
	'Q': {C: 5, H: 8, N: 2, O: 2, S: 0},
	'G': {C: 2, H: 3, N: 1, O: 1, S: 0},
	'H': {C: 6, H: 7, N: 3, O: 1, S: 0},
	'I': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'L': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'K': {C: 6, H: 12, N: 2, O: 1, S: 0},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1, S: 0},
	'P': {C: 5, H: 7, N: 1, O: 1, S: 0},
	'S': {C: 3, H: 5, N: 1, O: 2, S: 0},
	'T': {C: 4, H: 7, N: 1, O: 2, S: 0},
	'W': {C: 11, H: 10, N: 2, O: 1, S: 0},
	'Y': {C: 9, H: 9, N: 1, O: 2, S: 0},
	'V': {C: 5, H: 9, N: 1, O: 1, S: 0},
}

// AminoAcids is the permitted residue alphabet for protein sequences
const AminoAcids = "ACDEFGHIKLMNPQRSTVWY"

// IsAminoAcid reports whether r is a permitted residue
func IsAminoAcid(r rune) bool {
	_, ok := AminoAcidMasses[r]
	return ok
}

// MassTable resolves residue tokens ("M", "oxM", "aoxM") to masses.
// A token is an optional run of lowercase modification tags followed by one residue.
type MassTable struct {
	mods     *ModDatabase
	residues map[rune]float64
	cache    map[string]float64
}

// NewMassTable builds a table over the standard residues and the given modifications
func NewMassTable(mods *ModDatabase) *MassTable {
	if mods == nil {
		mods = DefaultModDatabase()
	}
	t := &MassTable{
		mods:     mods,
		residues: make(map[rune]float64, len(AminoAcidMasses)),
		cache:    make(map[string]float64),
	}
	for aa, comp := range AminoAcidMasses {
		t.residues[aa] = comp.Mass()
	}
	return t
}

// TokenMass returns the mass of a single residue token.
// MassTable is not safe for concurrent use because of its cache; use Clone per goroutine.
func (t *MassTable) TokenMass(token string) (float64, error) {
	if m, ok := t.cache[token]; ok {
		return m, nil
	}
	if token == "" {
		return 0, fmt.Errorf("%w: empty token", ErrUnknownToken)
	}
	residue := rune(token[len(token)-1])
	mass, ok := t.residues[residue]
	if !ok {
		return 0, fmt.Errorf("%w: residue %q in %q", ErrUnknownToken, residue, token)
	}
	prefix := token[:len(token)-1]
	for prefix != "" {
		tag, shift, ok := t.mods.longestTag(prefix)
		if !ok {
			return 0, fmt.Errorf("%w: modification %q in %q", ErrUnknownToken, prefix, token)
		}
		mass += shift
		prefix = prefix[len(tag):]
	}
	t.cache[token] = mass
	return mass, nil
}

// Clone returns a table sharing the modification registry with a private cache
func (t *MassTable) Clone() *MassTable {
	return &MassTable{mods: t.mods, residues: t.residues, cache: make(map[string]float64)}
}

// MZ converts a neutral mass to m/z at the given charge
func MZ(neutral float64, charge int) float64 {
	return (neutral + float64(charge)*ProtonMass) / float64(charge)
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
