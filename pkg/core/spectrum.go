// Package core provides the intermediate representation (IR) models and validation logic
// for peptide libraries built by pepkey.
package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DecoySuffix is appended to every decoy peptide sequence.
const DecoySuffix = "_decoy"

// Fragment ion types
const (
	IonB int8 = 0
	IonY int8 = 1
)

// ErrUnknownToken is returned when a residue token has no mass.
var ErrUnknownToken = errors.New("unknown residue token")

// Protein is a FASTA entry accepted into a library.
type Protein struct {
	ID          string
	Name        string
	Description string
	Sequence    string
}

// TheoreticalSpectrum is the in-silico fragmentation of one peptide.
type TheoreticalSpectrum struct {
	PrecursorMass float64 // Neutral monoisotopic mass
	Sequence      string  // Peptide sequence including tags and decoy suffix
	FragMasses    []float64
	FragTypes     []int8 // IonB or IonY, parallel to FragMasses
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum meets all requirements for storage.
func (s *TheoreticalSpectrum) Validate() error {
	var errs []string

	if s.Sequence == "" {
		errs = append(errs, "sequence is required")
	}
	if s.PrecursorMass <= 0 || math.IsNaN(s.PrecursorMass) || math.IsInf(s.PrecursorMass, 0) {
		errs = append(errs, "precursor mass must be positive")
	}
	if len(s.FragMasses) != len(s.FragTypes) {
		errs = append(errs, fmt.Sprintf("fragment arrays differ in length (%d masses, %d types)", len(s.FragMasses), len(s.FragTypes)))
	}
	for i, m := range s.FragMasses {
		if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			errs = append(errs, fmt.Sprintf("fragment %d has invalid mass", i))
		}
	}
	for i, t := range s.FragTypes {
		if t != IonB && t != IonY {
			errs = append(errs, fmt.Sprintf("fragment %d has invalid type %d", i, t))
		}
	}

	if !s.AreFragmentsSorted() {
		errs = append(errs, "fragments must be sorted by mass")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "TheoreticalSpectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// AreFragmentsSorted checks if fragments are sorted by mass in ascending order.
func (s *TheoreticalSpectrum) AreFragmentsSorted() bool {
	for i := 1; i < len(s.FragMasses); i++ {
		if s.FragMasses[i] < s.FragMasses[i-1] {
			return false
		}
	}
	return true
}

// SortFragments co-sorts fragment masses and types by ascending mass. Fragments of
// equal mass keep their relative order.
func (s *TheoreticalSpectrum) SortFragments() {
	sort.Stable(byFragMass{s})
}

type byFragMass struct{ s *TheoreticalSpectrum }

func (b byFragMass) Len() int           { return len(b.s.FragMasses) }
func (b byFragMass) Less(i, j int) bool { return b.s.FragMasses[i] < b.s.FragMasses[j] }
func (b byFragMass) Swap(i, j int) {
	b.s.FragMasses[i], b.s.FragMasses[j] = b.s.FragMasses[j], b.s.FragMasses[i]
	b.s.FragTypes[i], b.s.FragTypes[j] = b.s.FragTypes[j], b.s.FragTypes[i]
}

// IsDecoy reports whether the spectrum belongs to a decoy peptide
func (s *TheoreticalSpectrum) IsDecoy() bool {
	return strings.HasSuffix(s.Sequence, DecoySuffix)
}

// Name returns the spectrum name in format "Sequence/mass"
func (s *TheoreticalSpectrum) Name() string {
	return fmt.Sprintf("%s/%.4f", s.Sequence, s.PrecursorMass)
}

// ComputeSpectrum builds the b/y fragment ladder of a tokenised peptide.
// Fragments are singly charged: one proton is added to every fragment.
func (t *MassTable) ComputeSpectrum(sequence string, tokens []string) (*TheoreticalSpectrum, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("peptide %q has no residues", sequence)
	}
	masses := make([]float64, len(tokens))
	for i, tok := range tokens {
		m, err := t.TokenMass(tok)
		if err != nil {
			return nil, fmt.Errorf("peptide %q: %w", sequence, err)
		}
		masses[i] = m
	}

	n := len(tokens) - 1
	spec := &TheoreticalSpectrum{
		Sequence:   sequence,
		FragMasses: make([]float64, 0, 2*n),
		FragTypes:  make([]int8, 0, 2*n),
	}

	b := ProtonMass
	for _, m := range masses[:n] {
		b += m
		spec.FragMasses = append(spec.FragMasses, b)
		spec.FragTypes = append(spec.FragTypes, IonB)
	}
	y := ProtonMass + MassH2O
	for i := len(masses) - 1; i > 0; i-- {
		y += masses[i]
		spec.FragMasses = append(spec.FragMasses, y)
		spec.FragTypes = append(spec.FragTypes, IonY)
	}
	spec.SortFragments()

	spec.PrecursorMass = MassH2O
	for _, m := range masses {
		spec.PrecursorMass += m
	}
	return spec, nil
}
