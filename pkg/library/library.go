package library

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/decoy"
	"gonum.org/v1/gonum/stat"
)

// Pad fills unused fragment slots in the fixed-width arrays
const Pad = -1

// Library is a theoretical spectral library sorted by ascending precursor mass.
// Fragment arrays are fixed width: each row is padded with Pad to the longest spectrum.
type Library struct {
	Precursors []float64
	Sequences  []string
	FragMasses [][]float64
	FragTypes  [][]int8
	// Bounds[j] counts the spectra with a real fragment in column j
	Bounds   []int64
	Peptides *PeptideMap
	Proteins []core.Protein
}

// New sorts spectra by precursor mass and lays them out in fixed-width arrays.
func New(spectra []*core.TheoreticalSpectrum, peptides *PeptideMap, proteins []core.Protein) *Library {
	sorted := append([]*core.TheoreticalSpectrum(nil), spectra...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PrecursorMass < sorted[j].PrecursorMass
	})

	width := 0
	for _, s := range sorted {
		if len(s.FragMasses) > width {
			width = len(s.FragMasses)
		}
	}

	lib := &Library{
		Precursors: make([]float64, len(sorted)),
		Sequences:  make([]string, len(sorted)),
		FragMasses: make([][]float64, len(sorted)),
		FragTypes:  make([][]int8, len(sorted)),
		Bounds:     make([]int64, width),
		Peptides:   peptides,
		Proteins:   proteins,
	}
	for i, s := range sorted {
		lib.Precursors[i] = s.PrecursorMass
		lib.Sequences[i] = s.Sequence

		masses := make([]float64, width)
		types := make([]int8, width)
		for j := range masses {
			if j < len(s.FragMasses) {
				masses[j] = s.FragMasses[j]
				types[j] = s.FragTypes[j]
				lib.Bounds[j]++
			} else {
				masses[j] = Pad
				types[j] = Pad
			}
		}
		lib.FragMasses[i] = masses
		lib.FragTypes[i] = types
	}
	return lib
}

// Build generates peptides for the given databases, computes their spectra and
// returns the library.
func (b *Builder) Build(paths []string, contaminants string, masses *core.MassTable) (*Library, error) {
	res, err := b.Generate(paths, contaminants)
	if err != nil {
		return nil, err
	}
	spectra, err := GenerateSpectra(res.Peptides.Sequences(), masses, b.Strategy, b.Progress)
	if err != nil {
		return nil, err
	}
	return New(spectra, res.Peptides, res.Proteins), nil
}

// Len returns the number of spectra
func (l *Library) Len() int {
	return len(l.Precursors)
}

// Width returns the fixed fragment array width
func (l *Library) Width() int {
	return len(l.Bounds)
}

// Spectrum returns spectrum i without padding
func (l *Library) Spectrum(i int) *core.TheoreticalSpectrum {
	s := &core.TheoreticalSpectrum{
		PrecursorMass: l.Precursors[i],
		Sequence:      l.Sequences[i],
	}
	for j, m := range l.FragMasses[i] {
		if m < 0 {
			break
		}
		s.FragMasses = append(s.FragMasses, m)
		s.FragTypes = append(s.FragTypes, l.FragTypes[i][j])
	}
	return s
}

// Validate checks every spectrum and the bounds vector
func (l *Library) Validate() error {
	n := len(l.Precursors)
	if len(l.Sequences) != n || len(l.FragMasses) != n || len(l.FragTypes) != n {
		return fmt.Errorf("library arrays differ in length")
	}
	for i := 1; i < n; i++ {
		if l.Precursors[i] < l.Precursors[i-1] {
			return fmt.Errorf("precursors not sorted at %d", i)
		}
	}
	bounds := make([]int64, l.Width())
	for i := 0; i < n; i++ {
		if err := l.Spectrum(i).Validate(); err != nil {
			return fmt.Errorf("spectrum %s: %w", l.Sequences[i], err)
		}
		for j, m := range l.FragMasses[i] {
			if m >= 0 {
				bounds[j]++
			}
		}
	}
	for j := range bounds {
		if bounds[j] != l.Bounds[j] {
			return fmt.Errorf("bounds[%d] = %d, want %d", j, l.Bounds[j], bounds[j])
		}
	}
	return nil
}

// Summary describes a library
type Summary struct {
	Spectra         int
	Targets         int
	Decoys          int
	Proteins        int
	Peptides        int
	MinPrecursor    float64
	MaxPrecursor    float64
	MedianPrecursor float64
	MeanFragments   float64
}

// Summarize computes library statistics
func (l *Library) Summarize() Summary {
	s := Summary{Spectra: l.Len(), Proteins: len(l.Proteins)}
	if l.Peptides != nil {
		s.Peptides = l.Peptides.Len()
	}
	if s.Spectra == 0 {
		return s
	}
	frags := make([]float64, s.Spectra)
	for i, seq := range l.Sequences {
		if decoy.IsDecoy(seq) {
			s.Decoys++
		} else {
			s.Targets++
		}
		for _, m := range l.FragMasses[i] {
			if m >= 0 {
				frags[i]++
			}
		}
	}
	s.MinPrecursor = l.Precursors[0]
	s.MaxPrecursor = l.Precursors[s.Spectra-1]
	s.MedianPrecursor = stat.Quantile(0.5, stat.Empirical, l.Precursors, nil)
	s.MeanFragments = stat.Mean(frags, nil)
	return s
}
