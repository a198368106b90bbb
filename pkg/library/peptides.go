// Package library builds theoretical spectral libraries from protein databases.
package library

// PeptideMap maps every generated peptide to the proteins it occurs in. Peptides keep
// the order in which they were first added; entries are never removed.
type PeptideMap struct {
	index    map[string]int
	order    []string
	proteins [][]int
}

// NewPeptideMap returns an empty map
func NewPeptideMap() *PeptideMap {
	return &PeptideMap{index: make(map[string]int)}
}

// Add records that peptide occurs in protein and reports whether the peptide is new.
// A protein is recorded once per peptide.
func (m *PeptideMap) Add(peptide string, protein int) bool {
	i, ok := m.index[peptide]
	if !ok {
		m.index[peptide] = len(m.order)
		m.order = append(m.order, peptide)
		m.proteins = append(m.proteins, []int{protein})
		return true
	}
	for _, p := range m.proteins[i] {
		if p == protein {
			return false
		}
	}
	m.proteins[i] = append(m.proteins[i], protein)
	return false
}

// Proteins returns the protein indices of peptide, or nil
func (m *PeptideMap) Proteins(peptide string) []int {
	if i, ok := m.index[peptide]; ok {
		return m.proteins[i]
	}
	return nil
}

// Len returns the number of distinct peptides
func (m *PeptideMap) Len() int {
	return len(m.order)
}

// Sequences returns the peptides in insertion order
func (m *PeptideMap) Sequences() []string {
	return m.order
}

// Map returns a plain map view sharing the protein slices
func (m *PeptideMap) Map() map[string][]int {
	out := make(map[string][]int, len(m.order))
	for i, p := range m.order {
		out[p] = m.proteins[i]
	}
	return out
}

// PeptideMapFrom rebuilds a PeptideMap from a plain map. Insertion order follows order.
func PeptideMapFrom(order []string, peptides map[string][]int) *PeptideMap {
	m := NewPeptideMap()
	for _, seq := range order {
		for _, p := range peptides[seq] {
			m.Add(seq, p)
		}
	}
	return m
}
