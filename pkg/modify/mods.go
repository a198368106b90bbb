// Package modify enumerates modified peptide isoforms and drives peptide generation
// for one protein: terminal mods, cleavage, fixed and variable mods, and decoys.
package modify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/core"
)

// ErrInvalidMod is returned for malformed modification strings.
var ErrInvalidMod = errors.New("invalid modification")

// Terminus locates a terminal modification.
type Terminus int

const (
	Internal Terminus = iota
	NTerm
	CTerm
)

// AnyResidue matches every terminal residue.
const AnyResidue = '^'

// Mod is a parsed modification string.
//
//	"oxM"  internal: tag "ox" on M
//	"a<^"  tag "a" on any N-terminus
//	"am>^" tag "am" on any C-terminus
//	"pg<Q" tag "pg" on an N-terminal Q
//	"x>K"  tag "x" on a C-terminal K
type Mod struct {
	Spec     string
	Tag      string
	Residue  byte
	Terminus Terminus
}

// ParseMod parses a modification string.
func ParseMod(spec string) (Mod, error) {
	s := strings.TrimSpace(spec)
	n := len(s)
	if n >= 3 && (s[n-2] == '<' || s[n-2] == '>') {
		m := Mod{Spec: s, Tag: s[:n-2], Residue: s[n-1], Terminus: NTerm}
		if s[n-2] == '>' {
			m.Terminus = CTerm
		}
		if m.Residue != AnyResidue && !core.IsAminoAcid(rune(m.Residue)) {
			return Mod{}, fmt.Errorf("%w '%s': unknown terminal residue %q", ErrInvalidMod, spec, m.Residue)
		}
		if !core.IsModTag(m.Tag) {
			return Mod{}, fmt.Errorf("%w '%s': tag must be lowercase letters", ErrInvalidMod, spec)
		}
		return m, nil
	}
	if n < 2 {
		return Mod{}, fmt.Errorf("%w '%s': expected tag followed by residue", ErrInvalidMod, spec)
	}
	m := Mod{Spec: s, Tag: s[:n-1], Residue: s[n-1], Terminus: Internal}
	if !core.IsAminoAcid(rune(m.Residue)) {
		return Mod{}, fmt.Errorf("%w '%s': unknown residue %q", ErrInvalidMod, spec, m.Residue)
	}
	if !core.IsModTag(m.Tag) {
		return Mod{}, fmt.Errorf("%w '%s': tag must be lowercase letters", ErrInvalidMod, spec)
	}
	return m, nil
}

// ParseMods parses a list of modification strings, requiring the given terminal kind.
func ParseMods(specs []string, terminal bool) ([]Mod, error) {
	mods := make([]Mod, 0, len(specs))
	for _, s := range specs {
		m, err := ParseMod(s)
		if err != nil {
			return nil, err
		}
		if terminal != (m.Terminus != Internal) {
			kind := "an internal"
			if terminal {
				kind = "a terminal"
			}
			return nil, fmt.Errorf("%w '%s': expected %s modification", ErrInvalidMod, s, kind)
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// Token returns the modified residue token, e.g. "oxM".
func (m Mod) Token() string {
	return m.Tag + string(m.Residue)
}

// AddFixed tags every occurrence of each fixed mod's residue.
func AddFixed(peptides []string, mods []Mod) []string {
	if len(mods) == 0 {
		return peptides
	}
	out := make([]string, len(peptides))
	for i, p := range peptides {
		for _, m := range mods {
			p = strings.ReplaceAll(p, string(m.Residue), m.Token())
		}
		out[i] = p
	}
	return out
}

// applyTerminal places a terminal mod on one peptide. Peptides whose terminal residue
// does not match are returned unchanged.
func applyTerminal(p string, m Mod) string {
	if p == "" {
		return p
	}
	switch m.Terminus {
	case NTerm:
		if m.Residue == AnyResidue || p[0] == m.Residue {
			return m.Tag + p
		}
	case CTerm:
		last := len(p) - 1
		if m.Residue == AnyResidue || p[last] == m.Residue {
			return p[:last] + m.Tag + p[last:]
		}
	}
	return p
}

// AddFixedTerminal applies each terminal mod to every peptide, in order.
func AddFixedTerminal(peptides []string, mods []Mod) []string {
	if len(mods) == 0 {
		return peptides
	}
	out := append([]string(nil), peptides...)
	for _, m := range mods {
		for i := range out {
			out[i] = applyTerminal(out[i], m)
		}
	}
	return out
}

// AddVariableTerminal returns the unmodified peptides plus one variant per applicable
// N-terminal mod, then adds one C-terminal variant per mod on top of that set.
// At most one variable mod is placed on each terminus. Duplicates are removed, keeping
// first-seen order.
func AddVariableTerminal(peptides []string, mods []Mod) []string {
	if len(mods) == 0 {
		return peptides
	}
	nStage := append([]string(nil), peptides...)
	for _, m := range mods {
		if m.Terminus != NTerm {
			continue
		}
		for _, p := range peptides {
			nStage = append(nStage, applyTerminal(p, m))
		}
	}
	nStage = unique(nStage)

	cStage := append([]string(nil), nStage...)
	for _, m := range mods {
		if m.Terminus != CTerm {
			continue
		}
		for _, p := range nStage {
			cStage = append(cStage, applyTerminal(p, m))
		}
	}
	return unique(cStage)
}

// AddVariable expands every peptide into its isoforms. A residue takes one variable
// mod: when several are given for the same residue, the last one wins.
func AddVariable(peptides []string, mods []Mod, maxIsoforms int) []string {
	if len(mods) == 0 {
		return peptides
	}
	byResidue := make(map[byte][]string)
	for _, m := range mods {
		byResidue[m.Residue] = []string{m.Token()}
	}
	out := make([]string, 0, len(peptides))
	for _, p := range peptides {
		out = append(out, Isoforms(p, byResidue, maxIsoforms)...)
	}
	return out
}

// Isoforms enumerates the placements of variable mods on peptide. Each residue with
// registered mods may appear unmodified or with any one of them. Enumeration follows
// Cartesian-product order (last position varies fastest, unmodified first) and stops
// after maxIsoforms results; maxIsoforms <= 0 means no limit.
func Isoforms(peptide string, byResidue map[byte][]string, maxIsoforms int) []string {
	options := make([][]string, len(peptide))
	for i := 0; i < len(peptide); i++ {
		c := peptide[i]
		options[i] = append([]string{string(c)}, byResidue[c]...)
	}

	idx := make([]int, len(options))
	var out []string
	var sb strings.Builder
	for {
		if maxIsoforms > 0 && len(out) >= maxIsoforms {
			return out
		}
		sb.Reset()
		for i, o := range options {
			sb.WriteString(o[idx[i]])
		}
		out = append(out, sb.String())

		// advance the odometer
		pos := len(idx) - 1
		for ; pos >= 0; pos-- {
			idx[pos]++
			if idx[pos] < len(options[pos]) {
				break
			}
			idx[pos] = 0
		}
		if pos < 0 {
			return out
		}
	}
}

func unique(peptides []string) []string {
	seen := make(map[string]struct{}, len(peptides))
	out := peptides[:0]
	for _, p := range peptides {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
