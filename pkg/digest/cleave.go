package digest

import "strings"

// Cleave cuts sequence after every protease site and returns all peptides with at most
// missedCleavages uncut sites whose length lies in [minLength, maxLength].
//
// Output order is all fully cleaved peptides in sequence order, then peptides with one
// missed cleavage, then two, and so on.
func (p *Protease) Cleave(sequence string, missedCleavages, minLength, maxLength int) []string {
	cuts := []int{0}
	for _, start := range p.sites(sequence) {
		// cuts at either end of the sequence are boundaries, not sites
		if c := start + 1; c > cuts[len(cuts)-1] && c < len(sequence) {
			cuts = append(cuts, c)
		}
	}
	cuts = append(cuts, len(sequence))

	base := make([]string, 0, len(cuts)-1)
	for i := 0; i < len(cuts)-1; i++ {
		base = append(base, sequence[cuts[i]:cuts[i+1]])
	}

	peptides := append([]string(nil), base...)
	for k := 1; k <= missedCleavages; k++ {
		for start := 0; start+k < len(base); start++ {
			peptides = append(peptides, strings.Join(base[start:start+k+1], ""))
		}
	}

	out := peptides[:0]
	for _, pep := range peptides {
		if len(pep) >= minLength && len(pep) <= maxLength {
			out = append(out, pep)
		}
	}
	return out
}

// CountMissedCleavages counts protease sites inside sequence.
func (p *Protease) CountMissedCleavages(sequence string) int {
	return len(p.sites(sequence))
}

// CountInternalCleavages returns 0 when the last residue of sequence looks like a cut site
// and 1 otherwise. Only the final residue is inspected.
func (p *Protease) CountInternalCleavages(sequence string) int {
	if sequence == "" {
		return 1
	}
	ok, err := p.re.MatchString(sequence[len(sequence)-1:] + "_")
	if err == nil && ok {
		return 0
	}
	return 1
}
