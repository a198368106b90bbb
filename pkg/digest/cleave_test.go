package digest

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustLookup(t *testing.T, name string) *Protease {
	t.Helper()
	p, err := Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", name, err)
	}
	return p
}

func TestCleave(t *testing.T) {
	tests := []struct {
		name     string
		protease string
		sequence string
		missed   int
		minLen   int
		maxLen   int
		want     []string
	}{
		{
			name:     "terminal K is not a cut",
			protease: "trypsin",
			sequence: "ABCDEFK",
			minLen:   1,
			maxLen:   100,
			want:     []string{"ABCDEFK"},
		},
		{
			name:     "no sites keeps whole sequence",
			protease: "trypsin",
			sequence: "ACDEFGH",
			minLen:   1,
			maxLen:   100,
			want:     []string{"ACDEFGH"},
		},
		{
			name:     "KP is protected",
			protease: "trypsin",
			sequence: "AAKPAARGGK",
			minLen:   1,
			maxLen:   100,
			want:     []string{"AAKPAAR", "GGK"},
		},
		{
			name:     "one missed cleavage",
			protease: "trypsin",
			sequence: "AAKCCRDDK",
			missed:   1,
			minLen:   1,
			maxLen:   100,
			want:     []string{"AAK", "CCR", "DDK", "AAKCCR", "CCRDDK"},
		},
		{
			name:     "two missed cleavages",
			protease: "trypsin",
			sequence: "AAKCCRDDK",
			missed:   2,
			minLen:   1,
			maxLen:   100,
			want:     []string{"AAK", "CCR", "DDK", "AAKCCR", "CCRDDK", "AAKCCRDDK"},
		},
		{
			name:     "length filter",
			protease: "trypsin",
			sequence: "AAKCCCCRDDK",
			missed:   1,
			minLen:   4,
			maxLen:   6,
			want:     []string{"CCCCR"},
		},
		{
			name:     "cut before residue",
			protease: "asp-n",
			sequence: "AAADCCDE",
			minLen:   1,
			maxLen:   100,
			want:     []string{"AAA", "DCC", "DE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustLookup(t, tt.protease).Cleave(tt.sequence, tt.missed, tt.minLen, tt.maxLen)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Cleave() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCleaveReassembles(t *testing.T) {
	p := mustLookup(t, "trypsin")
	sequences := []string{
		"MKWVTFISLLLLFSSAYSRGVFRRDTHKSEIAHRFKDLGEEHFKGLVLIAFSQYLQQCPFDEHVKLVNELTEFAKTCVADESHAGCEKSLHTLFGDELCKVASLRETYGDMADCCEKQEPERNECFLSHKDDSPDLPKLKPDPNTLCDEFKADEKKFWGKYLYEIARRHPYFYAPELLYYANKYNGVFQECCQAEDKGACLLPKIETMREKVLASSARQRLRCASIQKFGERALKAWSVARLSQKFPKAEFVEVTKLVTDLTKVHKECCHGDLLECADDRADLAKYICDNQDTISSKLKECCDKPLLEKSHCIAEVEKDAIPENLPPLTADFAEDKDVCKNYQEAKDAFLGSFLYEYSRRHPEYAVSVLLRLAKEYEATLEECCAKDDPHACYSTVFDKLKHLVDEPQNLIKQNCDQFEKLGEYGFQNALIVRYTRKVPQVSTPTLVEVSRSLGKVGTRCCTKPESERMPCTEDYLSLILNRLCVLHEKTPVSEKVTKCCTESLVNRRPCFSALTPDETYVPKAFDEKLFTFHADICTLPDTEKQIKKQTALVELLKHKPKATEEQLKTVMENFVAFVDKCCAADDKEACFAVEGPKLVVSTQTALA",
		"PEPTIDEKRPEPTIDERP",
		"KKKK",
		"",
	}
	for _, seq := range sequences {
		got := strings.Join(p.Cleave(seq, 0, 0, len(seq)), "")
		if got != seq {
			t.Errorf("joined fully cleaved peptides of %q = %q", seq, got)
		}
	}
}

func TestCountCleavages(t *testing.T) {
	p := mustLookup(t, "trypsin")

	tests := []struct {
		sequence     string
		wantMissed   int
		wantInternal int
	}{
		{"PEPTIDEK", 0, 0},
		{"PEPKTIDEK", 1, 0},
		{"PEPKTIDRE", 2, 1},
		{"PEPKPTIDE", 0, 1},
		{"R", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.sequence, func(t *testing.T) {
			if got := p.CountMissedCleavages(tt.sequence); got != tt.wantMissed {
				t.Errorf("CountMissedCleavages() = %d, want %d", got, tt.wantMissed)
			}
			if got := p.CountInternalCleavages(tt.sequence); got != tt.wantInternal {
				t.Errorf("CountInternalCleavages() = %d, want %d", got, tt.wantInternal)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("Trypsin"); err != nil {
		t.Errorf("Lookup is case-insensitive, got %v", err)
	}
	if _, err := Lookup("pepsinogen"); !errors.Is(err, ErrUnknownProtease) {
		t.Errorf("expected ErrUnknownProtease, got %v", err)
	}
	for _, name := range Names() {
		if _, err := Lookup(name); err != nil {
			t.Errorf("pattern for %s does not compile: %v", name, err)
		}
	}
}
