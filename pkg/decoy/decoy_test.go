package decoy

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		peptide string
		want    []string
	}{
		{"PEPTIDE", []string{"P", "E", "P", "T", "I", "D", "E"}},
		{"AcCoxMK", []string{"A", "cC", "oxM", "K"}},
		{"aoxMK_decoy", []string{"aoxM", "K"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.peptide, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Parse(tt.peptide)); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSequence(t *testing.T) {
	tests := []struct {
		name    string
		peptide string
		opts    Options
		want    string
	}{
		{"plain reverse", "PEPTIDEK", Options{}, "KEDITPEP"},
		{"modified residues move as a unit", "AcCoxMK", Options{}, "KoxMcCA"},
		{"KR swap on terminal", "KPEPTIDER", Options{SwapKR: true}, "REDITPEPR"},
		{"KR swap skips modified terminal", "meKPEPTIDE", Options{SwapKR: true}, "EDITPEPmeK"},
		{"AL swap", "GALK", Options{SwapAL: true}, "KALG"},
		{"AL swap advances two", "KAAG", Options{SwapAL: true}, "GAAK"},
		{"AL swap ignores modified", "KaAG", Options{SwapAL: true}, "GaAK"},
		{"both swaps", "PEPTIDEKLAK", DefaultOptions, "KLAKEDITPEP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sequence(tt.peptide, tt.opts); got != tt.want {
				t.Errorf("Sequence(%q) = %q, want %q", tt.peptide, got, tt.want)
			}
		})
	}
}

func TestSequenceInvolution(t *testing.T) {
	peptides := []string{"PEPTIDEK", "AcCoxMKLR", "LALALAK", "aMEEKR"}
	for _, p := range peptides {
		if got := Sequence(Sequence(p, Options{}), Options{}); got != p {
			t.Errorf("double reversal of %q = %q", p, got)
		}
	}
}

func TestSequencePreservesComposition(t *testing.T) {
	peptides := []string{"PEPTIDEK", "AcCoxMKLR", "LALALAK", "ALLAKR"}
	for _, p := range peptides {
		d := Sequence(p, DefaultOptions)
		if len(d) != len(p) {
			t.Errorf("decoy of %q changed length: %q", p, d)
		}
		if countResidues(p, "KR") != countResidues(d, "KR") {
			t.Errorf("decoy of %q changed K+R count: %q", p, d)
		}
		if sortedTokens(strings.NewReplacer("K", "", "R", "").Replace(p)) != sortedTokens(strings.NewReplacer("K", "", "R", "").Replace(d)) {
			t.Errorf("decoy of %q changed residue multiset: %q", p, d)
		}
	}
}

func countResidues(s, set string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(set, r) {
			n++
		}
	}
	return n
}

func sortedTokens(s string) string {
	tokens := Parse(s)
	sort.Strings(tokens)
	return strings.Join(tokens, ",")
}

func TestTagAndIsDecoy(t *testing.T) {
	got := Tag(Sequences([]string{"PEPTIDEK"}, Options{}))
	if diff := cmp.Diff([]string{"KEDITPEP_decoy"}, got); diff != "" {
		t.Errorf("Tag() mismatch (-want +got):\n%s", diff)
	}
	if !IsDecoy(got[0]) {
		t.Errorf("IsDecoy(%q) = false", got[0])
	}
	if IsDecoy("PEPTIDEK") || IsDecoy("") {
		t.Error("IsDecoy reported a target as decoy")
	}
}
