package library

import (
	"bytes"
	"errors"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/modify"
	"github.com/google/go-cmp/cmp"
)

func TestPeptideMap(t *testing.T) {
	m := NewPeptideMap()
	if !m.Add("AAK", 0) {
		t.Error("first Add not reported as new")
	}
	if m.Add("AAK", 0) {
		t.Error("repeated Add reported as new")
	}
	m.Add("CCR", 1)
	m.Add("AAK", 2)

	if diff := cmp.Diff([]int{0, 2}, m.Proteins("AAK")); diff != "" {
		t.Errorf("Proteins(AAK) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"AAK", "CCR"}, m.Sequences()); diff != "" {
		t.Errorf("Sequences mismatch (-want +got):\n%s", diff)
	}
	if m.Proteins("DDK") != nil {
		t.Error("Proteins of unknown peptide not nil")
	}

	rebuilt := PeptideMapFrom(m.Sequences(), m.Map())
	if diff := cmp.Diff(m.Map(), rebuilt.Map()); diff != "" {
		t.Errorf("PeptideMapFrom mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSpectra(t *testing.T) {
	peptides := []string{"PEPTIDE", "AAK", "KAA_decoy", "oxMK"}

	var fractions []float64
	spectra, err := GenerateSpectra(peptides, nil, core.Parallel(3), func(f float64) { fractions = append(fractions, f) })
	if err != nil {
		t.Fatalf("GenerateSpectra() error = %v", err)
	}
	if len(spectra) != len(peptides) {
		t.Fatalf("got %d spectra, want %d", len(spectra), len(peptides))
	}
	for i, s := range spectra {
		if s.Sequence != peptides[i] {
			t.Errorf("spectrum %d sequence = %q, want %q", i, s.Sequence, peptides[i])
		}
		if err := s.Validate(); err != nil {
			t.Errorf("spectrum %d invalid: %v", i, err)
		}
	}
	if math.Abs(spectra[0].PrecursorMass-799.35997) > 1e-4 {
		t.Errorf("PEPTIDE precursor = %v, want 799.35997", spectra[0].PrecursorMass)
	}
	if math.Abs(spectra[1].PrecursorMass-spectra[2].PrecursorMass) > 1e-9 {
		t.Error("target and decoy of the same composition differ in precursor mass")
	}
	if len(fractions) == 0 || fractions[len(fractions)-1] != 1 {
		t.Errorf("progress = %v, want to end at 1", fractions)
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Errorf("progress decreased: %v", fractions)
		}
	}
}

func TestGenerateSpectraErrors(t *testing.T) {
	if _, err := GenerateSpectra(nil, nil, core.Sequential(), nil); !errors.Is(err, ErrNoSpectra) {
		t.Errorf("empty input: error = %v, want ErrNoSpectra", err)
	}
	if _, err := GenerateSpectra([]string{"zzK"}, nil, core.Sequential(), nil); !errors.Is(err, core.ErrUnknownToken) {
		t.Errorf("unknown tag: error = %v, want ErrUnknownToken", err)
	}
}

func TestNew(t *testing.T) {
	spectra, err := GenerateSpectra([]string{"PEPTIDEK", "AK", "GGGK"}, nil, core.Sequential(), nil)
	if err != nil {
		t.Fatalf("GenerateSpectra() error = %v", err)
	}
	lib := New(spectra, NewPeptideMap(), nil)

	if diff := cmp.Diff([]string{"AK", "GGGK", "PEPTIDEK"}, lib.Sequences); diff != "" {
		t.Errorf("sort order mismatch (-want +got):\n%s", diff)
	}
	if lib.Width() != 14 {
		t.Errorf("Width() = %d, want 14", lib.Width())
	}
	if lib.FragMasses[0][2] != Pad || lib.FragTypes[0][2] != Pad {
		t.Error("short spectrum not padded")
	}
	if lib.Bounds[0] != 3 || lib.Bounds[2] != 2 || lib.Bounds[13] != 1 {
		t.Errorf("Bounds = %v", lib.Bounds)
	}
	if err := lib.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if diff := cmp.Diff(spectra[1], lib.Spectrum(0)); diff != "" {
		t.Errorf("Spectrum(0) mismatch (-want +got):\n%s", diff)
	}
}

func writeFASTA(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func testBuilder(t *testing.T, strategy core.Strategy, logs *bytes.Buffer) *Builder {
	t.Helper()
	gen, err := modify.NewGenerator(modify.Config{Protease: "trypsin", MinLength: 1, MaxLength: 100})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return &Builder{Generator: gen, Strategy: strategy, Log: log.New(logs, "", 0)}
}

func TestBuilderGenerate(t *testing.T) {
	dir := t.TempDir()
	db := writeFASTA(t, dir, "db.fasta", ">p1\nAAKCCR\n>bad\nPEPXK\n>p2\nCCRDDK\n")
	cont := writeFASTA(t, dir, "contaminants.fa", ">c1\nAAK\n")

	for _, strategy := range []core.Strategy{core.Sequential(), core.Parallel(4)} {
		var logs bytes.Buffer
		b := testBuilder(t, strategy, &logs)
		var last float64
		b.Progress = func(f float64) { last = f }

		res, err := b.Generate([]string{db}, cont)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		var names []string
		for _, p := range res.Proteins {
			names = append(names, p.Name)
		}
		if diff := cmp.Diff([]string{"p1", "p2", "c1"}, names); diff != "" {
			t.Errorf("proteins mismatch (-want +got):\n%s", diff)
		}
		if res.Skipped != 1 || !strings.Contains(logs.String(), "bad") {
			t.Errorf("Skipped = %d, log %q; want the bad entry reported", res.Skipped, logs.String())
		}

		wantOrder := []string{"AAK", "CCR", "KAA_decoy", "RCC_decoy", "DDK", "KDD_decoy"}
		if diff := cmp.Diff(wantOrder, res.Peptides.Sequences()); diff != "" {
			t.Errorf("peptide order mismatch (-want +got):\n%s", diff)
		}
		wantMap := map[string][]int{
			"AAK":       {0, 2},
			"CCR":       {0, 1},
			"KAA_decoy": {0, 2},
			"RCC_decoy": {0, 1},
			"DDK":       {1},
			"KDD_decoy": {1},
		}
		if diff := cmp.Diff(wantMap, res.Peptides.Map()); diff != "" {
			t.Errorf("peptide map mismatch (-want +got):\n%s", diff)
		}
		if last != 1 {
			t.Errorf("final progress = %v, want 1", last)
		}
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeFASTA(t, dir, "db.fasta", ">p1\nAAKCCR\n>p2\nCCRDDK\n")

	var logs bytes.Buffer
	lib, err := testBuilder(t, core.Parallel(2), &logs).Build([]string{dir}, "", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if lib.Len() != 6 {
		t.Errorf("Len() = %d, want 6", lib.Len())
	}
	if err := lib.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	s := lib.Summarize()
	if s.Targets != 3 || s.Decoys != 3 || s.Proteins != 2 || s.Peptides != 6 {
		t.Errorf("Summarize() = %+v", s)
	}
	if s.MinPrecursor > s.MedianPrecursor || s.MedianPrecursor > s.MaxPrecursor {
		t.Errorf("precursor range out of order: %+v", s)
	}
	if s.MeanFragments != 4 {
		t.Errorf("MeanFragments = %v, want 4", s.MeanFragments)
	}
}
