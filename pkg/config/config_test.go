package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ChrisMcGann/pepkey/pkg/modify"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/viper"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(modify.DefaultConfig(), s.ModifyConfig(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ModifyConfig() mismatch (-want +got):\n%s", diff)
	}
	if s.General.Score != "x_tandem" || s.Search.PeptideFDR != 0.01 || s.Search.ProteinFDR != 0.01 {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.FilterConfig().Mode != "multiple" {
		t.Errorf("filter mode = %q, want multiple", s.FilterConfig().Mode)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "settings.yaml", `
general:
  score: ml
  n_processes: 1
experiment:
  file_paths: [a.raw, b.raw]
  fasta_paths: [db/]
fasta:
  protease: lys-c
  n_missed_cleavages: 1
  mods_variable: [oxM, pS]
  al_swap: false
search:
  peptide_fdr: 0.05
  filter_mode: single
`)
	s, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff([]string{"a.raw", "b.raw"}, s.Experiment.FilePaths); diff != "" {
		t.Errorf("file_paths mismatch (-want +got):\n%s", diff)
	}
	cfg := s.ModifyConfig()
	if cfg.Protease != "lys-c" || cfg.MissedCleavages != 1 || cfg.MinLength != 7 {
		t.Errorf("ModifyConfig() = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"oxM", "pS"}, cfg.Variable); diff != "" {
		t.Errorf("variable mods mismatch (-want +got):\n%s", diff)
	}
	if cfg.Decoy.SwapAL || !cfg.Decoy.SwapKR {
		t.Errorf("decoy options = %+v, want only K/R swap", cfg.Decoy)
	}
	if s.Search.PeptideFDR != 0.05 || s.Search.ProteinFDR != 0.01 {
		t.Errorf("search = %+v", s.Search)
	}
	if s.Strategy().Workers != 1 {
		t.Errorf("Strategy() = %+v, want sequential", s.Strategy())
	}
}

func TestLoadOverride(t *testing.T) {
	path := writeFile(t, "settings.yaml", "search:\n  peptide_fdr: 0.05\n")
	v := viper.New()
	v.Set("search.peptide_fdr", 0.02)

	s, err := Load(v, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Search.PeptideFDR != 0.02 {
		t.Errorf("peptide_fdr = %v, want override 0.02", s.Search.PeptideFDR)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"score", func(s *Settings) { s.General.Score = "random_forest" }},
		{"protease", func(s *Settings) { s.Fasta.Protease = "pepsin x" }},
		{"lengths", func(s *Settings) { s.Fasta.PepLengthMin = 30 }},
		{"missed", func(s *Settings) { s.Fasta.NMissedCleavages = -1 }},
		{"fixed mod", func(s *Settings) { s.Fasta.ModsFixed = []string{"CC"} }},
		{"terminal mod", func(s *Settings) { s.Fasta.ModsFixedTerminal = []string{"cC"} }},
		{"peptide fdr", func(s *Settings) { s.Search.PeptideFDR = 0 }},
		{"protein fdr", func(s *Settings) { s.Search.ProteinFDR = 2 }},
		{"filter mode", func(s *Settings) { s.Search.FilterMode = "all" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(nil, "")
			if err != nil {
				t.Fatal(err)
			}
			tt.modify(s)
			if err := s.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file succeeded")
	}
	bad := writeFile(t, "settings.yaml", "search:\n  peptide_fdr: 1.5\n")
	if _, err := Load(nil, bad); err == nil {
		t.Error("Load() accepted peptide_fdr 1.5")
	}
}

func TestMassTable(t *testing.T) {
	csv := writeFile(t, "mods.csv", "tag,mass\nsilac,8.014199\n")
	s, err := Load(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	s.Fasta.CustomModsCSV = csv

	masses, err := s.MassTable()
	if err != nil {
		t.Fatalf("MassTable() error = %v", err)
	}
	k, err := masses.TokenMass("K")
	if err != nil {
		t.Fatal(err)
	}
	heavy, err := masses.TokenMass("silacK")
	if err != nil {
		t.Fatalf("TokenMass(silacK) error = %v", err)
	}
	if d := heavy - k; d < 8.0141 || d > 8.0143 {
		t.Errorf("silac shift = %v, want 8.014199", d)
	}

	s.Fasta.CustomModsCSV = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := s.MassTable(); err == nil {
		t.Error("MassTable() with missing CSV succeeded")
	}
}
