// Package config is for the settings file, unmarshalled from Viper and
// overridden by command line flags (see: /cmd/pepkey/cmd)
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/decoy"
	"github.com/ChrisMcGann/pepkey/pkg/digest"
	"github.com/ChrisMcGann/pepkey/pkg/filter"
	"github.com/ChrisMcGann/pepkey/pkg/modify"
	"github.com/ChrisMcGann/pepkey/pkg/score"
	"github.com/spf13/viper"
)

// General settings
type General struct {
	// scoring method: x_tandem or ml
	Score string `mapstructure:"score"`

	// worker count for batch steps, <= 0 uses every CPU
	NProcesses int `mapstructure:"n_processes"`

	// JSON logistic model; empty trains one per raw file
	ModelPath string `mapstructure:"model_path"`

	// seed for classifier training
	Seed int64 `mapstructure:"seed"`
}

// Experiment lists the inputs and outputs of a run
type Experiment struct {
	FilePaths        []string `mapstructure:"file_paths"`
	FastaPaths       []string `mapstructure:"fasta_paths"`
	ContaminantsPath string   `mapstructure:"contaminants_path"`
	LibraryPath      string   `mapstructure:"library_path"`
}

// Fasta holds the digestion and modification settings of library generation
type Fasta struct {
	Protease                 string   `mapstructure:"protease"`
	NMissedCleavages         int      `mapstructure:"n_missed_cleavages"`
	PepLengthMin             int      `mapstructure:"pep_length_min"`
	PepLengthMax             int      `mapstructure:"pep_length_max"`
	ModsFixed                []string `mapstructure:"mods_fixed"`
	ModsVariable             []string `mapstructure:"mods_variable"`
	ModsFixedTerminal        []string `mapstructure:"mods_fixed_terminal"`
	ModsVariableTerminal     []string `mapstructure:"mods_variable_terminal"`
	ModsFixedTerminalProt    []string `mapstructure:"mods_fixed_terminal_prot"`
	ModsVariableTerminalProt []string `mapstructure:"mods_variable_terminal_prot"`
	MaxIsoforms              int      `mapstructure:"max_isoforms"`
	ALSwap                   bool     `mapstructure:"al_swap"`
	KRSwap                   bool     `mapstructure:"kr_swap"`

	// CSV of extra modification tags (tag,mass[,description])
	CustomModsCSV string `mapstructure:"custom_mods_csv"`
}

// Search holds the scoring stage thresholds
type Search struct {
	PeptideFDR float64 `mapstructure:"peptide_fdr"`
	ProteinFDR float64 `mapstructure:"protein_fdr"`
	FilterMode string  `mapstructure:"filter_mode"`
}

// Settings is the root-level settings struct
type Settings struct {
	General    General    `mapstructure:"general"`
	Experiment Experiment `mapstructure:"experiment"`
	Fasta      Fasta      `mapstructure:"fasta"`
	Search     Search     `mapstructure:"search"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	d := modify.DefaultConfig()

	v.SetDefault("general.score", score.MethodXTandem)
	v.SetDefault("general.n_processes", 0)
	v.SetDefault("general.model_path", "")
	v.SetDefault("general.seed", score.DefaultTrainConfig().Seed)

	v.SetDefault("experiment.file_paths", []string{})
	v.SetDefault("experiment.fasta_paths", []string{})
	v.SetDefault("experiment.contaminants_path", "")
	v.SetDefault("experiment.library_path", "library.db")

	v.SetDefault("fasta.protease", d.Protease)
	v.SetDefault("fasta.n_missed_cleavages", d.MissedCleavages)
	v.SetDefault("fasta.pep_length_min", d.MinLength)
	v.SetDefault("fasta.pep_length_max", d.MaxLength)
	v.SetDefault("fasta.mods_fixed", d.Fixed)
	v.SetDefault("fasta.mods_variable", d.Variable)
	v.SetDefault("fasta.mods_fixed_terminal", []string{})
	v.SetDefault("fasta.mods_variable_terminal", []string{})
	v.SetDefault("fasta.mods_fixed_terminal_prot", []string{})
	v.SetDefault("fasta.mods_variable_terminal_prot", d.VariableTerminalProt)
	v.SetDefault("fasta.max_isoforms", d.MaxIsoforms)
	v.SetDefault("fasta.al_swap", d.Decoy.SwapAL)
	v.SetDefault("fasta.kr_swap", d.Decoy.SwapKR)
	v.SetDefault("fasta.custom_mods_csv", "")

	v.SetDefault("search.peptide_fdr", 0.01)
	v.SetDefault("search.protein_fdr", 0.01)
	v.SetDefault("search.filter_mode", filter.ModeMultiple)
}

// Load reads the settings file at path (any format viper understands) over the
// defaults. An empty path uses the defaults and whatever is already set on v.
// A nil v gets a fresh instance.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings that would fail later in the run
func (s *Settings) Validate() error {
	var errs []error

	switch s.General.Score {
	case score.MethodXTandem, score.MethodML:
	default:
		errs = append(errs, fmt.Errorf("general.score '%s' must be %s or %s", s.General.Score, score.MethodXTandem, score.MethodML))
	}

	if _, err := digest.Lookup(s.Fasta.Protease); err != nil {
		errs = append(errs, fmt.Errorf("fasta.protease: %w", err))
	}
	if s.Fasta.PepLengthMin > s.Fasta.PepLengthMax {
		errs = append(errs, fmt.Errorf("fasta.pep_length_min %d exceeds pep_length_max %d", s.Fasta.PepLengthMin, s.Fasta.PepLengthMax))
	}
	if s.Fasta.NMissedCleavages < 0 {
		errs = append(errs, fmt.Errorf("fasta.n_missed_cleavages must be non-negative, got %d", s.Fasta.NMissedCleavages))
	}
	for _, mods := range []struct {
		key      string
		specs    []string
		terminal bool
	}{
		{"mods_fixed", s.Fasta.ModsFixed, false},
		{"mods_variable", s.Fasta.ModsVariable, false},
		{"mods_fixed_terminal", s.Fasta.ModsFixedTerminal, true},
		{"mods_variable_terminal", s.Fasta.ModsVariableTerminal, true},
		{"mods_fixed_terminal_prot", s.Fasta.ModsFixedTerminalProt, true},
		{"mods_variable_terminal_prot", s.Fasta.ModsVariableTerminalProt, true},
	} {
		if _, err := modify.ParseMods(mods.specs, mods.terminal); err != nil {
			errs = append(errs, fmt.Errorf("fasta.%s: %w", mods.key, err))
		}
	}

	if l := s.Search.PeptideFDR; l <= 0 || l > 1 {
		errs = append(errs, fmt.Errorf("search.peptide_fdr %v outside (0, 1]", l))
	}
	if l := s.Search.ProteinFDR; l <= 0 || l > 1 {
		errs = append(errs, fmt.Errorf("search.protein_fdr %v outside (0, 1]", l))
	}
	fc := s.FilterConfig()
	if err := fc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("search.filter_mode: %w", err))
	}

	return errors.Join(errs...)
}

// ModifyConfig returns the peptide generation settings
func (s *Settings) ModifyConfig() modify.Config {
	return modify.Config{
		Protease:             s.Fasta.Protease,
		MissedCleavages:      s.Fasta.NMissedCleavages,
		MinLength:            s.Fasta.PepLengthMin,
		MaxLength:            s.Fasta.PepLengthMax,
		Fixed:                s.Fasta.ModsFixed,
		Variable:             s.Fasta.ModsVariable,
		FixedTerminal:        s.Fasta.ModsFixedTerminal,
		VariableTerminal:     s.Fasta.ModsVariableTerminal,
		FixedTerminalProt:    s.Fasta.ModsFixedTerminalProt,
		VariableTerminalProt: s.Fasta.ModsVariableTerminalProt,
		MaxIsoforms:          s.Fasta.MaxIsoforms,
		Decoy:                decoy.Options{SwapAL: s.Fasta.ALSwap, SwapKR: s.Fasta.KRSwap},
	}
}

// FilterConfig returns the PSM filter settings
func (s *Settings) FilterConfig() filter.Config {
	return filter.Config{Mode: s.Search.FilterMode}
}

// Strategy returns the batch execution strategy
func (s *Settings) Strategy() core.Strategy {
	if s.General.NProcesses == 1 {
		return core.Sequential()
	}
	return core.Parallel(s.General.NProcesses)
}

// MassTable returns residue masses including the custom modifications, if any
func (s *Settings) MassTable() (*core.MassTable, error) {
	mods := core.DefaultModDatabase()
	if s.Fasta.CustomModsCSV != "" {
		fh, err := os.Open(s.Fasta.CustomModsCSV)
		if err != nil {
			return nil, fmt.Errorf("failed to open custom modifications: %w", err)
		}
		defer fh.Close()
		if err := mods.LoadFromCSV(fh); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Fasta.CustomModsCSV, err)
		}
	}
	return core.NewMassTable(mods), nil
}

// TrainConfig returns the classifier training settings
func (s *Settings) TrainConfig() score.TrainConfig {
	cfg := score.DefaultTrainConfig()
	cfg.Seed = s.General.Seed
	return cfg
}
