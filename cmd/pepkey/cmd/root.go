// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/ChrisMcGann/pepkey/pkg/config"
	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Flags shared by every command
	settingsPath string
	threads      int
	libraryPath  string
)

var rootCmd = &cobra.Command{
	Use:   "pepkey",
	Short: "pepkey - Peptide library generation and PSM scoring tool",
	Long: `pepkey digests protein databases into a theoretical spectral library of
target and decoy peptides, and turns raw search results into FDR-controlled
peptide and protein identifications.

Stages:
- library: FASTA -> modified peptides -> b/y fragment spectra (SQLite archive)
- import/export: move PSM tables between TSV files and the per-raw-file store
- score: X!Tandem or logistic scoring, best-PSM filtering, precursor FDR
- group: razor protein assignment and protein FDR`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "Settings file (yaml, toml or json)")
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 0, "Number of worker threads (0 = one per CPU)")
	rootCmd.PersistentFlags().StringVarP(&libraryPath, "library", "l", "", "Library archive path")

	viper.BindPFlag("settings", rootCmd.PersistentFlags().Lookup("settings"))
	viper.BindPFlag("general.n_processes", rootCmd.PersistentFlags().Lookup("threads"))
	viper.BindPFlag("experiment.library_path", rootCmd.PersistentFlags().Lookup("library"))
}

// loadSettings reads the settings file with command line overrides applied
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper(), viper.GetString("settings"))
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

// progressPrinter prints a line for every tenth of the work done. A fraction lower
// than the previous one starts a new pass.
func progressPrinter(label string) core.Progress {
	last, prev := 0, 0.0
	return func(f float64) {
		if f < prev {
			last = 0
		}
		prev = f
		if d := int(f * 10); d > last {
			last = d
			fmt.Printf("%s: %d%%\n", label, d*10)
		}
	}
}

// reportResults prints one line per file and fails when any file failed
func reportResults(stage string, results []workflow.FileResult) error {
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(os.Stderr, "Warning: %s failed for %s: %v\n", stage, res.File, res.Err)
		case res.Skipped:
			fmt.Printf("%s: skipped\n", res.File)
		default:
			fmt.Printf("%s: %d of %d PSMs written to %s\n", res.File, res.Rows, res.Input, res.Dataset)
		}
	}
	if failed := workflow.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%s failed for %d of %d files", stage, len(failed), len(results))
	}
	return nil
}

// rawFiles returns the command arguments, or the settings file list when there are none
func rawFiles(args []string, s *config.Settings) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(s.Experiment.FilePaths) == 0 {
		return nil, fmt.Errorf("no raw files given and experiment.file_paths is empty")
	}
	return s.Experiment.FilePaths, nil
}
