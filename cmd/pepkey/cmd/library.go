package cmd

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/library"
	"github.com/ChrisMcGann/pepkey/pkg/modify"
	"github.com/ChrisMcGann/pepkey/pkg/writer/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Flags for library command
	fastaPaths       []string
	contaminantsPath string
	protease         string
	missedCleavages  int
)

func init() {
	rootCmd.AddCommand(libraryCmd)

	libraryCmd.Flags().StringSliceVarP(&fastaPaths, "fasta", "f", nil, "FASTA files, directories or glob patterns")
	libraryCmd.Flags().StringVar(&contaminantsPath, "contaminants", "", "Contaminants FASTA file")
	libraryCmd.Flags().StringVar(&protease, "protease", "", "Protease name (e.g. trypsin, lys-c)")
	libraryCmd.Flags().IntVar(&missedCleavages, "missed-cleavages", 0, "Maximum number of missed cleavages")

	viper.BindPFlag("experiment.fasta_paths", libraryCmd.Flags().Lookup("fasta"))
	viper.BindPFlag("experiment.contaminants_path", libraryCmd.Flags().Lookup("contaminants"))
	viper.BindPFlag("fasta.protease", libraryCmd.Flags().Lookup("protease"))
	viper.BindPFlag("fasta.n_missed_cleavages", libraryCmd.Flags().Lookup("missed-cleavages"))
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Build a theoretical spectral library from FASTA databases",
	Long: `Digest every protein, apply fixed and variable modifications, add reversed
decoys and compute b/y fragment spectra. The library is written as a single
SQLite archive.

Examples:
  # Build with the settings file
  pepkey library --settings settings.yaml

  # Build from a directory of FASTA files with lys-c
  pepkey library --fasta db/ --protease lys-c --library lysc.db`,
	RunE: runLibrary,
}

func runLibrary(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if len(s.Experiment.FastaPaths) == 0 {
		return fmt.Errorf("no FASTA paths, use --fasta or experiment.fasta_paths")
	}

	gen, err := modify.NewGenerator(s.ModifyConfig())
	if err != nil {
		return err
	}
	masses, err := s.MassTable()
	if err != nil {
		return err
	}

	fmt.Printf("Building library from %s...\n", strings.Join(s.Experiment.FastaPaths, ", "))
	fmt.Printf("Protease: %s (%d missed cleavages)\n", s.Fasta.Protease, s.Fasta.NMissedCleavages)
	fmt.Printf("Peptide length: %d-%d\n", s.Fasta.PepLengthMin, s.Fasta.PepLengthMax)
	if s.Experiment.ContaminantsPath != "" {
		fmt.Printf("Contaminants: %s\n", s.Experiment.ContaminantsPath)
	}

	b := &library.Builder{
		Generator: gen,
		Strategy:  s.Strategy(),
		Progress:  progressPrinter("Progress"),
		Log:       newLogger(),
	}
	lib, err := b.Build(s.Experiment.FastaPaths, s.Experiment.ContaminantsPath, masses)
	if err != nil {
		return err
	}

	if err := sqlite.Save(s.Experiment.LibraryPath, lib); err != nil {
		return fmt.Errorf("failed to write library: %w", err)
	}

	fmt.Printf("\nLibrary complete!\n")
	printSummary(lib.Summarize())
	fmt.Printf("Output: %s\n", s.Experiment.LibraryPath)
	return nil
}

func printSummary(sum library.Summary) {
	fmt.Printf("Spectra: %d (%d targets, %d decoys)\n", sum.Spectra, sum.Targets, sum.Decoys)
	fmt.Printf("Peptides: %d\n", sum.Peptides)
	fmt.Printf("Proteins: %d\n", sum.Proteins)
	if sum.Spectra > 0 {
		fmt.Printf("Precursor mass: %.4f - %.4f (median %.4f)\n", sum.MinPrecursor, sum.MaxPrecursor, sum.MedianPrecursor)
		fmt.Printf("Mean fragments per spectrum: %.1f\n", sum.MeanFragments)
	}
}
