package cmd

import (
	"fmt"

	"github.com/ChrisMcGann/pepkey/pkg/writer/sqlite"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [library]",
	Short: "Summarize library contents",
	Long:  `Print summary statistics about a library archive: spectrum, peptide and protein counts, precursor mass range and fragment coverage.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		path := s.Experiment.LibraryPath
		if len(args) == 1 {
			path = args[0]
		}

		header, err := sqlite.ReadHeader(path)
		if err != nil {
			return err
		}
		lib, err := sqlite.Load(path)
		if err != nil {
			return err
		}
		if err := lib.Validate(); err != nil {
			return fmt.Errorf("library %s is inconsistent: %w", path, err)
		}

		fmt.Printf("Library: %s\n", path)
		fmt.Printf("Created: %s (version %d)\n", header.CreationDate, header.Version)
		fmt.Printf("Fragment width: %d\n", lib.Width())
		printSummary(lib.Summarize())
		return nil
	},
}
