package cmd

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/pepkey/pkg/reader/fasta"
	"github.com/ChrisMcGann/pepkey/pkg/score"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate settings and FASTA inputs",
	Long: `Check the settings file, resolve every FASTA path and report entries with
residues outside the amino acid alphabet, which library generation skips.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		fmt.Printf("Settings: ok\n")

		if s.General.Score == score.MethodML && s.General.ModelPath != "" {
			clf, err := score.LoadLinearClassifier(s.General.ModelPath)
			if err != nil {
				return err
			}
			fmt.Printf("Model: %d features\n", len(clf.Features()))
		}

		paths := s.Experiment.FastaPaths
		if s.Experiment.ContaminantsPath != "" {
			paths = append(append([]string(nil), paths...), s.Experiment.ContaminantsPath)
		}
		if len(paths) == 0 {
			return nil
		}
		files, err := fasta.ReadPaths(paths...)
		if err != nil {
			return err
		}

		total, invalid := 0, 0
		for _, file := range files {
			n, bad, err := checkFASTA(file)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d entries\n", file, n)
			total += n
			invalid += bad
		}
		fmt.Printf("FASTA: %d entries in %d files, %d with unknown amino acids\n", total, len(files), invalid)
		return nil
	},
}

func checkFASTA(path string) (entries, invalid int, err error) {
	r, err := fasta.NewReader(path)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()

	for r.Next() {
		entries++
		p := r.Entry()
		if !fasta.ValidSequence(p.Sequence) {
			invalid++
			fmt.Fprintf(os.Stderr, "Warning: %s contains unknown amino acids\n", p.Name)
		}
	}
	return entries, invalid, r.Err()
}
