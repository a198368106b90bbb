package cmd

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/config"
	"github.com/ChrisMcGann/pepkey/pkg/digest"
	"github.com/ChrisMcGann/pepkey/pkg/protein"
	"github.com/ChrisMcGann/pepkey/pkg/score"
	"github.com/ChrisMcGann/pepkey/pkg/workflow"
	"github.com/ChrisMcGann/pepkey/pkg/writer/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Flags for score and group commands
	scoreMethod string
	modelPath   string
	filterMode  string
	peptideFDR  float64
	proteinFDR  float64
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(groupCmd)

	scoreCmd.Flags().StringVar(&scoreMethod, "score", "", "Scoring method: x_tandem or ml")
	scoreCmd.Flags().StringVar(&modelPath, "model", "", "Logistic model JSON for --score ml (trained per file if empty)")
	scoreCmd.Flags().StringVar(&filterMode, "filter-mode", "", "PSMs per spectrum: single or multiple")
	scoreCmd.Flags().Float64Var(&peptideFDR, "peptide-fdr", 0, "Precursor-level FDR threshold")
	groupCmd.Flags().Float64Var(&proteinFDR, "protein-fdr", 0, "Protein-level FDR threshold")

	viper.BindPFlag("general.score", scoreCmd.Flags().Lookup("score"))
	viper.BindPFlag("general.model_path", scoreCmd.Flags().Lookup("model"))
	viper.BindPFlag("search.filter_mode", scoreCmd.Flags().Lookup("filter-mode"))
	viper.BindPFlag("search.peptide_fdr", scoreCmd.Flags().Lookup("peptide-fdr"))
	viper.BindPFlag("search.protein_fdr", groupCmd.Flags().Lookup("protein-fdr"))
}

var scoreCmd = &cobra.Command{
	Use:   "score [raw files...]",
	Short: "Score search results and control the precursor FDR",
	Long: `For every raw file, read the second_search dataset (first_search when there
is none), score and filter the PSMs, and write those passing the precursor FDR
as the peptide_fdr dataset.

Examples:
  # Score the files listed in the settings file
  pepkey score --settings settings.yaml

  # Score two files with a trained model at 5% FDR
  pepkey score run1.raw run2.raw --score ml --model model.json --peptide-fdr 0.05`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		files, err := rawFiles(args, s)
		if err != nil {
			return err
		}
		r, err := newRunner(s)
		if err != nil {
			return err
		}
		r.Progress = progressPrinter("Scoring")

		fmt.Printf("Scoring %d files with %s at %.2f%% precursor FDR...\n", len(files), s.General.Score, s.Search.PeptideFDR*100)
		return reportResults("scoring", r.ScoreFiles(files))
	},
}

var groupCmd = &cobra.Command{
	Use:   "group [raw files...]",
	Short: "Assign proteins and control the protein FDR",
	Long: `For every raw file, assign the peptide_fdr PSMs to proteins of the library
(razor rule for shared peptides) and write those passing the protein FDR as the
protein_fdr dataset. Files without a peptide_fdr dataset are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		files, err := rawFiles(args, s)
		if err != nil {
			return err
		}
		r, err := newRunner(s)
		if err != nil {
			return err
		}

		fmt.Printf("Loading library %s...\n", s.Experiment.LibraryPath)
		lib, err := sqlite.Load(s.Experiment.LibraryPath)
		if err != nil {
			return err
		}
		r.Database = &protein.Database{Peptides: lib.Peptides.Map(), Proteins: lib.Proteins}
		r.Progress = progressPrinter("Grouping")

		fmt.Printf("Grouping %d files at %.2f%% protein FDR...\n", len(files), s.Search.ProteinFDR*100)
		return reportResults("grouping", r.GroupFiles(files))
	},
}

func newRunner(s *config.Settings) (*workflow.Runner, error) {
	p, err := digest.Lookup(s.Fasta.Protease)
	if err != nil {
		return nil, err
	}
	r := &workflow.Runner{
		Method:     s.General.Score,
		Train:      s.TrainConfig(),
		Filter:     s.FilterConfig(),
		Protease:   p,
		PeptideFDR: s.Search.PeptideFDR,
		ProteinFDR: s.Search.ProteinFDR,
		Strategy:   s.Strategy(),
		Log:        newLogger(),
	}
	if r.Method == score.MethodML && s.General.ModelPath != "" {
		clf, err := score.LoadLinearClassifier(s.General.ModelPath)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Model: %s (%s)\n", s.General.ModelPath, strings.Join(clf.Features(), ", "))
		r.Classifier = clf
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
