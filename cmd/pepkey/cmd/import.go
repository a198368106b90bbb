package cmd

import (
	"fmt"

	"github.com/ChrisMcGann/pepkey/pkg/reader/tsv"
	"github.com/ChrisMcGann/pepkey/pkg/store"
	"github.com/spf13/cobra"
)

var (
	// Flags for import and export commands
	datasetName string
	exportName  string
	listOnly    bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&datasetName, "dataset", "d", store.FirstSearch, "Dataset name to write")
}

var importCmd = &cobra.Command{
	Use:   "import [raw file] [psms.tsv]",
	Short: "Import a PSM table into the store of a raw file",
	Long: `Read a tab-separated PSM table (plain or compressed) and store it as a named
dataset next to the raw file, replacing any dataset of the same name.

Examples:
  # Store search results as the first search
  pepkey import run1.raw run1_psms.tsv.gz

  # Store a refined search
  pepkey import run1.raw run1_second.tsv --dataset second_search`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, input := args[0], args[1]

		t, err := tsv.ReadFile(input)
		if err != nil {
			return err
		}

		st, err := store.OpenFor(raw)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := st.Write(datasetName, t)
		if err != nil {
			return err
		}
		targets, decoys := t.Counts()
		fmt.Printf("Imported %d PSMs (%d targets, %d decoys) into %s of %s\n", len(t), targets, decoys, datasetName, st.Path())
		fmt.Printf("Run: %s\n", runID)
		return nil
	},
}
