package cmd

import (
	"fmt"

	"github.com/ChrisMcGann/pepkey/pkg/store"
	"github.com/ChrisMcGann/pepkey/pkg/writer/tsv"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportName, "dataset", "d", store.ProteinFDR, "Dataset name to export")
	exportCmd.Flags().BoolVar(&listOnly, "list", false, "List the stored datasets instead of exporting")
}

var exportCmd = &cobra.Command{
	Use:   "export [raw file] [out.tsv]",
	Short: "Export a stored dataset as a PSM table",
	Long: `Write a dataset of a raw file's store as tab-separated text. A compression
suffix such as .gz on the output compresses it; '-' writes to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.OpenFor(args[0])
		if err != nil {
			return err
		}
		defer st.Close()

		if listOnly {
			datasets, err := st.List()
			if err != nil {
				return err
			}
			for _, d := range datasets {
				fmt.Printf("%s\t%d\t%s\t%s\n", d.Name, d.Rows, d.Created.Format("2006-01-02 15:04:05"), d.RunID)
			}
			return nil
		}
		if len(args) != 2 {
			return fmt.Errorf("an output path is required unless --list is given")
		}

		t, err := st.Read(exportName)
		if err != nil {
			return err
		}
		return tsv.WriteFile(args[1], t)
	},
}
