package cmd

import (
	"errors"
	"fmt"

	"github.com/ChrisMcGann/pepkey/pkg/digest"
	"github.com/ChrisMcGann/pepkey/pkg/psm"
	"github.com/ChrisMcGann/pepkey/pkg/score"
	"github.com/ChrisMcGann/pepkey/pkg/store"
	"github.com/spf13/cobra"
)

var (
	// Flags for train command
	modelOut string
)

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVarP(&modelOut, "out", "o", "model.json", "Output model file")
}

var trainCmd = &cobra.Command{
	Use:   "train [raw files...]",
	Short: "Train a logistic PSM classifier on search results",
	Long: `Pool the search results of the given raw files, pick confident targets and
decoys, and fit a logistic model over the default features. The model can be
passed to 'pepkey score --score ml --model'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		files, err := rawFiles(args, s)
		if err != nil {
			return err
		}
		p, err := digest.Lookup(s.Fasta.Protease)
		if err != nil {
			return err
		}

		var pooled psm.Table
		offset := 0
		for _, file := range files {
			t, err := readSearch(file)
			if err != nil {
				return err
			}
			score.AddFeatures(t, p)
			// query indices restart in every file
			next := offset
			for j := range t {
				t[j].QueryIdx += offset
				if t[j].QueryIdx >= next {
					next = t[j].QueryIdx + 1
				}
			}
			offset = next
			pooled = append(pooled, t...)
			fmt.Printf("%s: %d PSMs\n", file, len(t))
		}

		cfg := s.TrainConfig()
		cfg.Log = newLogger()
		clf, err := score.TrainLogistic(pooled, cfg)
		if err != nil {
			return err
		}
		if err := clf.Save(modelOut); err != nil {
			return err
		}
		fmt.Printf("Model: %s\n", modelOut)
		return nil
	},
}

// readSearch returns the second search of a raw file, or the first when there is none
func readSearch(file string) (psm.Table, error) {
	st, err := store.OpenFor(file)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	t, err := st.Read(store.SecondSearch)
	if errors.Is(err, store.ErrDatasetNotFound) {
		t, err = st.Read(store.FirstSearch)
	}
	return t, err
}
