// Package workflow runs the scoring and protein grouping stages over the dataset
// stores of many raw files.
package workflow

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/digest"
	"github.com/ChrisMcGann/pepkey/pkg/fdr"
	"github.com/ChrisMcGann/pepkey/pkg/filter"
	"github.com/ChrisMcGann/pepkey/pkg/protein"
	"github.com/ChrisMcGann/pepkey/pkg/psm"
	"github.com/ChrisMcGann/pepkey/pkg/score"
	"github.com/ChrisMcGann/pepkey/pkg/store"
)

// Runner holds everything the per-file stages need
type Runner struct {
	Method     string           // score.MethodXTandem or score.MethodML
	Classifier score.Classifier // ML scorer; nil trains one per file
	Train      score.TrainConfig
	Filter     filter.Config
	Protease   *digest.Protease
	Database   *protein.Database // required for grouping
	PeptideFDR float64
	ProteinFDR float64
	Strategy   core.Strategy
	Progress   core.Progress
	Log        *log.Logger
}

// FileResult is the outcome of one raw file
type FileResult struct {
	File    string
	Dataset string // dataset written, empty when skipped or failed
	Input   int    // rows read
	Rows    int    // rows written
	Cutoff  fdr.Cutoff
	Skipped bool
	Err     error
}

func (r *Runner) logger() *log.Logger {
	if r.Log == nil {
		return log.New(io.Discard, "", 0)
	}
	return r.Log
}

// Validate checks the runner before any file is touched
func (r *Runner) Validate() error {
	switch r.Method {
	case score.MethodXTandem, score.MethodML:
	default:
		return fmt.Errorf("unknown score method '%s', must be %s or %s", r.Method, score.MethodXTandem, score.MethodML)
	}
	if err := r.Filter.Validate(); err != nil {
		return err
	}
	if r.Protease == nil {
		return fmt.Errorf("protease is required")
	}
	if r.PeptideFDR <= 0 || r.PeptideFDR > 1 {
		return fmt.Errorf("peptide FDR %v outside (0, 1]", r.PeptideFDR)
	}
	if r.ProteinFDR <= 0 || r.ProteinFDR > 1 {
		return fmt.Errorf("protein FDR %v outside (0, 1]", r.ProteinFDR)
	}
	return nil
}

// ScoreFile scores the search results of one raw file and writes the PSMs passing
// the peptide FDR as the peptide_fdr dataset. The second search is preferred; the
// first search is used when no second search was stored.
func (r *Runner) ScoreFile(raw string) FileResult {
	res := FileResult{File: raw}
	logger := r.logger()

	st, err := store.OpenFor(raw)
	if err != nil {
		res.Err = err
		return res
	}
	defer st.Close()

	t, err := st.Read(store.SecondSearch)
	if errors.Is(err, store.ErrDatasetNotFound) {
		logger.Printf("%s: no %s dataset, using %s", raw, store.SecondSearch, store.FirstSearch)
		t, err = st.Read(store.FirstSearch)
	}
	if err != nil {
		res.Err = err
		return res
	}
	res.Input = len(t)
	if len(t) == 0 {
		logger.Printf("Warning: %s has no PSMs, skipping", raw)
		res.Skipped = true
		return res
	}

	score.AddFeatures(t, r.Protease)

	var scored psm.Table
	switch r.Method {
	case score.MethodML:
		clf := r.Classifier
		if clf == nil {
			cfg := r.Train
			if cfg.Log == nil {
				cfg.Log = logger
			}
			if clf, err = score.TrainLogistic(t, cfg); err != nil {
				res.Err = fmt.Errorf("%s: %w", raw, err)
				return res
			}
		}
		scored, err = score.FilterWithML(t, clf, r.Filter)
	default:
		scored, err = score.FilterWithXTandem(t, r.Filter)
	}
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", raw, err)
		return res
	}

	cutoff, passed, err := fdr.CutGlobalFDR(scored, psm.LevelPrecursor, r.PeptideFDR)
	if err != nil {
		res.Err = err
		return res
	}
	if _, err := st.Write(store.PeptideFDR, passed); err != nil {
		res.Err = err
		return res
	}

	res.Dataset = store.PeptideFDR
	res.Rows = len(passed)
	res.Cutoff = cutoff
	logger.Printf("%s: %d of %d PSMs pass %.2f%% precursor FDR (score >= %.4f)",
		raw, len(passed), len(t), r.PeptideFDR*100, cutoff.Score)
	return res
}

// GroupFile assigns proteins to the peptide_fdr dataset of one raw file and writes the
// rows passing the protein FDR as the protein_fdr dataset. Files without a peptide_fdr
// dataset are skipped.
func (r *Runner) GroupFile(raw string) FileResult {
	res := FileResult{File: raw}
	logger := r.logger()

	if r.Database == nil {
		res.Err = fmt.Errorf("%s: no protein database", raw)
		return res
	}

	st, err := store.OpenFor(raw)
	if err != nil {
		res.Err = err
		return res
	}
	defer st.Close()

	t, err := st.Read(store.PeptideFDR)
	if errors.Is(err, store.ErrDatasetNotFound) {
		logger.Printf("Warning: %s has no %s dataset, skipping", raw, store.PeptideFDR)
		res.Skipped = true
		return res
	}
	if err != nil {
		res.Err = err
		return res
	}
	res.Input = len(t)
	if len(t) == 0 {
		logger.Printf("Warning: %s has no PSMs passing peptide FDR, skipping", raw)
		res.Skipped = true
		return res
	}

	grouped := protein.PerformGrouping(t, r.Database)
	cutoff, passed, err := fdr.CutGlobalFDR(grouped, psm.LevelProtein, r.ProteinFDR)
	if err != nil {
		res.Err = err
		return res
	}
	if _, err := st.Write(store.ProteinFDR, passed); err != nil {
		res.Err = err
		return res
	}

	res.Dataset = store.ProteinFDR
	res.Rows = len(passed)
	res.Cutoff = cutoff
	logger.Printf("%s: %d of %d PSMs pass %.2f%% protein FDR", raw, len(passed), len(t), r.ProteinFDR*100)
	return res
}

// ScoreFiles runs ScoreFile over files. A failing file does not stop the others.
func (r *Runner) ScoreFiles(files []string) []FileResult {
	return r.each(files, r.ScoreFile)
}

// GroupFiles runs GroupFile over files. A failing file does not stop the others.
func (r *Runner) GroupFiles(files []string) []FileResult {
	return r.each(files, r.GroupFile)
}

// each fans files out to a bounded pool. Results keep the order of files; progress
// advances once per finished file.
func (r *Runner) each(files []string, fn func(string) FileResult) []FileResult {
	results := make([]FileResult, len(files))
	if len(files) == 0 {
		return results
	}

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := 0; w < r.Strategy.PoolSize(len(files)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = isolate(files[i], fn)

				mu.Lock()
				done++
				r.Progress.Report(float64(done) / float64(len(files)))
				mu.Unlock()
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// isolate turns a panic in fn into the file's error
func isolate(file string, fn func(string) FileResult) (res FileResult) {
	defer func() {
		if p := recover(); p != nil {
			res = FileResult{File: file, Err: fmt.Errorf("%s: %v", file, p)}
		}
	}()
	return fn(file)
}

// Failed returns the results that carry an error
func Failed(results []FileResult) []FileResult {
	var out []FileResult
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
