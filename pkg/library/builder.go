package library

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/modify"
	"github.com/ChrisMcGann/pepkey/pkg/reader/fasta"
)

// batchSize is the number of proteins handed to a worker at once
const batchSize = 64

// Builder generates the peptides of one or more FASTA databases.
type Builder struct {
	Generator *modify.Generator
	Strategy  core.Strategy
	Progress  core.Progress
	Log       *log.Logger
}

// Result holds the proteins accepted into a library and their peptides.
type Result struct {
	Proteins []core.Protein // indexed by protein index
	Peptides *PeptideMap    // insertion order is the spectrum queue
	Skipped  int            // entries rejected for unknown residues
}

type batch struct {
	seq      int
	first    int // protein index of sequences[0]
	sequence []string
}

type batchResult struct {
	seq      int
	first    int
	peptides [][]string
}

func (b *Builder) logger() *log.Logger {
	if b.Log == nil {
		return log.New(io.Discard, "", 0)
	}
	return b.Log
}

// Generate reads every FASTA file matched by paths, then the contaminants (if set), and
// generates peptides for every entry with a valid sequence. Proteins are numbered
// densely in reading order.
func (b *Builder) Generate(paths []string, contaminants string) (*Result, error) {
	files, err := fasta.ReadPaths(paths...)
	if err != nil {
		return nil, err
	}
	if contaminants != "" {
		extra, err := fasta.ReadPaths(contaminants)
		if err != nil {
			return nil, fmt.Errorf("contaminants: %w", err)
		}
		files = append(files, extra...)
	}

	total := 0
	for _, f := range files {
		n, err := fasta.CountEntries(f)
		if err != nil {
			return nil, err
		}
		total += n
	}

	res := &Result{Peptides: NewPeptideMap()}
	done := 0
	for _, f := range files {
		n, err := b.generateFile(f, res, done, total)
		if err != nil {
			return nil, err
		}
		done += n
	}
	b.logger().Printf("Generated %d peptides from %d proteins (%d entries skipped)",
		res.Peptides.Len(), len(res.Proteins), res.Skipped)
	return res, nil
}

// generateFile fans batches of one file out to workers and merges their peptides back
// in reading order. It returns the number of entries read.
func (b *Builder) generateFile(path string, res *Result, done, total int) (int, error) {
	r, err := fasta.NewReader(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	logger := b.logger()
	workers := b.Strategy.PoolSize(total/batchSize + 1)
	jobs := make(chan batch, workers)
	results := make(chan batchResult, workers)

	var (
		readErr error
		read    int
	)
	go func() {
		defer close(jobs)
		cur := batch{first: len(res.Proteins)}
		for r.Next() {
			read++
			entry := r.Entry()
			if !fasta.ValidSequence(entry.Sequence) {
				logger.Printf("Warning: skipping FASTA entry %s with unknown amino acids", entry.Name)
				res.Skipped++
				continue
			}
			res.Proteins = append(res.Proteins, *entry)
			cur.sequence = append(cur.sequence, entry.Sequence)
			if len(cur.sequence) == batchSize {
				jobs <- cur
				cur = batch{seq: cur.seq + 1, first: len(res.Proteins)}
			}
		}
		if len(cur.sequence) > 0 {
			jobs <- cur
		}
		readErr = r.Err()
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				out := batchResult{seq: job.seq, first: job.first, peptides: make([][]string, len(job.sequence))}
				for k, s := range job.sequence {
					out.peptides[k] = b.Generator.Generate(s)
				}
				results <- out
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]batchResult)
	next := 0
	merged := 0
	for br := range results {
		pending[br.seq] = br
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			for k, peps := range cur.peptides {
				for _, p := range peps {
					res.Peptides.Add(p, cur.first+k)
				}
			}
			merged += len(cur.peptides)
			next++
			if total > 0 {
				b.Progress.Report(float64(done+merged) / float64(total))
			}
		}
	}

	if readErr != nil {
		return read, readErr
	}
	if total > 0 {
		b.Progress.Report(float64(done+read) / float64(total))
	}
	return read, nil
}
